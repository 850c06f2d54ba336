package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/internal/logging"
	"github.com/aretw0/flowgen/internal/presentation/graph"
	"github.com/aretw0/flowgen/internal/validator"
	"github.com/aretw0/flowgen/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Compiler is the slice of *flowgen.Generator the server needs.
type Compiler interface {
	CompileDocument(ctx context.Context, data []byte) (*flowgen.Result, error)
}

// ValidateResult is the structured output of validate_flow.
type ValidateResult struct {
	Valid  bool     `json:"valid" jsonschema_description:"True when the flow has no problems"`
	Errors []string `json:"errors" jsonschema_description:"Schema or structural problems found"`
}

// ValidateArgs are the arguments of validate_flow.
type ValidateArgs struct {
	Flow string `json:"flow"`
}

// Server exposes flow compilation as MCP tools.
type Server struct {
	compiler  Compiler
	library   ports.ToolLibrary
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. lib may be nil.
func NewServer(c Compiler, lib ports.ToolLibrary, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		compiler:  c,
		library:   lib,
		logger:    logger,
		mcpServer: server.NewMCPServer("flowgen-mcp", flowgen.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("compile_flow",
		mcp.WithDescription("Compile a client manifest (YAML or JSON) into a flow definition. A flow definition is returned normalized."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Client manifest or flow definition")),
	), s.handleCompile)

	s.mcpServer.AddTool(mcp.NewTool("render_graph",
		mcp.WithDescription("Render a manifest or flow definition as a Mermaid flowchart."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Client manifest or flow definition")),
	), s.handleGraph)

	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Check a JSON flow definition against the document schema and its Next chain."),
		mcp.WithString("flow", mcp.Required(), mcp.Description("JSON flow definition")),
		mcp.WithOutputSchema[ValidateResult](),
	), mcp.NewStructuredToolHandler(s.handleValidate))
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := request.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.compiler.CompileDocument(ctx, []byte(doc))
	if err != nil {
		s.logger.Warn("MCP compile_flow failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("compile failed: %v", err)), nil
	}
	out, err := flowgen.Marshal(res.Flow)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := request.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.compiler.CompileDocument(ctx, []byte(doc))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("compile failed: %v", err)), nil
	}
	var overlay *graph.Overlay
	if renamed := graph.RenamedStates(res.Flow, res.Origins); len(renamed) > 0 {
		overlay = &graph.Overlay{Renamed: renamed}
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(res.Flow, res.Origins, overlay)), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args ValidateArgs) (ValidateResult, error) {
	if strings.TrimSpace(args.Flow) == "" {
		return ValidateResult{}, fmt.Errorf("flow is required")
	}
	problems, err := validator.CheckDocument([]byte(args.Flow))
	if err != nil {
		return ValidateResult{}, err
	}
	if problems == nil {
		problems = []string{}
	}
	return ValidateResult{Valid: len(problems) == 0, Errors: problems}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("flowgen://tools", "Tool Library",
		mcp.WithResourceDescription("Names of the tools that manifests can reference"),
		mcp.WithMIMEType("application/json"),
	), s.readTools)
}

func (s *Server) readTools(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	names := []string{}
	if s.library != nil {
		var err error
		if names, err = s.library.Names(ctx); err != nil {
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "flowgen://tools",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
