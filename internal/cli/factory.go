package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/internal/adapters/file"
	"github.com/aretw0/flowgen/internal/adapters/redis"
	"github.com/aretw0/flowgen/internal/logging"
	"github.com/aretw0/flowgen/pkg/adapters/memory"
	"github.com/aretw0/flowgen/pkg/observability"
	"github.com/aretw0/flowgen/pkg/persistence/middleware"
	"github.com/aretw0/flowgen/pkg/ports"
	"github.com/aretw0/flowgen/pkg/publish"
	"github.com/aretw0/flowgen/pkg/schema"
)

// Options holds the settings shared by every command.
type Options struct {
	Debug     bool
	LogFormat string
	ToolsPath string
	StoreDir  string
	RedisAddr string
	RedisDB   int

	// Redact lists key patterns masked in stored flows.
	Redact []string
	// StoreKey, when set, is the base64 AES-256 key encrypting stored flows.
	StoreKey string

	// Metrics, when set, receives compile events.
	Metrics *observability.Metrics
}

// Env is what a command needs to run: a configured generator,
// its logger and, when a tools directory was given, the library.
type Env struct {
	Generator *flowgen.Generator
	Logger    *slog.Logger
	Library   ports.ToolLibrary
}

// createLogger configures the application logger.
// Logs always go to Stderr so Stdout carries only documents.
func createLogger(opts Options) *slog.Logger {
	format := logging.FormatText
	if opts.LogFormat == string(logging.FormatJSON) {
		format = logging.FormatJSON
	}
	level := slog.LevelWarn
	if opts.Debug {
		level = slog.LevelDebug
	}
	return logging.NewWithOptions(logging.Options{
		Level:  level,
		Format: format,
		Output: os.Stderr,
	})
}

// NewEnv builds the generator with standard CLI conventions.
// Extra options (e.g. metrics hooks) are applied last.
func NewEnv(opts Options, extra ...flowgen.Option) (*Env, error) {
	logger := createLogger(opts)

	genOpts := []flowgen.Option{flowgen.WithLogger(logger)}
	switch {
	case opts.Debug && opts.Metrics != nil:
		genOpts = append(genOpts, flowgen.WithHooks(observability.LoggingHooks(logger).Merge(opts.Metrics.Hooks())))
	case opts.Debug:
		genOpts = append(genOpts, flowgen.WithHooks(observability.LoggingHooks(logger)))
	case opts.Metrics != nil:
		genOpts = append(genOpts, flowgen.WithHooks(opts.Metrics.Hooks()))
	}

	env := &Env{Logger: logger}
	if opts.ToolsPath != "" {
		lib, err := flowgen.OpenLibrary(opts.ToolsPath)
		if err != nil {
			return nil, fmt.Errorf("error opening tool library: %w", err)
		}
		env.Library = lib
		genOpts = append(genOpts, flowgen.WithLibrary(lib))
	}

	env.Generator = flowgen.New(append(genOpts, extra...)...)
	return env, nil
}

// storeBackend is an opened flow store before middleware is layered on.
type storeBackend struct {
	store  ports.FlowStore
	locker ports.DistributedLocker
	close  func() error
}

// OpenStore picks the flow store: Redis when an address is set, a directory
// when StoreDir is set, and process memory otherwise. Redaction and
// encryption are layered on top when configured.
// The returned close function is never nil.
func OpenStore(ctx context.Context, opts Options) (ports.FlowStore, func() error, error) {
	b, err := openBackend(ctx, opts)
	if err != nil {
		return nil, noop, err
	}
	store, err := withMiddleware(b.store, opts)
	if err != nil {
		_ = b.close()
		return nil, noop, err
	}
	return store, b.close, nil
}

// OpenPublisher opens the flow store behind a publish.Manager. Redis
// stores also lock flow names across replicas.
func OpenPublisher(ctx context.Context, opts Options, logger *slog.Logger) (*publish.Manager, func() error, error) {
	b, err := openBackend(ctx, opts)
	if err != nil {
		return nil, noop, err
	}
	store, err := withMiddleware(b.store, opts)
	if err != nil {
		_ = b.close()
		return nil, noop, err
	}
	pubOpts := []publish.Option{publish.WithLogger(logger)}
	if b.locker != nil {
		pubOpts = append(pubOpts, publish.WithLocker(b.locker))
	}
	return publish.NewManager(store, pubOpts...), b.close, nil
}

func noop() error { return nil }

func openBackend(ctx context.Context, opts Options) (*storeBackend, error) {
	switch {
	case opts.RedisAddr != "":
		store := redis.New(opts.RedisAddr, os.Getenv("FLOWGEN_REDIS_PASSWORD"), opts.RedisDB)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis unreachable at %s: %w", opts.RedisAddr, err)
		}
		return &storeBackend{store: store, locker: store.Locker(), close: store.Close}, nil
	case opts.StoreDir != "":
		return &storeBackend{store: file.New(opts.StoreDir), close: noop}, nil
	default:
		return &storeBackend{store: memory.NewStore(), close: noop}, nil
	}
}

func withMiddleware(store ports.FlowStore, opts Options) (ports.FlowStore, error) {
	var mws []middleware.Middleware
	if len(opts.Redact) > 0 {
		mw, err := middleware.NewRedactMiddleware(opts.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if opts.StoreKey != "" {
		key, err := base64.StdEncoding.DecodeString(opts.StoreKey)
		if err != nil {
			return nil, fmt.Errorf("invalid store key: %w", err)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, fmt.Errorf("invalid store key: %w", err)
		}
		mws = append(mws, mw)
	}
	return middleware.Wrap(store, mws...), nil
}

// ParseFieldTypes turns "Name:type" flag values into a schema.
func ParseFieldTypes(specs []string) (schema.Schema, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	types := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, typ, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid field type %q, expected Name:type", spec)
		}
		types[name] = typ
	}
	return schema.ParseTypeMap(types)
}
