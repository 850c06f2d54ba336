package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flowgen",
	Short: "flowgen compiles tool flows into a single flow definition",
	Long: `flowgen merges the per-tool flows of a client manifest into one linear
state-machine document, renaming colliding states and applying modifiers.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: 'text' or 'json'")
	rootCmd.PersistentFlags().String("tools", "", "Directory of tool documents used to resolve references")
}

// optionsFromFlags collects the settings shared by every command.
func optionsFromFlags(cmd *cobra.Command) cli.Options {
	debug, _ := cmd.Flags().GetBool("debug")
	format, _ := cmd.Flags().GetString("log-format")
	tools, _ := cmd.Flags().GetString("tools")
	opts := cli.Options{Debug: debug, LogFormat: format, ToolsPath: tools}

	if f := cmd.Flags().Lookup("store"); f != nil {
		opts.StoreDir = f.Value.String()
	}
	if f := cmd.Flags().Lookup("redis"); f != nil {
		opts.RedisAddr = f.Value.String()
	}
	if db, err := cmd.Flags().GetInt("redis-db"); err == nil {
		opts.RedisDB = db
	}
	if redact, err := cmd.Flags().GetStringSlice("redact"); err == nil {
		opts.Redact = redact
	}
	opts.StoreKey = os.Getenv("FLOWGEN_STORE_KEY")
	return opts
}

// addStoreFlags registers the flow store flags on cmd.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "", "Directory where compiled flows are saved")
	cmd.Flags().String("redis", "", "Redis address where compiled flows are saved (overrides --store)")
	cmd.Flags().Int("redis-db", 0, "Redis database number")
	cmd.Flags().StringSlice("redact", nil, "Key pattern whose values are masked in stored flows (repeatable)")
}

// compileArg reads and compiles the document named by the first argument,
// or stdin when there is none.
func compileArg(cmd *cobra.Command, env *cli.Env, args []string) (*flowgen.Result, error) {
	path := "-"
	if len(args) > 0 {
		path = args[0]
	}
	data, err := cli.ReadInput(path, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return env.Generator.CompileDocument(cmd.Context(), data)
}

// exitOnError prints a failure and exits with status 1.
func exitOnError(what string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
		os.Exit(1)
	}
}
