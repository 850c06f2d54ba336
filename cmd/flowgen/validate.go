package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/internal/cli"
	"github.com/aretw0/flowgen/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [document]",
	Short: "Check a flow for consistency",
	Long: `Compiles a manifest (or reads a flow definition) and reports schema
violations, dangling Next links, cycles and unreachable states.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		problems, err := runValidate(cmd, args)
		exitOnError("Validation failed", err)
		if len(problems) > 0 {
			fmt.Fprintf(os.Stderr, "Validation failed: found %d errors:\n", len(problems))
			for _, p := range problems {
				fmt.Fprintf(os.Stderr, "- %s\n", p)
			}
			os.Exit(1)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Flow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) ([]string, error) {
	env, err := cli.NewEnv(optionsFromFlags(cmd))
	if err != nil {
		return nil, err
	}
	res, err := compileArg(cmd, env, args)
	if err != nil {
		return nil, err
	}
	// The schema applies to the JSON form, whatever the input format was.
	data, err := flowgen.Marshal(res.Flow)
	if err != nil {
		return nil, err
	}
	return validator.CheckDocument(data)
}
