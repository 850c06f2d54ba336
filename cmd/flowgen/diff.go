package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/flowgen/internal/cli"
	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Show how two flows differ",
	Long: `Compiles both documents (manifests or flow definitions) and prints the
added, removed and changed states as JSON. Prints nothing when they match.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		env, err := cli.NewEnv(optionsFromFlags(cmd))
		exitOnError("Error initializing flowgen", err)

		oldRes, err := compileArg(cmd, env, args[:1])
		exitOnError("Compilation of "+args[0]+" failed", err)
		newRes, err := compileArg(cmd, env, args[1:])
		exitOnError("Compilation of "+args[1]+" failed", err)

		diff := domain.Diff(oldRes.Flow, newRes.Flow)
		if diff == nil {
			return
		}
		data, err := json.MarshalIndent(diff, "", "  ")
		exitOnError("Encoding failed", err)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
