package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/flowgen/internal/cli"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available in the --tools directory",
	Run: func(cmd *cobra.Command, args []string) {
		env, err := cli.NewEnv(optionsFromFlags(cmd))
		exitOnError("Error initializing flowgen", err)
		if env.Library == nil {
			exitOnError("Listing tools failed", errors.New("no --tools directory given"))
		}

		names, err := env.Library.Names(cmd.Context())
		exitOnError("Listing tools failed", err)
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
