package main

import (
	"fmt"

	"github.com/aretw0/flowgen/internal/cli"
	"github.com/aretw0/flowgen/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [document]",
	Short: "Export the compiled flow as a Mermaid diagram",
	Long: `Compiles a manifest (or reads a flow definition) and outputs a Mermaid
diagram (graph TD) of its Next chain. Renamed states are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		highlight, _ := cmd.Flags().GetString("highlight")

		env, err := cli.NewEnv(optionsFromFlags(cmd))
		exitOnError("Error initializing flowgen", err)

		res, err := compileArg(cmd, env, args)
		exitOnError("Compilation failed", err)

		overlay := &graph.Overlay{
			Renamed: graph.RenamedStates(res.Flow, res.Origins),
			Current: highlight,
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(res.Flow, res.Origins, overlay))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("highlight", "", "State to emphasize in the diagram")
}
