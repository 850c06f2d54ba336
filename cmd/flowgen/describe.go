package main

import (
	"fmt"

	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/internal/cli"
	"github.com/aretw0/flowgen/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe [document]",
	Short: "Render a readable summary of the compiled flow",
	Long: `Compiles a manifest and renders a table of its states in execution order,
with the tool and function each one came from and its original name.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		style, _ := cmd.Flags().GetString("style")
		raw, _ := cmd.Flags().GetBool("raw")

		env, err := cli.NewEnv(optionsFromFlags(cmd))
		exitOnError("Error initializing flowgen", err)

		res, err := compileArg(cmd, env, args)
		exitOnError("Compilation failed", err)

		name := res.Flow.Comment
		if name == "" {
			name = "Flow"
		}
		md := tui.Describe(name, res.Flow, res.Origins)

		out := cmd.OutOrStdout()
		if raw {
			fmt.Fprint(out, md)
			return
		}
		render, err := tui.NewRenderer(tui.StyleFor(out, style))
		exitOnError("Error creating renderer", err)
		rendered, err := render(md)
		exitOnError("Render failed", err)

		tui.PrintBanner(out, flowgen.Version)
		fmt.Fprint(out, rendered)
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().String("style", "", "Glamour style such as 'dark', 'light' or 'notty' (detected when empty)")
	describeCmd.Flags().Bool("raw", false, "Print the Markdown source without rendering")
}
