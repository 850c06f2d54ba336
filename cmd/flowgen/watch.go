package main

import (
	"context"

	"github.com/aretw0/flowgen/internal/cli"
	"github.com/aretw0/flowgen/pkg/naming"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <manifest>",
	Short: "Recompile a manifest whenever a tool document changes",
	Long: `Compiles the manifest, then watches the --tools directory and prints the
delta of each recompilation. With --name every change is saved to the store.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd)
		name, _ := cmd.Flags().GetString("name")

		env, err := cli.NewEnv(opts)
		exitOnError("Error initializing flowgen", err)

		w := &cli.Watcher{Env: env, ManifestPath: args[0], Out: cmd.OutOrStdout()}
		if name != "" {
			exitOnError("Invalid --name", naming.ValidateFlowName(name))
			pub, closeStore, err := cli.OpenPublisher(cmd.Context(), opts, env.Logger)
			exitOnError("Error opening store", err)
			defer closeStore()
			w.Publisher, w.Name = pub, name
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()
		exitOnError("Watch failed", cli.RunWatch(sigCtx, w))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("name", "", "Save every recompiled flow under this name")
	addStoreFlags(watchCmd)
}
