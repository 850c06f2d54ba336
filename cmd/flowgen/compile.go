package main

import (
	"github.com/aretw0/flowgen"
	"github.com/aretw0/flowgen/internal/cli"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile [manifest]",
	Short: "Compile a client manifest into a flow definition",
	Long: `Resolves the tools of a client manifest, merges their flows and prints the
resulting flow definition as JSON. Reads stdin when no file is given.

With --name the flow is also saved to the flow store (--store or --redis).`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := optionsFromFlags(cmd)
		output, _ := cmd.Flags().GetString("output")
		name, _ := cmd.Flags().GetString("name")
		fieldSpecs, _ := cmd.Flags().GetStringSlice("field-type")

		fields, err := cli.ParseFieldTypes(fieldSpecs)
		exitOnError("Invalid --field-type", err)

		env, err := cli.NewEnv(opts, flowgen.WithFieldTypes(fields))
		exitOnError("Error initializing flowgen", err)

		res, err := compileArg(cmd, env, args)
		exitOnError("Compilation failed", err)

		data, err := flowgen.Marshal(res.Flow)
		exitOnError("Encoding failed", err)
		exitOnError("Write failed", cli.WriteOutput(output, cmd.OutOrStdout(), data))

		if name == "" {
			return
		}
		pub, closeStore, err := cli.OpenPublisher(cmd.Context(), opts, env.Logger)
		exitOnError("Error opening store", err)
		defer closeStore()
		diff, err := pub.Publish(cmd.Context(), name, res.Flow)
		exitOnError("Save failed", err)
		env.Logger.Info("Flow saved", "name", name, "changed", diff != nil)
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("output", "o", "", "Write the flow to this file instead of stdout")
	compileCmd.Flags().String("name", "", "Save the compiled flow under this name")
	compileCmd.Flags().StringSlice("field-type", nil, "Extra state field type check, as Name:type (repeatable)")
	addStoreFlags(compileCmd)
}
