package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/defistack/automate/automator"
)

var (
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the automation worker",
		Long: `Initialize and run the automation worker.

Use --config=path-to-your-config-file. default is=./config/automator.yaml `,
		Run: func(cmd *cobra.Command, args []string) {
			if err := automator.RunWithConfig(config); err != nil {
				fmt.Fprintf(os.Stderr, "automator exited: %v\n", err)
				os.Exit(1)
			}
		},
	}
)

func init() {
	runCmd.Flags().StringVar(&config, "config", "./config/automator.yaml", "path to automator config file")
	rootCmd.AddCommand(runCmd)
}
