package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var (
	config  = "./config/automator.yaml"
	rootCmd = &cobra.Command{
		Use:   "automate",
		Short: "DeFi automation worker CLI",
		Long: `CLI to run and interact with the automation worker.
Each sub command can be use for a single service

Such as "automate run" or "automate backup" and so on
`,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&config, "config", "c", "config/automator.yaml", "Path to config file")
}
