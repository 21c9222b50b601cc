package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/defistack/automate/storage"
)

var (
	vacuumDbPath string

	vacuumCmd = &cobra.Command{
		Use:   "vacuum",
		Short: "Reclaim disk space from the database value log",
		Long: `Run value log garbage collection on the BadgerDB directory.

Run it while the automator is stopped; the database is opened exclusively.
Use --db-path to specify the BadgerDB directory.`,
		Run: func(cmd *cobra.Command, args []string) {
			db, err := storage.NewWithPath(vacuumDbPath)
			if err != nil {
				fmt.Printf("Failed to open database: %v\n", err)
				os.Exit(1)
			}
			defer db.Close()

			if err := db.Vacuum(); err != nil {
				// badger reports nothing-to-collect as an error
				fmt.Printf("Vacuum finished: %v\n", err)
				return
			}
			fmt.Printf("Vacuum completed, value log space reclaimed\n")
		},
	}
)

func init() {
	vacuumCmd.Flags().StringVar(&vacuumDbPath, "db-path", "./data/badger", "Path to the BadgerDB directory")
	rootCmd.AddCommand(vacuumCmd)
}
