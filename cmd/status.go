package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/defistack/automate/core/queue"
	"github.com/defistack/automate/storage"
	"github.com/defistack/automate/storage/schema"
)

var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Display system status",
		Long:  `Display status information about queued tasks in the database`,
		Run: func(cmd *cobra.Command, args []string) {
			dbPath := "./data/badger"
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "System Status Report\n")
			fmt.Fprintf(out, "====================\n\n")
			fmt.Fprintf(out, "Using database path: %s\n\n", dbPath)

			db, err := storage.NewWithPath(dbPath)
			if err != nil {
				fmt.Fprintf(out, "Failed to initialize database: %v\n", err)
				fmt.Fprintf(out, "Make sure the automator has been started at least once\n")
				os.Exit(1)
			}
			defer db.Close()

			fmt.Fprintf(out, "Task Queue:\n")
			statuses := []struct {
				label  string
				prefix string
			}{
				{"pending", schema.TaskPending},
				{"running", schema.TaskRunning},
				{"done", schema.TaskDone},
				{"error", schema.TaskError},
			}
			for _, s := range statuses {
				count, err := db.CountKeysByPrefix(schema.TaskQueuePrefix(s.prefix))
				if err != nil {
					fmt.Fprintf(out, "Failed to query %s tasks: %v\n", s.label, err)
					os.Exit(1)
				}
				fmt.Fprintf(out, "   %-8s %d\n", s.label, count)
			}

			next, err := queue.New(db, nil).NextDue()
			if err != nil {
				fmt.Fprintf(out, "Failed to peek next pending task: %v\n", err)
				os.Exit(1)
			}
			if next != nil {
				fmt.Fprintf(out, "\nNext due: %s at %s (task %s)\n",
					next.Handler, next.StartAt.Format(time.RFC3339), next.ID)
			}
		},
	}
)

func init() {
	rootCmd.AddCommand(statusCmd)
}
