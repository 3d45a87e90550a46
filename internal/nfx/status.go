package nfx

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the latest status of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}

			msg, err := client.taskStatus(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(msg)
			}

			fmt.Printf("Task:  %s\n", msg.TaskID)
			fmt.Printf("State: %s\n", msg.State)
			if msg.Info.Stage != "" {
				fmt.Printf("Stage: %s", msg.Info.Stage)
				if msg.Info.NodeID != "" {
					fmt.Printf(" (node %s)", msg.Info.NodeID)
				}
				fmt.Println()
			}
			if msg.Info.Percent > 0 {
				fmt.Printf("Done:  %.0f%%\n", msg.Info.Percent)
			}
			if msg.Info.Kind != "" {
				fmt.Printf("Error: %s: %s\n", msg.Info.Kind, msg.Info.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status message")
	return cmd
}
