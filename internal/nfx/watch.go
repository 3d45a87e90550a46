package nfx

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodeflow/nodeflow/internal/nodeflow/status"
	"github.com/nodeflow/nodeflow/pkg/config"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <task-id>",
		Short: "Stream status updates for a task until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, node, err := newClient()
			if err != nil {
				return err
			}
			return watchTask(client, node, args[0])
		},
	}
}

func watchTask(client *apiClient, node *config.Node, taskID string) error {
	return client.watch(node, taskID, func(state status.State, info status.Info) {
		switch {
		case state == status.StateFailure:
			fmt.Printf("%s  %s: %s\n", state, info.Kind, info.Message)
		case info.NodeID != "":
			fmt.Printf("%s  %3.0f%%  %s/%s\n", state, info.Percent, info.Stage, info.NodeID)
		default:
			fmt.Printf("%s  %3.0f%%  %s\n", state, info.Percent, info.Stage)
		}
	})
}
