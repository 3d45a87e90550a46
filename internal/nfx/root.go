// Package nfx implements the nodeflow command line client: graph
// submission, status polling and live status streaming over WebSocket.
package nfx

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nodeflow/nodeflow/pkg/config"
)

var (
	nodeConfig *config.ClientConfig
	configPath string
	nodeName   string
)

var rootCmd = &cobra.Command{
	Use:   "nfx",
	Short: "nfx - nodeflow client",
	Long:  "nfx submits node graphs to a nodeflow server, polls task status and streams live updates.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		nodeConfig, err = config.LoadClientConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to client configuration file (searches common locations if not specified)")
	rootCmd.PersistentFlags().StringVar(&nodeName, "node", "default",
		"Node name from configuration file")

	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newCancelCmd())
	rootCmd.AddCommand(newExamplesCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// newClient resolves the configured node into an API client.
func newClient() (*apiClient, *config.Node, error) {
	node, err := nodeConfig.GetNode(nodeName)
	if err != nil {
		return nil, nil, err
	}
	return newAPIClient(node), node, nil
}
