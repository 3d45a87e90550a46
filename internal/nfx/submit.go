package nfx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newSubmitCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <graph-file>",
		Short: "Submit a node graph for execution",
		Long:  "Submits a graph file (JSON, or YAML with a .yml/.yaml extension) and prints the task id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := loadGraphFile(args[0])
			if err != nil {
				return err
			}

			client, node, err := newClient()
			if err != nil {
				return err
			}

			taskID, err := client.submit(raw)
			if err != nil {
				return err
			}
			fmt.Println(taskID)

			if watch {
				return watchTask(client, node, taskID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stream status updates until the task finishes")
	return cmd
}

// loadGraphFile reads a graph submission, converting YAML to JSON when the
// extension asks for it.
func loadGraphFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(path) {
	case ".yml", ".yaml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return json.Marshal(doc)
	default:
		return raw, nil
	}
}
