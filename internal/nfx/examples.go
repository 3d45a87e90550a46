package nfx

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples [name]",
		Short: "List the server's example graphs, or print one as JSON",
		Long:  "Without arguments, lists the example graphs built into the server. With a name, prints that example's graph, ready to save and submit.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient()
			if err != nil {
				return err
			}

			raw, err := client.examples()
			if err != nil {
				return err
			}

			type example struct {
				Name        string          `json:"name"`
				Description string          `json:"description"`
				Graph       json.RawMessage `json:"graph"`
			}
			examples := make([]example, 0, len(raw))
			for _, r := range raw {
				var ex example
				if err := json.Unmarshal(r, &ex); err != nil {
					return fmt.Errorf("decoding example: %w", err)
				}
				examples = append(examples, ex)
			}

			if len(args) == 0 {
				for _, ex := range examples {
					fmt.Printf("%-16s %s\n", ex.Name, ex.Description)
				}
				return nil
			}

			for _, ex := range examples {
				if ex.Name == args[0] {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(ex.Graph)
				}
			}
			return fmt.Errorf("no example named %q", args[0])
		},
	}
}
