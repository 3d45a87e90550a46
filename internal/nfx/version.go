package nfx

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodeflow/nodeflow/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the nfx version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				fmt.Print(version.GetLongVersion())
				return
			}
			fmt.Println(version.GetShortVersion())
		},
	}

	cmd.Flags().BoolVar(&long, "long", false, "Print build details")
	return cmd
}
