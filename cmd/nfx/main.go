package main

import (
	"fmt"
	"os"

	"github.com/nodeflow/nodeflow/internal/nfx"
)

func main() {
	if err := nfx.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
