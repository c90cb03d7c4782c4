// Command punkctl is a thin CLI client for the Punks marketplace server,
// talking JSON over HTTP to PUNKSERVER_URL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{Use: "punkctl", Short: "Punks marketplace CLI"}
	root.AddCommand(listCmd(), buyCmd(), cancelCmd(), statusCmd(), supplyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
