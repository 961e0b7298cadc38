// Command devicebridgectl is a small debug CLI that talks to devicebridged's
// Gin HTTP API, in the style of k-kohey-axe-cli/cmd/axe's root+subcommand
// layout (one file per subcommand, each registering itself in init()).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serverAddr string

var rootCmd = &cobra.Command{
	Use:   "devicebridgectl",
	Short: "Debug CLI for the devicebridge engine's HTTP API",
	Long:  "devicebridgectl talks to a running devicebridged instance over its Gin HTTP API: listing devices, scanning, and starting/stopping mirror and logcat sessions.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8080", "devicebridged HTTP address")
}
