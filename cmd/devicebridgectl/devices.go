package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"devicebridge/models"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the engine's last known devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		var devices []models.Device
		if err := get("/api/devices", &devices); err != nil {
			return err
		}
		printDevices(devices)
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Force an immediate device scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		var devices []models.Device
		if err := post("/api/devices/scan", nil, &devices); err != nil {
			return err
		}
		printDevices(devices)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(scanCmd)
}

// printDevices renders a column-aligned table when stdout is a terminal,
// or a plain tab-separated stream otherwise (so scripts piping the output
// don't have to deal with padding), checked via term.IsTerminal the way
// SPEC_FULL.md's devicebridgectl section specifies.
func printDevices(devices []models.Device) {
	if len(devices) == 0 {
		fmt.Println("No devices found.")
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println("DEVICE ID\tSTATUS\tMODEL\tPRODUCT\tLAST SEEN")
		for _, d := range devices {
			fmt.Printf("%s\t%s\t%s\t%s\t%d\n", d.ID, d.Status, d.Model, d.Product, d.LastSeen)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE ID\tSTATUS\tMODEL\tPRODUCT\tLAST SEEN")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", d.ID, d.Status, d.Model, d.Product, d.LastSeen)
	}
	w.Flush()
}
