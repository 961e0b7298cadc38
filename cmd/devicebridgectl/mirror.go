package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Start or stop a device's scrcpy mirror session",
}

var mirrorStartCmd = &cobra.Command{
	Use:   "start <device-id>",
	Short: "Start mirroring a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := post("/api/streaming/"+args[0]+"/start", nil, nil); err != nil {
			return err
		}
		fmt.Printf("mirroring started for %s\n", args[0])
		return nil
	},
}

var mirrorStopCmd = &cobra.Command{
	Use:   "stop <device-id>",
	Short: "Stop mirroring a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := post("/api/streaming/"+args[0]+"/stop", nil, nil); err != nil {
			return err
		}
		fmt.Printf("mirroring stopped for %s\n", args[0])
		return nil
	},
}

func init() {
	mirrorCmd.AddCommand(mirrorStartCmd, mirrorStopCmd)
	rootCmd.AddCommand(mirrorCmd)
}
