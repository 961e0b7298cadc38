package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logcatCmd = &cobra.Command{
	Use:   "logcat",
	Short: "Start or stop a device's logcat stream",
}

var logcatStartCmd = &cobra.Command{
	Use:   "start <device-id>",
	Short: "Start streaming logcat for a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := post("/api/logcat/"+args[0]+"/start", nil, nil); err != nil {
			return err
		}
		fmt.Printf("logcat started for %s\n", args[0])
		return nil
	},
}

var logcatStopCmd = &cobra.Command{
	Use:   "stop <device-id>",
	Short: "Stop streaming logcat for a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := post("/api/logcat/"+args[0]+"/stop", nil, nil); err != nil {
			return err
		}
		fmt.Printf("logcat stopped for %s\n", args[0])
		return nil
	},
}

func init() {
	logcatCmd.AddCommand(logcatStartCmd, logcatStopCmd)
	rootCmd.AddCommand(logcatCmd)
}
