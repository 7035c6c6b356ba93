package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "stop the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := sendCommand("stop")
		if err != nil {
			printError("speakd not running", err)
			return err
		}
		fmt.Println(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
