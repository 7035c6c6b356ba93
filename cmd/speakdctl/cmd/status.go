package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "query the running daemon's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := sendCommand("status")
		if err != nil {
			printError("speakd not running", err)
			return err
		}
		fmt.Println(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
