package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "rescan the models directory and reload settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := sendCommand("reload")
		if err != nil {
			printError("speakd not running", err)
			return err
		}
		fmt.Println(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}
