package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var continuousCmd = &cobra.Command{
	Use:       "continuous <on|off>",
	Short:     "toggle continuous transcription mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := sendCommand("continuous " + args[0])
		if err != nil {
			printError("speakd not running", err)
			return err
		}
		fmt.Println(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(continuousCmd)
}
