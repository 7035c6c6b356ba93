package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var micWarmCmd = &cobra.Command{
	Use:       "mic-warm <on|off>",
	Short:     "toggle keeping the microphone open between recordings",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := sendCommand("mic-warm " + args[0])
		if err != nil {
			printError("speakd not running", err)
			return err
		}
		fmt.Println(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(micWarmCmd)
}
