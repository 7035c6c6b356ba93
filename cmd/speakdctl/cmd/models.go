package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "list locally discovered models",
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := sendCommand("models")
		if err != nil {
			printError("speakd not running", err)
			return err
		}
		fmt.Print(response)
		return nil
	},
}

var modelCmd = &cobra.Command{
	Use:   "model <name>",
	Short: "switch the loaded model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		response, err := sendCommand("model " + args[0])
		if err != nil {
			printError("speakd not running", err)
			return err
		}
		fmt.Println(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(modelCmd)
}
