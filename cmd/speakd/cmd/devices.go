package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/speakd/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "list input devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := audio.ListInputDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "[speakd] %v\n", err)
			return err
		}
		for _, d := range devices {
			marker := " "
			if d.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %-40s %.0f Hz, %d channels\n", marker, d.Name, d.DefaultSampleRate, d.MaxInputChannels)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
