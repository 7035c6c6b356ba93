// Package cmd implements speakdctl, the command-line client for an
// already-running speakd daemon's control socket.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msto63/speakd/internal/config"
	"github.com/msto63/speakd/internal/control"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:   "speakdctl",
	Short: "control client for the speakd push-to-talk daemon",
	Long: `speakdctl talks to a running speakd daemon over its Unix control
socket.

Commands:
  status       query running instance
  stop         stop running instance
  models       list local models
  model        switch model
  continuous   toggle continuous transcription mode
  mic-warm     toggle keeping the microphone open between recordings
  reload       rescan models and reload settings`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "control socket path (default: from config, or $XDG_RUNTIME_DIR/speakd.sock)")
}

func resolveSocketPath() string {
	if socketPath != "" {
		return socketPath
	}
	if cfg, err := config.LoadFromEnv(); err == nil && cfg.Control.SocketPath != "" {
		return cfg.Control.SocketPath
	}
	return control.DefaultSocketPath()
}

// sendCommand returns the daemon's response. A response starting with
// "error: " is printed to stderr and the process exits with status 1.
func sendCommand(cmd string) (string, error) {
	response, err := control.NewClient(resolveSocketPath()).Send(cmd)
	if err == nil && strings.HasPrefix(response, "error: ") {
		fmt.Fprintln(os.Stderr, response)
		os.Exit(1)
	}
	return response, err
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
}
