// Package cmd implements speakd's command tree: "run" launches the
// push-to-talk transcription daemon; every other subcommand is a thin
// client that talks to an already-running daemon over its Unix control
// socket, the same way speakdctl does.
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
	Use:   "speakd",
	Short: "push-to-talk transcription daemon",
	Long: `speakd holds the microphone, a loaded Whisper model, and the global
hotkeys, and is steered at runtime over its Unix control socket.

Commands:
  run          launch the daemon
  devices      list input devices
  status       query running instance
  stop         stop running instance
  models       list local models
  model        switch model
  continuous   toggle continuous transcription mode
  mic-warm     toggle keeping the microphone open between recordings
  reload       rescan models and reload settings`,
}

// Execute runs the command tree; main calls this and exits non-zero on error.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "",
		"control socket path (default: from config, or $XDG_RUNTIME_DIR/speakd.sock)")
}

// resolveSocketPath applies the same precedence "run" uses to bind its
// control server: an explicit --socket flag, then the process config, then
// the package default.
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
