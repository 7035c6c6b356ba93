// Command speakd is the push-to-talk transcription daemon: it holds the
// microphone, a loaded Whisper model, and the global hotkeys, and is
// steered at runtime over its Unix control socket by its own subcommands
// or by speakdctl.
package main

import (
	"os"

	"github.com/msto63/speakd/cmd/speakd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
