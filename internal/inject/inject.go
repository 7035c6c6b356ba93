// Package inject delivers transcribed text to the focused window, either by
// synthesizing keystrokes or by going through the clipboard and a paste
// keystroke.
package inject

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"github.com/atotto/clipboard"

	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
)

// Injector delivers text to whatever window currently has input focus.
type Injector interface {
	Inject(ctx context.Context, text string) error
	PressReturn(ctx context.Context) error
}

// TypeInjector emits synthetic keystrokes via xdotool, one run per call,
// pausing typeSpeed between characters.
type TypeInjector struct {
	TypeSpeedMs int
}

// NewTypeInjector returns a TypeInjector with the given inter-character
// delay, clamped to a minimum of 1ms.
func NewTypeInjector(typeSpeedMs int) *TypeInjector {
	if typeSpeedMs < 1 {
		typeSpeedMs = 1
	}
	return &TypeInjector{TypeSpeedMs: typeSpeedMs}
}

func (t *TypeInjector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	delay := t.TypeSpeedMs
	if delay < 1 {
		delay = 1
	}
	cmd := exec.CommandContext(ctx, "xdotool", "type", "--clearmodifiers",
		"--delay", strconv.Itoa(delay), text)
	if err := cmd.Run(); err != nil {
		return errs.Wrap(err, "inject text via xdotool type").WithCode(errkind.CodeInjectionFailed)
	}
	return nil
}

func (t *TypeInjector) PressReturn(ctx context.Context) error {
	return pressReturn(ctx)
}

// ClipboardInjector saves the current clipboard contents, sets the
// clipboard to the transcribed text, emits the platform paste chord, and
// restores the saved clipboard after a delay.
type ClipboardInjector struct {
	RestoreClipboard bool
	RestoreDelay     time.Duration
}

// NewClipboardInjector returns a ClipboardInjector with a 500ms restore
// delay.
func NewClipboardInjector(restoreClipboard bool) *ClipboardInjector {
	return &ClipboardInjector{RestoreClipboard: restoreClipboard, RestoreDelay: 500 * time.Millisecond}
}

func (c *ClipboardInjector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	var saved string
	var haveSaved bool
	if c.RestoreClipboard {
		if prev, err := clipboard.ReadAll(); err == nil {
			saved, haveSaved = prev, true
		}
	}

	if err := clipboard.WriteAll(text); err != nil {
		return errs.Wrap(err, "set clipboard").WithCode(errkind.CodeInjectionFailed)
	}

	if err := pasteChord(ctx); err != nil {
		return err
	}

	if haveSaved {
		delay := c.RestoreDelay
		if delay <= 0 {
			delay = 500 * time.Millisecond
		}
		go func() {
			time.Sleep(delay)
			_ = clipboard.WriteAll(saved)
		}()
	}

	return nil
}

func (c *ClipboardInjector) PressReturn(ctx context.Context) error {
	return pressReturn(ctx)
}

func pasteChord(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "xdotool", "key", "--clearmodifiers", "ctrl+shift+v")
	if err := cmd.Run(); err != nil {
		return errs.Wrap(err, "emit paste chord via xdotool key").WithCode(errkind.CodeInjectionFailed)
	}
	return nil
}

func pressReturn(ctx context.Context) error {
	time.Sleep(50 * time.Millisecond)
	cmd := exec.CommandContext(ctx, "xdotool", "key", "Return")
	if err := cmd.Run(); err != nil {
		return errs.Wrap(err, "press return via xdotool key").WithCode(errkind.CodeInjectionFailed)
	}
	return nil
}

