// Package hotkey wraps a global hotkey library into the press/release
// callback shape the pipeline expects: a primary key that starts/stops
// recording and a send key that also requests an automatic Return press.
package hotkey

import (
	"context"
	"sync"

	"golang.design/x/hotkey"

	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
)

// OnKeyDown is invoked when either hotkey transitions from up to down.
// isSend reports whether the key that triggered it was the send key.
type OnKeyDown func(isSend bool)

// OnKeyUp is invoked on release. isSend reflects whichever key was down at
// the most recent key-down, even if both keys happen to be held.
type OnKeyUp func(isSend bool)

// Hook registers a primary and a send global hotkey and dedups autorepeat:
// a key-down while already down never re-fires OnKeyDown.
type Hook struct {
	OnKeyDown OnKeyDown
	OnKeyUp   OnKeyUp

	primary *hotkey.Hotkey
	send    *hotkey.Hotkey

	mu           sync.Mutex
	keyDown      bool
	activeIsSend bool

	cancel context.CancelFunc
}

// New builds a Hook for the given X keysym values, translated to the
// nearest portable key constant. It does not register the hotkeys yet.
func New(primaryKeysym, sendKeysym uint32) (*Hook, error) {
	primaryKey, ok := keyFromKeysym(primaryKeysym)
	if !ok {
		return nil, errs.New("unsupported primary hotkey keysym").
			WithCode(errkind.CodeHotkeyPermissionDenied).
			WithDetail("keysym", primaryKeysym)
	}

	h := &Hook{primary: hotkey.New(nil, primaryKey)}

	if sendKeysym != 0 {
		sendKey, ok := keyFromKeysym(sendKeysym)
		if !ok {
			return nil, errs.New("unsupported send hotkey keysym").
				WithCode(errkind.CodeHotkeyPermissionDenied).
				WithDetail("keysym", sendKeysym)
		}
		h.send = hotkey.New(nil, sendKey)
	}

	return h, nil
}

// Start registers both hotkeys with the OS and begins delivering events to
// OnKeyDown/OnKeyUp until Stop is called.
func (h *Hook) Start() error {
	if err := h.primary.Register(); err != nil {
		return errs.Wrap(err, "register primary hotkey").WithCode(errkind.CodeHotkeyPermissionDenied)
	}
	if h.send != nil {
		if err := h.send.Register(); err != nil {
			_ = h.primary.Unregister()
			return errs.Wrap(err, "register send hotkey").WithCode(errkind.CodeHotkeyPermissionDenied)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	go h.watch(ctx, h.primary.Keydown(), h.primary.Keyup(), false)
	if h.send != nil {
		go h.watch(ctx, h.send.Keydown(), h.send.Keyup(), true)
	}

	return nil
}

// Stop unregisters both hotkeys and stops delivering events.
func (h *Hook) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	_ = h.primary.Unregister()
	if h.send != nil {
		_ = h.send.Unregister()
	}
	h.mu.Lock()
	h.keyDown = false
	h.mu.Unlock()
}

func (h *Hook) watch(ctx context.Context, down, up <-chan hotkey.Event, isSend bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-down:
			h.handleDown(isSend)
		case <-up:
			h.handleUp()
		}
	}
}

func (h *Hook) handleDown(isSend bool) {
	h.mu.Lock()
	if h.keyDown {
		h.mu.Unlock()
		return
	}
	h.keyDown = true
	h.activeIsSend = isSend
	h.mu.Unlock()

	if h.OnKeyDown != nil {
		h.OnKeyDown(isSend)
	}
}

func (h *Hook) handleUp() {
	h.mu.Lock()
	wasSend := h.activeIsSend
	h.keyDown = false
	h.mu.Unlock()

	if h.OnKeyUp != nil {
		h.OnKeyUp(wasSend)
	}
}

// keysymKeys maps the X11 keysyms speakd defaults to (function keys F1-F12)
// to golang.design/x/hotkey's portable key constants.
var keysymKeys = map[uint32]hotkey.Key{
	0xFFBE: hotkey.KeyF1,
	0xFFBF: hotkey.KeyF2,
	0xFFC0: hotkey.KeyF3,
	0xFFC1: hotkey.KeyF4,
	0xFFC2: hotkey.KeyF5,
	0xFFC3: hotkey.KeyF6,
	0xFFC4: hotkey.KeyF7,
	0xFFC5: hotkey.KeyF8,
	0xFFC6: hotkey.KeyF9,
	0xFFC7: hotkey.KeyF10,
	0xFFC8: hotkey.KeyF11,
	0xFFC9: hotkey.KeyF12,
}

func keyFromKeysym(keysym uint32) (hotkey.Key, bool) {
	key, ok := keysymKeys[keysym]
	return key, ok
}
