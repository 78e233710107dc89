// Package hotkey registers global hotkeys. It is kept apart from package
// input because the underlying library needs a display as soon as it is
// loaded on Linux.
package hotkey

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gohotkey "golang.design/x/hotkey"

	"github.com/emmett/voxstream/internal/input"
)

// Manager manages global hotkey registration and events
type Manager struct {
	mu       sync.Mutex
	keys     []*gohotkey.Hotkey
	onAction func(input.Action)
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewManager creates a manager that reports presses to onAction
func NewManager(onAction func(input.Action)) *Manager {
	return &Manager{
		onAction: onAction,
	}
}

// Start registers every binding and begins listening. Bindings with an
// empty key string are skipped.
func (m *Manager) Start(ctx context.Context, bindings ...input.Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, m.cancel = context.WithCancel(ctx)

	for _, b := range bindings {
		if strings.TrimSpace(b.Keys) == "" {
			continue
		}
		mods, key, err := resolve(b.Keys)
		if err != nil {
			m.unregisterLocked()
			return fmt.Errorf("invalid %s hotkey: %w", b.Action, err)
		}

		hk := gohotkey.New(mods, key)
		if err := hk.Register(); err != nil {
			m.unregisterLocked()
			return fmt.Errorf("failed to register %s hotkey %q: %w", b.Action, b.Keys, err)
		}
		m.keys = append(m.keys, hk)

		m.wg.Add(1)
		go m.listen(ctx, hk, b.Action)
	}

	return nil
}

func (m *Manager) listen(ctx context.Context, hk *gohotkey.Hotkey, action input.Action) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-hk.Keydown():
			if !ok {
				return
			}
			if m.onAction != nil {
				m.onAction(action)
			}
		}
	}
}

// Stop stops listening for hotkey events
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unregisterLocked()
}

func (m *Manager) unregisterLocked() {
	if m.cancel != nil {
		m.cancel()
	}
	for _, hk := range m.keys {
		hk.Unregister()
	}
	m.keys = nil

	// Wait briefly for listeners to exit
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
	}
}

// resolve turns a hotkey string into the library's modifiers and key
func resolve(s string) ([]gohotkey.Modifier, gohotkey.Key, error) {
	chord, err := input.ParseChord(s)
	if err != nil {
		return nil, 0, err
	}

	mods := make([]gohotkey.Modifier, 0, len(chord.Modifiers))
	for _, name := range chord.Modifiers {
		mod, ok := modifierFor(name)
		if !ok {
			return nil, 0, fmt.Errorf("modifier %s is not available on this platform", name)
		}
		mods = append(mods, mod)
	}

	key, ok := keyCodes[chord.Key]
	if !ok {
		return nil, 0, fmt.Errorf("unknown key: %s", chord.Key)
	}
	return mods, key, nil
}

func modifierFor(name string) (gohotkey.Modifier, bool) {
	switch name {
	case "ctrl":
		return gohotkey.ModCtrl, true
	case "shift":
		return gohotkey.ModShift, true
	}
	mod, ok := platformModifiers[name]
	return mod, ok
}

var keyCodes = map[string]gohotkey.Key{
	"space": gohotkey.KeySpace, "return": gohotkey.KeyReturn,
	"tab": gohotkey.KeyTab, "escape": gohotkey.KeyEscape,
	"a": gohotkey.KeyA, "b": gohotkey.KeyB, "c": gohotkey.KeyC, "d": gohotkey.KeyD,
	"e": gohotkey.KeyE, "f": gohotkey.KeyF, "g": gohotkey.KeyG, "h": gohotkey.KeyH,
	"i": gohotkey.KeyI, "j": gohotkey.KeyJ, "k": gohotkey.KeyK, "l": gohotkey.KeyL,
	"m": gohotkey.KeyM, "n": gohotkey.KeyN, "o": gohotkey.KeyO, "p": gohotkey.KeyP,
	"q": gohotkey.KeyQ, "r": gohotkey.KeyR, "s": gohotkey.KeyS, "t": gohotkey.KeyT,
	"u": gohotkey.KeyU, "v": gohotkey.KeyV, "w": gohotkey.KeyW, "x": gohotkey.KeyX,
	"y": gohotkey.KeyY, "z": gohotkey.KeyZ,
	"0": gohotkey.Key0, "1": gohotkey.Key1, "2": gohotkey.Key2, "3": gohotkey.Key3,
	"4": gohotkey.Key4, "5": gohotkey.Key5, "6": gohotkey.Key6, "7": gohotkey.Key7,
	"8": gohotkey.Key8, "9": gohotkey.Key9,
	"f1": gohotkey.KeyF1, "f2": gohotkey.KeyF2, "f3": gohotkey.KeyF3, "f4": gohotkey.KeyF4,
	"f5": gohotkey.KeyF5, "f6": gohotkey.KeyF6, "f7": gohotkey.KeyF7, "f8": gohotkey.KeyF8,
	"f9": gohotkey.KeyF9, "f10": gohotkey.KeyF10, "f11": gohotkey.KeyF11, "f12": gohotkey.KeyF12,
}
