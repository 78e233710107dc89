package input

import (
	"fmt"
	"strings"
)

// Action is what a key press or input line asks for
type Action int

const (
	// ActionToggle starts a recording, or stops it if one is running
	ActionToggle Action = iota
	// ActionCancel discards the current recording
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Binding ties a hotkey string such as "ctrl+shift+space" to an action
type Binding struct {
	Action Action
	Keys   string
}

// Chord is a parsed hotkey: canonical modifier names and one key name.
// Modifiers are ctrl, shift, alt and super; keys are lower case.
type Chord struct {
	Modifiers []string
	Key       string
}

var modifierAliases = map[string]string{
	"ctrl": "ctrl", "control": "ctrl",
	"shift": "shift",
	"alt":   "alt", "option": "alt",
	"super": "super", "cmd": "super", "command": "super", "win": "super",
}

var keyAliases = map[string]string{
	"enter": "return",
	"esc":   "escape",
}

// ParseChord parses a hotkey string like "ctrl+shift+space"
func ParseChord(s string) (Chord, error) {
	if strings.TrimSpace(s) == "" {
		return Chord{}, fmt.Errorf("empty hotkey string")
	}

	var c Chord
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		if mod, ok := modifierAliases[part]; ok {
			c.Modifiers = append(c.Modifiers, mod)
			continue
		}
		if c.Key != "" {
			return Chord{}, fmt.Errorf("multiple keys specified")
		}
		if alias, ok := keyAliases[part]; ok {
			part = alias
		}
		if !isKeyName(part) {
			return Chord{}, fmt.Errorf("unknown key: %s", part)
		}
		c.Key = part
	}

	if c.Key == "" {
		return Chord{}, fmt.Errorf("no key specified")
	}
	return c, nil
}

// isKeyName reports whether name is a letter, digit, F1-F12 or one of the
// named keys
func isKeyName(name string) bool {
	switch name {
	case "space", "return", "tab", "escape":
		return true
	}
	if len(name) == 1 {
		ch := name[0]
		return (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9')
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && fmt.Sprintf("f%d", n) == name {
		return n >= 1 && n <= 12
	}
	return false
}
