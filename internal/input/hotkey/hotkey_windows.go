//go:build windows

package hotkey

import gohotkey "golang.design/x/hotkey"

var platformModifiers = map[string]gohotkey.Modifier{
	"alt":   gohotkey.ModAlt,
	"super": gohotkey.ModWin,
}
