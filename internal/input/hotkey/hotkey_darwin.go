//go:build darwin

package hotkey

import gohotkey "golang.design/x/hotkey"

var platformModifiers = map[string]gohotkey.Modifier{
	"alt":   gohotkey.ModOption,
	"super": gohotkey.ModCmd,
}
