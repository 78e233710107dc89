//go:build linux

package hotkey

import gohotkey "golang.design/x/hotkey"

// X11 maps Alt to Mod1 and Super to Mod4
var platformModifiers = map[string]gohotkey.Modifier{
	"alt":   gohotkey.Mod1,
	"super": gohotkey.Mod4,
}
