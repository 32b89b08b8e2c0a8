//go:build linux

package hotkey

import "golang.design/x/hotkey"

var modifierMap = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.Mod1, // Alt = Mod1 on X11
	"cmd":   hotkey.Mod4, // Super = Mod4 on X11
}
