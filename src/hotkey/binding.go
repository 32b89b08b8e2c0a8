package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownKey = errors.New("unknown key")

// InputHookError reports a failure to install or remove the keyboard hook.
// The trigger is disabled; the rest of the application keeps running.
type InputHookError struct {
	Binding string
	Err     error
}

func (e *InputHookError) Error() string {
	return fmt.Sprintf("input hook for %q: %v", e.Binding, e.Err)
}

func (e *InputHookError) Unwrap() error { return e.Err }

// Binding is a parsed key-combination identifier such as "f9" or "ctrl+shift+s".
type Binding struct {
	Raw       string
	Modifiers []string // normalized: ctrl, alt, shift, cmd
	Key       string
}

// Combo reports whether the binding has modifiers. Combination bindings fire
// on activation and bypass the press/release state machine.
func (b Binding) Combo() bool { return len(b.Modifiers) > 0 }

// ParseBinding converts a string like "Ctrl+Alt+q" to normalized key names.
func ParseBinding(s string) (Binding, error) {
	b := Binding{Raw: s}
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Binding{}, fmt.Errorf("%w: empty key in %q", ErrUnknownKey, s)
		}
		last := i == len(parts)-1
		switch part {
		case "ctrl", "control":
			part = "ctrl"
		case "win", "cmd", "super":
			part = "cmd"
		}
		if !last {
			switch part {
			case "ctrl", "alt", "shift", "cmd":
				b.Modifiers = append(b.Modifiers, part)
				continue
			default:
				return Binding{}, fmt.Errorf("%w: %q is not a modifier in %q", ErrUnknownKey, part, s)
			}
		}
		b.Key = part
	}
	if keyNameToRawcodes(b.Key) == nil {
		return Binding{}, fmt.Errorf("%w: %q", ErrUnknownKey, b.Key)
	}
	return b, nil
}

// keyNameToRawcodes maps a key name to its Windows virtual key code rawcodes.
// Returns a slice of rawcodes (e.g., both left and right variants for modifiers)
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65} // VK 0x41-0x5A
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48} // VK 0x30-0x39
		}
	}

	if n, ok := functionKeyNumber(keyName); ok && n <= 24 {
		return []uint16{uint16(111 + n)} // VK_F1 = 112
	}

	switch keyName {
	// Modifier keys - return both left and right variants
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "cmd":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN

	case "space":
		return []uint16{32}
	case "enter", "return":
		return []uint16{13}
	case "esc", "escape":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	case "backspace":
		return []uint16{8}
	case "delete", "del":
		return []uint16{46}
	case "insert", "ins":
		return []uint16{45}
	case "home":
		return []uint16{36}
	case "end":
		return []uint16{35}
	case "page up", "pageup", "pgup":
		return []uint16{33} // VK_PRIOR
	case "page down", "pagedown", "pgdn":
		return []uint16{34} // VK_NEXT
	case "scroll lock", "scrolllock":
		return []uint16{145} // VK_SCROLL
	case "pause":
		return []uint16{19} // VK_PAUSE
	case "print screen", "printscreen", "prtsc":
		return []uint16{44} // VK_SNAPSHOT

	case "left":
		return []uint16{37}
	case "up":
		return []uint16{38}
	case "right":
		return []uint16{39}
	case "down":
		return []uint16{40}
	}
	return nil
}

func functionKeyNumber(keyName string) (int, bool) {
	if len(keyName) < 2 || keyName[0] != 'f' {
		return 0, false
	}
	n := 0
	for _, c := range keyName[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, n >= 1
}
