package hotkey

import (
	"fmt"
	"log"

	"golang.design/x/hotkey"
)

// comboKeys maps the non-modifier part of a combination binding to an
// OS-registered hotkey key.
var comboKeys = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,

	"space":  hotkey.KeySpace,
	"enter":  hotkey.KeyReturn,
	"return": hotkey.KeyReturn,
	"esc":    hotkey.KeyEscape,
	"escape": hotkey.KeyEscape,
	"tab":    hotkey.KeyTab,
	"delete": hotkey.KeyDelete,
}

func comboSpec(b Binding) ([]hotkey.Modifier, hotkey.Key, error) {
	key, ok := comboKeys[b.Key]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q cannot be used in a combination", ErrUnknownKey, b.Key)
	}
	mods := make([]hotkey.Modifier, 0, len(b.Modifiers))
	for _, m := range b.Modifiers {
		mod, ok := modifierMap[m]
		if !ok {
			return nil, 0, fmt.Errorf("%w: modifier %q unsupported on this platform", ErrUnknownKey, m)
		}
		mods = append(mods, mod)
	}
	return mods, key, nil
}

// registerCombo registers b with the OS and calls d.OnActivate on every
// activation.
func registerCombo(b Binding, d *Detector) (func(), error) {
	mods, key, err := comboSpec(b)
	if err != nil {
		return nil, err
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("register %s: %w", b.Raw, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case <-hk.Keydown():
				d.OnActivate()
			}
		}
	}()

	return func() {
		close(stop)
		<-done
		if err := hk.Unregister(); err != nil {
			log.Printf("hotkey: unregister %s: %v", b.Raw, err)
		}
	}, nil
}
