package hotkey

import (
	"errors"
	"log"
	"sync"
	"time"

	gohook "github.com/robotn/gohook"

	"screen-ocr-hotkey/src/config"
	"screen-ocr-hotkey/src/messages"
)

// Service owns the active keyboard hook. Apply replaces the hook whenever the
// hotkey configuration changes.
type Service struct {
	out messages.Poster

	mu       sync.Mutex
	detector *Detector
	stop     func()
}

func NewService(out messages.Poster) *Service {
	return &Service{out: out}
}

// Apply installs a hook for cfg, removing any previous one. On failure the
// trigger stays disabled and an *InputHookError is returned.
func (s *Service) Apply(cfg config.HotkeyConfig) error {
	s.Stop()

	b, err := ParseBinding(cfg.Binding)
	if err != nil {
		return &InputHookError{Binding: cfg.Binding, Err: err}
	}

	d := NewDetector(cfg, s.out)
	var stop func()
	if b.Combo() {
		stop, err = registerCombo(b, d)
	} else {
		stop, err = startRawHook(b, d)
	}
	if err != nil {
		return &InputHookError{Binding: cfg.Binding, Err: err}
	}

	s.mu.Lock()
	s.detector = d
	s.stop = stop
	s.mu.Unlock()
	log.Printf("hotkey: listening for %s (mode=%s, threshold=%v, combo=%v)", cfg.Binding, cfg.Mode, cfg.Threshold, b.Combo())
	return nil
}

// Stop removes the active hook, if any.
func (s *Service) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.detector = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Detector returns the detector of the active hook, or nil.
func (s *Service) Detector() *Detector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector
}

// startRawHook feeds press/release events of a single key into d.
func startRawHook(b Binding, d *Detector) (func(), error) {
	rawcodes := keyNameToRawcodes(b.Key)
	if len(rawcodes) == 0 {
		return nil, ErrUnknownKey
	}

	evChan := gohook.Start()
	if evChan == nil {
		return nil, errors.New("gohook.Start() returned nil channel")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("hotkey: PANIC in hook goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			if !matchesRawcode(ev.Rawcode, rawcodes) {
				continue
			}
			switch ev.Kind {
			case gohook.KeyHold, gohook.KeyDown:
				d.OnKeyDown()
			case gohook.KeyUp:
				d.OnKeyUp()
			}
		}
		log.Printf("hotkey: event channel closed")
	}()

	return func() {
		gohook.End()
		select {
		case <-done:
		case <-time.After(time.Second):
			log.Printf("hotkey: hook goroutine did not exit after End()")
		}
	}, nil
}

func matchesRawcode(code uint16, rawcodes []uint16) bool {
	for _, rc := range rawcodes {
		if code == rc {
			return true
		}
	}
	return false
}
