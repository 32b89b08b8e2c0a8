package hotkey

import (
	"log"
	"sync"
	"time"

	"screen-ocr-hotkey/src/config"
	"screen-ocr-hotkey/src/messages"
)

// PressState tracks the bound key. DownAt is non-zero iff IsDown.
type PressState struct {
	IsDown bool
	DownAt time.Time
}

// Detector turns key-down/key-up callbacks for the bound key into Capture
// events. It is driven from the hook goroutine and only ever posts to the
// event queue.
type Detector struct {
	cfg config.HotkeyConfig
	out messages.Poster
	now func() time.Time

	mu    sync.Mutex
	state PressState
}

// NewDetector creates a detector for cfg posting Capture events to out.
func NewDetector(cfg config.HotkeyConfig, out messages.Poster) *Detector {
	return &Detector{cfg: cfg, out: out, now: time.Now}
}

// SetClock replaces the time source.
func (d *Detector) SetClock(now func() time.Time) { d.now = now }

// OnKeyDown handles a press of the bound key. Auto-repeat presses while the
// key is already down are ignored.
func (d *Detector) OnKeyDown() {
	d.mu.Lock()
	if d.state.IsDown {
		d.mu.Unlock()
		return
	}
	d.state = PressState{IsDown: true, DownAt: d.now()}
	fire := d.cfg.Mode == config.Instant
	d.mu.Unlock()

	if fire {
		log.Printf("hotkey: %s pressed, instant trigger", d.cfg.Binding)
		d.fire()
	}
}

// OnKeyUp handles a release of the bound key. In long-press mode a capture
// fires iff the key was held at least the configured threshold.
func (d *Detector) OnKeyUp() {
	d.mu.Lock()
	if !d.state.IsDown {
		d.mu.Unlock()
		return
	}
	held := d.now().Sub(d.state.DownAt)
	d.state = PressState{}
	mode := d.cfg.Mode
	d.mu.Unlock()

	if mode != config.LongPress {
		return
	}
	if held >= d.cfg.Threshold {
		log.Printf("hotkey: %s held %v (>= %v), long-press trigger", d.cfg.Binding, held, d.cfg.Threshold)
		d.fire()
		return
	}
	log.Printf("hotkey: %s held %v (< %v), ignored", d.cfg.Binding, held, d.cfg.Threshold)
}

// OnActivate handles a combination binding. It fires immediately regardless
// of the configured mode and leaves PressState untouched.
func (d *Detector) OnActivate() {
	log.Printf("hotkey: combination %s activated", d.cfg.Binding)
	d.fire()
}

// State returns a snapshot of the press state.
func (d *Detector) State() PressState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Detector) fire() {
	if d.out != nil {
		d.out.Post(messages.Capture{Source: "hotkey"})
	}
}
