package overlay

import (
	"errors"
	"fmt"
	"log"

	"screen-ocr-hotkey/src/messages"
	"screen-ocr-hotkey/src/screenshot"
)

// MinSelectionSize is the smallest accepted width and height. Smaller
// selections are discarded without feedback.
const MinSelectionSize = 10

const (
	TitleCaptureFailed = "Capture failed"
	TitleBusy          = "OCR busy"
	MessageBusy        = "A recognition is already running. Try again in a moment."
)

type State int

const (
	Idle State = iota
	Selecting
)

func (s State) String() string {
	if s == Selecting {
		return "selecting"
	}
	return "idle"
}

// Presenter is the overlay window. Every method is called on the UI thread.
type Presenter interface {
	Show() error
	DrawOutline(r screenshot.Region)
	Destroy()
}

// PresenterFactory creates an overlay that reports pointer and key input
// back to c.
type PresenterFactory func(c *Controller) (Presenter, error)

// Capturer turns a confirmed rectangle into an artifact, either from the
// live display or from a frame taken before the overlay appeared.
type Capturer interface {
	Capture(region screenshot.Region) (*screenshot.Artifact, error)
	CaptureFrame(f screenshot.Frame, region screenshot.Region) (*screenshot.Artifact, error)
}

// FrameSource is implemented by presenters that show a still image of the
// screen. Confirm crops that image instead of reading the display again.
type FrameSource interface {
	Frame() (screenshot.Frame, bool)
}

// Spawner starts asynchronous recognition of an artifact. On success the
// spawned job owns the artifact; on error the caller still does.
type Spawner func(a *screenshot.Artifact) error

// Controller is the selection state machine. It is owned by the UI thread:
// all methods, including presenter callbacks, must be called there.
type Controller struct {
	newPresenter PresenterFactory
	capture      Capturer
	spawn        Spawner
	out          messages.Poster

	state     State
	presenter Presenter
	anchor    screenshot.Point
	hasAnchor bool
	current   screenshot.Region
}

func NewController(newPresenter PresenterFactory, capture Capturer, spawn Spawner, out messages.Poster) *Controller {
	return &Controller{newPresenter: newPresenter, capture: capture, spawn: spawn, out: out}
}

func (c *Controller) State() State { return c.state }

// Current returns the rectangle between the anchor and the last pointer
// position, normalized to non-negative size.
func (c *Controller) Current() screenshot.Region { return c.current }

// BeginSelection opens the overlay. A call while a selection is active is
// ignored.
func (c *Controller) BeginSelection() (err error) {
	if c.state == Selecting {
		log.Printf("overlay: selection already active, trigger ignored")
		return nil
	}
	defer c.recoverInto(&err)

	p, err := c.newPresenter(c)
	if err != nil {
		return fmt.Errorf("create overlay: %w", err)
	}
	c.presenter = p
	c.state = Selecting
	c.hasAnchor = false
	c.current = screenshot.Region{}

	if err := p.Show(); err != nil {
		c.teardown()
		return fmt.Errorf("show overlay: %w", err)
	}
	log.Printf("overlay: selection started")
	return nil
}

// PointerDown records the anchor corner in screen-global coordinates.
func (c *Controller) PointerDown(p screenshot.Point) {
	if c.state != Selecting {
		return
	}
	c.anchor = p
	c.hasAnchor = true
	c.current = screenshot.RegionBetween(p, p)
	c.presenter.DrawOutline(c.current)
}

// PointerMove updates the rectangle outline while dragging.
func (c *Controller) PointerMove(p screenshot.Point) {
	if c.state != Selecting || !c.hasAnchor {
		return
	}
	c.current = screenshot.RegionBetween(c.anchor, p)
	c.presenter.DrawOutline(c.current)
}

// PointerUp completes the drag at p and confirms the selection.
func (c *Controller) PointerUp(p screenshot.Point) error {
	c.PointerMove(p)
	return c.Confirm()
}

// Confirm closes the overlay and, for a large enough rectangle, captures it
// and submits the artifact for recognition.
func (c *Controller) Confirm() (err error) {
	if c.state != Selecting {
		return nil
	}
	defer c.recoverInto(&err)

	region, hadAnchor := c.current, c.hasAnchor
	var (
		frame    screenshot.Frame
		hasFrame bool
	)
	if fs, ok := c.presenter.(FrameSource); ok {
		frame, hasFrame = fs.Frame()
	}
	c.teardown()

	if !hadAnchor || region.Width < MinSelectionSize || region.Height < MinSelectionSize {
		log.Printf("overlay: selection %s below minimum size, discarded", region)
		return nil
	}

	var a *screenshot.Artifact
	if hasFrame {
		a, err = c.capture.CaptureFrame(frame, region)
	} else {
		a, err = c.capture.Capture(region)
	}
	if err != nil {
		log.Printf("overlay: %v", err)
		c.out.Post(messages.Notification{Title: TitleCaptureFailed, Message: err.Error()})
		return nil
	}

	if err := c.spawn(a); err != nil {
		log.Printf("overlay: cannot start recognition for %s: %v", a.ID, err)
		if rmErr := a.Remove(); rmErr != nil {
			log.Printf("overlay: failed to remove artifact %s: %v", a.ID, rmErr)
		}
		c.out.Post(messages.Notification{Title: TitleBusy, Message: MessageBusy})
		return nil
	}
	log.Printf("overlay: artifact %s submitted for recognition", a.ID)
	return nil
}

// Cancel closes the overlay without capturing. It is also the path taken
// when the overlay window is closed externally.
func (c *Controller) Cancel() {
	if c.state != Selecting {
		return
	}
	c.teardown()
	log.Printf("overlay: selection cancelled")
}

// teardown returns to Idle before destroying the presenter so that a
// failing Destroy cannot leave the controller stuck in Selecting.
func (c *Controller) teardown() {
	p := c.presenter
	c.presenter = nil
	c.state = Idle
	c.hasAnchor = false
	if p == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("overlay: PANIC destroying overlay: %v", r)
		}
	}()
	p.Destroy()
}

var errPanic = errors.New("panic during selection")

func (c *Controller) recoverInto(err *error) {
	r := recover()
	if r == nil {
		return
	}
	c.teardown()
	*err = fmt.Errorf("%w: %v", errPanic, r)
	c.out.Post(messages.Notification{Title: TitleCaptureFailed, Message: (*err).Error()})
}
