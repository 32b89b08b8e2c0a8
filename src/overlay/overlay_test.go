package overlay

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"screen-ocr-hotkey/src/messages"
	"screen-ocr-hotkey/src/screenshot"
)

type fakePresenter struct {
	shown     int
	destroyed int
	outlines  []screenshot.Region
	showErr   error
}

func (p *fakePresenter) Show() error { p.shown++; return p.showErr }

func (p *fakePresenter) DrawOutline(r screenshot.Region) { p.outlines = append(p.outlines, r) }

func (p *fakePresenter) Destroy() { p.destroyed++ }

type fakeCapturer struct {
	t         *testing.T
	regions   []screenshot.Region
	artifacts []*screenshot.Artifact
	frames    []screenshot.Frame
	err       error
	panic     any
}

func (f *fakeCapturer) Capture(r screenshot.Region) (*screenshot.Artifact, error) {
	if f.panic != nil {
		panic(f.panic)
	}
	if f.err != nil {
		return nil, f.err
	}
	f.regions = append(f.regions, r)
	path := filepath.Join(f.t.TempDir(), "capture.png")
	if err := os.WriteFile(path, []byte("png"), 0600); err != nil {
		f.t.Fatal(err)
	}
	a := &screenshot.Artifact{ID: "a", Path: path, Width: r.Width, Height: r.Height}
	f.artifacts = append(f.artifacts, a)
	return a, nil
}

func (f *fakeCapturer) CaptureFrame(fr screenshot.Frame, r screenshot.Region) (*screenshot.Artifact, error) {
	f.frames = append(f.frames, fr)
	return f.Capture(r)
}

// framedPresenter shows a frozen frame, like the fyne overlay.
type framedPresenter struct {
	fakePresenter
	frame             screenshot.Frame
	destroyedAtLookup int
}

func (p *framedPresenter) Frame() (screenshot.Frame, bool) {
	p.destroyedAtLookup = p.destroyed
	return p.frame, p.frame.Image != nil
}

type recordingPoster struct {
	mu     sync.Mutex
	events []messages.Event
}

func (r *recordingPoster) Post(ev messages.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

type harness struct {
	c          *Controller
	presenters []*fakePresenter
	capture    *fakeCapturer
	spawned    []*screenshot.Artifact
	spawnErr   error
	out        *recordingPoster
}

func newHarness(t *testing.T) *harness {
	h := &harness{capture: &fakeCapturer{t: t}, out: &recordingPoster{}}
	factory := func(c *Controller) (Presenter, error) {
		p := &fakePresenter{}
		h.presenters = append(h.presenters, p)
		return p, nil
	}
	spawn := func(a *screenshot.Artifact) error {
		if h.spawnErr != nil {
			return h.spawnErr
		}
		h.spawned = append(h.spawned, a)
		return nil
	}
	h.c = NewController(factory, h.capture, spawn, h.out)
	return h
}

func (h *harness) drag(t *testing.T, from, to screenshot.Point) {
	t.Helper()
	if err := h.c.BeginSelection(); err != nil {
		t.Fatalf("BeginSelection failed: %v", err)
	}
	h.c.PointerDown(from)
	h.c.PointerMove(screenshot.Point{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2})
	if err := h.c.PointerUp(to); err != nil {
		t.Fatalf("PointerUp failed: %v", err)
	}
}

func TestSelectionCapturesNormalizedRegion(t *testing.T) {
	h := newHarness(t)
	h.drag(t, screenshot.Point{X: 300, Y: 200}, screenshot.Point{X: 100, Y: 50})

	if h.c.State() != Idle {
		t.Errorf("expected Idle after confirm, got %v", h.c.State())
	}
	want := screenshot.Region{X: 100, Y: 50, Width: 200, Height: 150}
	if len(h.capture.regions) != 1 || h.capture.regions[0] != want {
		t.Fatalf("captured %v, want [%v]", h.capture.regions, want)
	}
	if len(h.spawned) != 1 {
		t.Errorf("expected one spawned job, got %d", len(h.spawned))
	}
	p := h.presenters[0]
	if p.shown != 1 || p.destroyed != 1 {
		t.Errorf("presenter shown=%d destroyed=%d, want 1/1", p.shown, p.destroyed)
	}
	if len(p.outlines) != 3 {
		t.Errorf("expected an outline per pointer event, got %d", len(p.outlines))
	}
}

func TestSelectionBelowMinimumIsSilent(t *testing.T) {
	tests := []struct {
		name string
		to   screenshot.Point
	}{
		{"narrow", screenshot.Point{X: 5, Y: 20}},
		{"short", screenshot.Point{X: 20, Y: 9}},
		{"click", screenshot.Point{X: 0, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.drag(t, screenshot.Point{}, tt.to)
			if len(h.capture.regions) != 0 || len(h.spawned) != 0 {
				t.Errorf("expected no capture, got %d captures %d jobs", len(h.capture.regions), len(h.spawned))
			}
			if len(h.out.events) != 0 {
				t.Errorf("expected no notification, got %v", h.out.events)
			}
			if h.c.State() != Idle || h.presenters[0].destroyed != 1 {
				t.Errorf("overlay not torn down: state=%v destroyed=%d", h.c.State(), h.presenters[0].destroyed)
			}
		})
	}
}

func TestMinimumSizeBoundaryAccepted(t *testing.T) {
	h := newHarness(t)
	h.drag(t, screenshot.Point{X: 10, Y: 10}, screenshot.Point{X: 20, Y: 20})
	if len(h.spawned) != 1 {
		t.Errorf("10x10 selection must be accepted, got %d jobs", len(h.spawned))
	}
}

func TestBeginSelectionWhileSelectingIgnored(t *testing.T) {
	h := newHarness(t)
	if err := h.c.BeginSelection(); err != nil {
		t.Fatal(err)
	}
	if err := h.c.BeginSelection(); err != nil {
		t.Fatalf("second BeginSelection must be a silent no-op, got %v", err)
	}
	if len(h.presenters) != 1 {
		t.Errorf("expected one overlay, got %d", len(h.presenters))
	}
	if h.c.State() != Selecting {
		t.Errorf("expected Selecting, got %v", h.c.State())
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	if err := h.c.BeginSelection(); err != nil {
		t.Fatal(err)
	}
	h.c.PointerDown(screenshot.Point{X: 0, Y: 0})
	h.c.PointerMove(screenshot.Point{X: 100, Y: 100})
	h.c.Cancel()

	if h.c.State() != Idle || h.presenters[0].destroyed != 1 {
		t.Errorf("cancel did not tear down: state=%v destroyed=%d", h.c.State(), h.presenters[0].destroyed)
	}
	if len(h.capture.regions) != 0 {
		t.Error("cancel must not capture")
	}
	// Late pointer events after cancel are ignored.
	if err := h.c.PointerUp(screenshot.Point{X: 200, Y: 200}); err != nil {
		t.Fatal(err)
	}
	if len(h.capture.regions) != 0 {
		t.Error("pointer up after cancel must not capture")
	}

	if err := h.c.BeginSelection(); err != nil || h.c.State() != Selecting {
		t.Errorf("new selection after cancel failed: %v", err)
	}
}

func TestCaptureErrorNotifies(t *testing.T) {
	h := newHarness(t)
	h.capture.err = &screenshot.CaptureError{Err: errors.New("no display")}
	h.drag(t, screenshot.Point{}, screenshot.Point{X: 50, Y: 50})

	if h.c.State() != Idle {
		t.Errorf("expected Idle, got %v", h.c.State())
	}
	if len(h.out.events) != 1 {
		t.Fatalf("expected one notification, got %d", len(h.out.events))
	}
	if n := h.out.events[0].(messages.Notification); n.Title != TitleCaptureFailed {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestCapturePanicKeepsStateConsistent(t *testing.T) {
	h := newHarness(t)
	h.capture.panic = "pixel read exploded"
	if err := h.c.BeginSelection(); err != nil {
		t.Fatal(err)
	}
	h.c.PointerDown(screenshot.Point{})
	if err := h.c.PointerUp(screenshot.Point{X: 50, Y: 50}); err == nil {
		t.Error("expected panic to surface as an error")
	}
	if h.c.State() != Idle || h.presenters[0].destroyed != 1 {
		t.Errorf("state=%v destroyed=%d after panic", h.c.State(), h.presenters[0].destroyed)
	}
	if len(h.out.events) != 1 {
		t.Errorf("expected a notification for the panic, got %d", len(h.out.events))
	}
	if err := h.c.BeginSelection(); err != nil || h.c.State() != Selecting {
		t.Errorf("controller wedged after panic: %v", err)
	}
}

func TestSpawnFailureRemovesArtifact(t *testing.T) {
	h := newHarness(t)
	h.spawnErr = errors.New("worker pool busy")
	h.drag(t, screenshot.Point{}, screenshot.Point{X: 50, Y: 50})

	if len(h.capture.regions) != 1 {
		t.Fatal("expected capture to run")
	}
	if len(h.out.events) != 1 || h.out.events[0].(messages.Notification).Title != TitleBusy {
		t.Errorf("expected busy notification, got %v", h.out.events)
	}
	if _, err := os.Stat(h.capture.artifacts[0].Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("artifact not removed after rejected submit (stat err=%v)", err)
	}
}

func TestShowFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.c.newPresenter = func(c *Controller) (Presenter, error) {
		p := &fakePresenter{showErr: errors.New("no display")}
		h.presenters = append(h.presenters, p)
		return p, nil
	}
	if err := h.c.BeginSelection(); err == nil {
		t.Fatal("expected error from failing Show")
	}
	if h.c.State() != Idle || h.presenters[0].destroyed != 1 {
		t.Errorf("state=%v destroyed=%d after failed show", h.c.State(), h.presenters[0].destroyed)
	}
}

func TestConfirmCropsFrozenFrame(t *testing.T) {
	h := newHarness(t)
	frame := screenshot.Frame{Image: image.NewRGBA(image.Rect(0, 0, 400, 300)), Origin: screenshot.Point{X: 1920}}
	var presenter *framedPresenter
	h.c.newPresenter = func(c *Controller) (Presenter, error) {
		presenter = &framedPresenter{frame: frame}
		return presenter, nil
	}

	h.drag(t, screenshot.Point{X: 1950, Y: 20}, screenshot.Point{X: 2050, Y: 120})

	if len(h.capture.frames) != 1 || h.capture.frames[0].Image != frame.Image {
		t.Fatalf("expected capture from the frozen frame, got %d frame captures", len(h.capture.frames))
	}
	if presenter.destroyedAtLookup != 0 {
		t.Error("frame must be taken before the overlay is destroyed")
	}
	if presenter.destroyed != 1 || h.c.State() != Idle {
		t.Errorf("destroyed=%d state=%v, want 1/Idle", presenter.destroyed, h.c.State())
	}
	want := screenshot.Region{X: 1950, Y: 20, Width: 100, Height: 100}
	if len(h.capture.regions) != 1 || h.capture.regions[0] != want {
		t.Errorf("captured %v, want [%v]", h.capture.regions, want)
	}
}

func TestConfirmWithoutFrameReadsDisplay(t *testing.T) {
	h := newHarness(t)
	h.drag(t, screenshot.Point{}, screenshot.Point{X: 50, Y: 50})
	if len(h.capture.frames) != 0 || len(h.capture.regions) != 1 {
		t.Errorf("expected a live capture, got %d frame captures and %d regions", len(h.capture.frames), len(h.capture.regions))
	}
}
