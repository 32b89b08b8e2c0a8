package overlay

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"screen-ocr-hotkey/src/screenshot"
)

var (
	dimColor     = color.NRGBA{A: 90}
	outlineColor = color.NRGBA{R: 0x29, G: 0x8d, B: 0xf5, A: 0xff}
	outlineFill  = color.NRGBA{R: 0x29, G: 0x8d, B: 0xf5, A: 0x30}
)

// Backdrop returns the frozen screen image shown under the selection and the
// screen rectangle it covers.
type Backdrop func() (*image.RGBA, screenshot.Region, error)

// PrimaryDisplayBackdrop captures the primary display.
func PrimaryDisplayBackdrop() (*image.RGBA, screenshot.Region, error) {
	b, err := screenshot.GetDisplayBounds()
	if err != nil {
		return nil, screenshot.Region{}, err
	}
	region := screenshot.Region{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
	img, err := screenshot.CaptureRegion(region)
	if err != nil {
		return nil, screenshot.Region{}, err
	}
	return img, region, nil
}

// NewFyneFactory returns a PresenterFactory that draws the overlay as a
// borderless full-screen fyne window.
func NewFyneFactory(app fyne.App, backdrop Backdrop) PresenterFactory {
	if backdrop == nil {
		backdrop = PrimaryDisplayBackdrop
	}
	return func(c *Controller) (Presenter, error) {
		return &fynePresenter{app: app, c: c, backdrop: backdrop}, nil
	}
}

type fynePresenter struct {
	app      fyne.App
	c        *Controller
	backdrop Backdrop

	win     fyne.Window
	frame   *image.RGBA
	origin  screenshot.Region
	outline *canvas.Rectangle
	surface *selectionSurface
}

func (p *fynePresenter) Show() error {
	img, origin, err := p.backdrop()
	if err != nil {
		return fmt.Errorf("capture backdrop: %w", err)
	}
	p.frame = img
	p.origin = origin

	if drv, ok := p.app.Driver().(desktop.Driver); ok {
		p.win = drv.CreateSplashWindow()
	} else {
		p.win = p.app.NewWindow("Select region")
	}

	bg := canvas.NewImageFromImage(img)
	bg.FillMode = canvas.ImageFillStretch
	bg.ScaleMode = canvas.ImageScalePixels

	p.outline = canvas.NewRectangle(outlineFill)
	p.outline.StrokeColor = outlineColor
	p.outline.StrokeWidth = 2
	p.outline.Hide()

	p.surface = newSelectionSurface(p.pointerDown, p.pointerMove, p.pointerUp)

	p.win.SetContent(container.NewStack(
		bg,
		canvas.NewRectangle(dimColor),
		container.NewWithoutLayout(p.outline),
		p.surface,
	))
	p.win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			p.c.Cancel()
		}
	})
	p.win.SetCloseIntercept(p.c.Cancel)
	p.win.Resize(fyne.NewSize(float32(origin.Width), float32(origin.Height)))
	p.win.SetFullScreen(true)
	p.win.Show()
	p.win.RequestFocus()
	return nil
}

func (p *fynePresenter) DrawOutline(r screenshot.Region) {
	if p.outline == nil {
		return
	}
	scale := p.scale()
	p.outline.Move(fyne.NewPos(float32(r.X-p.origin.X)/scale, float32(r.Y-p.origin.Y)/scale))
	p.outline.Resize(fyne.NewSize(float32(r.Width)/scale, float32(r.Height)/scale))
	p.outline.Show()
	p.outline.Refresh()
}

func (p *fynePresenter) Destroy() {
	if p.win == nil {
		return
	}
	log.Printf("overlay: closing window")
	p.win.SetCloseIntercept(nil)
	p.win.Close()
	p.win = nil
}

// Frame implements FrameSource with the backdrop captured before Show.
func (p *fynePresenter) Frame() (screenshot.Frame, bool) {
	if p.frame == nil {
		return screenshot.Frame{}, false
	}
	return screenshot.Frame{Image: p.frame, Origin: screenshot.Point{X: p.origin.X, Y: p.origin.Y}}, true
}

func (p *fynePresenter) scale() float32 {
	if p.win == nil {
		return 1
	}
	if s := p.win.Canvas().Scale(); s > 0 {
		return s
	}
	return 1
}

// toScreen converts a canvas position to virtual-screen pixels.
func (p *fynePresenter) toScreen(pos fyne.Position) screenshot.Point {
	scale := p.scale()
	return screenshot.Point{
		X: p.origin.X + int(pos.X*scale+0.5),
		Y: p.origin.Y + int(pos.Y*scale+0.5),
	}
}

func (p *fynePresenter) pointerDown(pos fyne.Position) { p.c.PointerDown(p.toScreen(pos)) }

func (p *fynePresenter) pointerMove(pos fyne.Position) { p.c.PointerMove(p.toScreen(pos)) }

func (p *fynePresenter) pointerUp(pos fyne.Position) {
	if err := p.c.PointerUp(p.toScreen(pos)); err != nil {
		log.Printf("overlay: confirm failed: %v", err)
	}
}

// selectionSurface is a transparent widget covering the overlay that turns
// primary-button drags into pointer callbacks.
type selectionSurface struct {
	widget.BaseWidget

	onDown func(fyne.Position)
	onMove func(fyne.Position)
	onUp   func(fyne.Position)
	down   bool
}

func newSelectionSurface(onDown, onMove, onUp func(fyne.Position)) *selectionSurface {
	s := &selectionSurface{onDown: onDown, onMove: onMove, onUp: onUp}
	s.ExtendBaseWidget(s)
	return s
}

func (s *selectionSurface) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(canvas.NewRectangle(color.Transparent))
}

// Cursor implements desktop.Cursorable.
func (s *selectionSurface) Cursor() desktop.Cursor { return desktop.CrosshairCursor }

// MouseDown implements desktop.Mouseable.
func (s *selectionSurface) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	s.down = true
	s.onDown(ev.Position)
}

// MouseUp implements desktop.Mouseable.
func (s *selectionSurface) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || !s.down {
		return
	}
	s.down = false
	s.onUp(ev.Position)
}

// MouseIn implements desktop.Hoverable.
func (s *selectionSurface) MouseIn(_ *desktop.MouseEvent) {}

// MouseMoved implements desktop.Hoverable.
func (s *selectionSurface) MouseMoved(ev *desktop.MouseEvent) {
	if s.down {
		s.onMove(ev.Position)
	}
}

// MouseOut implements desktop.Hoverable.
func (s *selectionSurface) MouseOut() {}

// Dragged implements fyne.Draggable; some drivers report motion with the
// button held only through drag events.
func (s *selectionSurface) Dragged(ev *fyne.DragEvent) {
	if s.down {
		s.onMove(ev.Position)
	}
}

// DragEnd implements fyne.Draggable.
func (s *selectionSurface) DragEnd() {}
