package screenshot

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/kbinani/screenshot"
)

// Region is an axis-aligned screen rectangle in virtual-screen coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Point is a position in virtual-screen coordinates.
type Point struct {
	X int
	Y int
}

// RegionBetween returns the rectangle spanned by two corners, with
// non-negative width and height regardless of drag direction.
func RegionBetween(a, b Point) Region {
	x1, x2 := a.X, b.X
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	y1, y2 := a.Y, b.Y
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", r.Width, r.Height, r.X, r.Y)
}

// CaptureRegion reads the pixels of region from the display. The region is
// clipped to the virtual screen first.
func CaptureRegion(region Region) (*image.RGBA, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", region.Width, region.Height)
	}
	bounds, err := VirtualBounds()
	if err != nil {
		return nil, err
	}
	clipped, err := clipRegion(region, bounds)
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(clipped.Rect())
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return img, nil
}

func clipRegion(region Region, bounds image.Rectangle) (Region, error) {
	r := region.Rect().Intersect(bounds)
	if r.Empty() {
		return Region{}, fmt.Errorf("region %s is outside the screen %v", region, bounds)
	}
	return regionOf(r), nil
}

func regionOf(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// VirtualBounds returns the union of all active display bounds.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// GetDisplayBounds returns the bounds of the primary display
func GetDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}

// Frame is a still image of the screen whose top-left pixel sits at Origin
// in virtual-screen coordinates.
type Frame struct {
	Image  *image.RGBA
	Origin Point
}

// Crop returns the part of the frame covered by region, clipped to the frame.
func (f Frame) Crop(region Region) (*image.NRGBA, error) {
	if f.Image == nil {
		return nil, fmt.Errorf("frame has no image")
	}
	b := f.Image.Bounds()
	local := region.Rect().Sub(image.Pt(f.Origin.X, f.Origin.Y)).Add(b.Min)
	if local.Intersect(b).Empty() {
		return nil, fmt.Errorf("region %s is outside the frame", region)
	}
	return imaging.Crop(f.Image, local), nil
}
