package screenshot

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// CaptureError reports a failed pixel read or artifact write.
type CaptureError struct {
	Region Region
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Region, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Artifact is a captured region stored as a lossless PNG in temporary storage.
// It is consumed by exactly one recognition job, which removes it.
type Artifact struct {
	ID     string
	Path   string
	Width  int
	Height int
}

// Remove deletes the artifact file. Removing twice is not an error.
func (a *Artifact) Remove() error {
	if a == nil || a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Grabber reads the pixels of a screen rectangle.
type Grabber func(region Region) (*image.RGBA, error)

// Store turns screen rectangles into artifacts.
type Store struct {
	dir  string
	grab Grabber
}

// NewStore creates a store writing to dir (os.TempDir when empty) and reading
// pixels with grab (the display when nil).
func NewStore(dir string, grab Grabber) *Store {
	if grab == nil {
		grab = CaptureRegion
	}
	return &Store{dir: dir, grab: grab}
}

// Capture reads region from the display and writes it to a fresh temp file.
func (s *Store) Capture(region Region) (*Artifact, error) {
	img, err := s.grab(region)
	if err != nil {
		return nil, &CaptureError{Region: region, Err: err}
	}
	return s.save(region, img)
}

// CaptureFrame crops region out of an already captured frame, so the result
// never contains anything drawn on screen after the frame was taken.
func (s *Store) CaptureFrame(f Frame, region Region) (*Artifact, error) {
	img, err := f.Crop(region)
	if err != nil {
		return nil, &CaptureError{Region: region, Err: err}
	}
	return s.save(region, img)
}

func (s *Store) save(region Region, img image.Image) (*Artifact, error) {
	f, err := os.CreateTemp(s.dir, "ocr-capture-*.png")
	if err != nil {
		return nil, &CaptureError{Region: region, Err: err}
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, &CaptureError{Region: region, Err: fmt.Errorf("encode png: %w", err)}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, &CaptureError{Region: region, Err: err}
	}

	b := img.Bounds()
	a := &Artifact{ID: uuid.NewString(), Path: f.Name(), Width: b.Dx(), Height: b.Dy()}
	log.Printf("screenshot: artifact %s %dx%d -> %s", a.ID, a.Width, a.Height, a.Path)
	return a, nil
}
