package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"screen-ocr-hotkey/src/llm"
	"screen-ocr-hotkey/src/screenshot"
)

const (
	DefaultAttempts       = 3
	DefaultAttemptTimeout = 60 * time.Second
)

type ErrorKind int

const (
	TimeoutExhausted ErrorKind = iota + 1
	BadStatus
	MalformedResponse
	Transport
)

func (k ErrorKind) String() string {
	switch k {
	case TimeoutExhausted:
		return "timeout exhausted"
	case BadStatus:
		return "bad status"
	case MalformedResponse:
		return "malformed response"
	case Transport:
		return "transport"
	}
	return "unknown"
}

// RecognitionError is returned by Recognize for every remote failure.
type RecognitionError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Attempts   int
	Err        error
}

func (e *RecognitionError) Error() string {
	switch e.Kind {
	case TimeoutExhausted:
		return fmt.Sprintf("recognition timed out after %d attempts", e.Attempts)
	case BadStatus:
		body := strings.TrimSpace(e.Body)
		if r := []rune(body); len(r) > 200 {
			body = string(r[:200]) + "..."
		}
		if body == "" {
			return fmt.Sprintf("recognition service returned status %d", e.StatusCode)
		}
		return fmt.Sprintf("recognition service returned status %d: %s", e.StatusCode, body)
	case MalformedResponse:
		return fmt.Sprintf("malformed recognition response: %v", e.Err)
	}
	return fmt.Sprintf("recognition request failed: %v", e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Querier sends one encoded image to the recognition endpoint.
type Querier interface {
	QueryVision(ctx context.Context, png []byte) (string, error)
}

// Recognizer turns a capture artifact into normalized lines.
type Recognizer interface {
	Recognize(ctx context.Context, a *screenshot.Artifact) (Result, error)
}

// Result is the ordered sequence of normalized lines. An empty Result means
// nothing was recognized.
type Result struct {
	Lines []string
}

func (r Result) Empty() bool { return len(r.Lines) == 0 }

func (r Result) Text() string { return strings.Join(r.Lines, "\n") }

// Client implements Recognizer with a timeout-only retry policy.
type Client struct {
	q              Querier
	attempts       int
	attemptTimeout time.Duration
}

func NewClient(q Querier) *Client {
	return &Client{q: q, attempts: DefaultAttempts, attemptTimeout: DefaultAttemptTimeout}
}

// SetAttemptTimeout overrides the per-attempt deadline.
func (c *Client) SetAttemptTimeout(d time.Duration) {
	if d > 0 {
		c.attemptTimeout = d
	}
}

// Recognize encodes the artifact as PNG and sends it for recognition.
func (c *Client) Recognize(ctx context.Context, a *screenshot.Artifact) (Result, error) {
	png, err := EncodeFile(a.Path)
	if err != nil {
		return Result{}, err
	}
	log.Printf("ocr: artifact %s encoded (%dx%d, %d bytes)", a.ID, a.Width, a.Height, len(png))
	return c.RecognizeImage(ctx, png)
}

// RecognizeImage sends already-encoded image bytes.
func (c *Client) RecognizeImage(ctx context.Context, png []byte) (Result, error) {
	for attempt := 1; attempt <= c.attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		start := time.Now()
		text, err := c.q.QueryVision(attemptCtx, png)
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			log.Printf("ocr: attempt %d succeeded in %v", attempt, time.Since(start).Round(time.Millisecond))
			if strings.TrimSpace(text) == "" {
				return Result{}, nil
			}
			return Result{Lines: Normalize(text)}, nil
		}
		if ctx.Err() == nil && (timedOut || isTimeout(err)) {
			log.Printf("ocr: attempt %d/%d timed out after %v", attempt, c.attempts, time.Since(start).Round(time.Millisecond))
			continue
		}
		return Result{}, classify(err)
	}
	return Result{}, &RecognitionError{Kind: TimeoutExhausted, Attempts: c.attempts}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func classify(err error) *RecognitionError {
	if code, body, ok := llm.StatusError(err); ok {
		return &RecognitionError{Kind: BadStatus, StatusCode: code, Body: body, Err: err}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, llm.ErrMissingContent) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &RecognitionError{Kind: MalformedResponse, Err: err}
	}
	return &RecognitionError{Kind: Transport, Err: err}
}

// EncodeFile loads an image from disk and re-encodes it as PNG.
func EncodeFile(path string) ([]byte, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	return buf.Bytes(), nil
}
