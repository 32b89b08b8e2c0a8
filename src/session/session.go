package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"screen-ocr-hotkey/src/ocr"
	"screen-ocr-hotkey/src/screenshot"
)

// ResultTarget receives the outcome of one recognition session.
type ResultTarget interface {
	OnSuccess(res ocr.Result) error
	OnFailure(err error) error
}

type Options struct {
	Recognizer ocr.Recognizer
	Target     ResultTarget
}

// Execute recognizes one artifact and hands the outcome to opts.Target. It
// owns the artifact and removes it on every path. Panics in the recognizer or
// the target are converted into a failure report; nothing escapes.
func Execute(ctx context.Context, a *screenshot.Artifact, opts Options) (res ocr.Result, err error) {
	defer func() {
		if rmErr := a.Remove(); rmErr != nil {
			log.Printf("session: failed to remove artifact %s: %v", a.ID, rmErr)
		}
	}()

	if opts.Recognizer == nil {
		return ocr.Result{}, errors.New("Recognizer is required")
	}
	if opts.Target == nil {
		return ocr.Result{}, errors.New("Target is required")
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("session: PANIC during artifact %s: %v", a.ID, r)
			res, err = ocr.Result{}, fmt.Errorf("internal error: %v", r)
			report(opts.Target, err)
		}
	}()

	res, err = opts.Recognizer.Recognize(ctx, a)
	if err != nil {
		report(opts.Target, err)
		return ocr.Result{}, err
	}

	if err := opts.Target.OnSuccess(res); err != nil {
		report(opts.Target, err)
		return ocr.Result{}, err
	}
	return res, nil
}

func report(t ResultTarget, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("session: PANIC while reporting %v: %v", err, r)
		}
	}()
	if ferr := t.OnFailure(err); ferr != nil {
		log.Printf("session: failure report failed: %v", ferr)
	}
}

// StdoutTarget prints normalized lines, one per line.
type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) OnSuccess(res ocr.Result) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	for _, line := range res.Lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (t StdoutTarget) OnFailure(err error) error {
	return nil
}
