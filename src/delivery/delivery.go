package delivery

import (
	"fmt"
	"log"
	"strings"

	"screen-ocr-hotkey/src/clipboard"
	"screen-ocr-hotkey/src/logutil"
	"screen-ocr-hotkey/src/messages"
	"screen-ocr-hotkey/src/ocr"
)

const (
	TitleSuccess = "OCR succeeded"
	TitleEmpty   = "OCR result"
	TitleFailure = "OCR failed"

	MessageEmpty = "No text recognized"

	// PreviewLength is the number of characters shown in the success notification.
	PreviewLength = 20
)

// Delivery hands recognition outcomes to the clipboard and the event loop.
// It is safe to call from worker goroutines: it only writes the clipboard
// and posts events.
type Delivery struct {
	clip clipboard.Writer
	out  messages.Poster
}

func New(clip clipboard.Writer, out messages.Poster) *Delivery {
	return &Delivery{clip: clip, out: out}
}

// OnSuccess copies a non-empty result to the clipboard and announces it.
func (d *Delivery) OnSuccess(res ocr.Result) error {
	if res.Empty() {
		log.Printf("delivery: nothing recognized")
		d.out.Post(messages.Notification{Title: TitleEmpty, Message: MessageEmpty, Optional: true})
		return nil
	}

	text := res.Text()
	if err := d.clip.Write(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	log.Printf("delivery: copied %d lines: %s", len(res.Lines), logutil.SanitizeForLog(text, 80))
	d.out.Post(messages.Notification{Title: TitleSuccess, Message: Preview(text), Optional: true})
	return nil
}

// OnFailure announces err. Failures are never optional.
func (d *Delivery) OnFailure(err error) error {
	if err == nil {
		err = fmt.Errorf("unknown recognition error")
	}
	log.Printf("delivery: recognition failed: %v", err)
	d.out.Post(messages.Notification{Title: TitleFailure, Message: err.Error()})
	return nil
}

// Preview returns the first PreviewLength characters of text with line breaks
// shown as spaces, followed by "…" when text is longer.
func Preview(text string) string {
	r := []rune(text)
	truncated := len(r) > PreviewLength
	if truncated {
		r = r[:PreviewLength]
	}
	p := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(string(r))
	if truncated {
		p += "…"
	}
	return p
}
