package notification

import (
	"log"
	"sync/atomic"

	"fyne.io/fyne/v2"

	"screen-ocr-hotkey/src/logutil"
	"screen-ocr-hotkey/src/messages"
)

// maxMessageLength bounds the body handed to the OS notification service.
const maxMessageLength = 200

// Sender delivers a notification to the desktop. fyne.App satisfies it.
type Sender interface {
	SendNotification(n *fyne.Notification)
}

// Presenter shows Notification events. It runs on the UI thread.
type Presenter struct {
	sender  Sender
	enabled atomic.Bool
}

// New returns a presenter. A nil sender reduces every notification to a log
// line, which is the fallback when no notification service is available.
func New(sender Sender, showOptional bool) *Presenter {
	p := &Presenter{sender: sender}
	p.enabled.Store(showOptional)
	return p
}

// SetShowOptional toggles success and "nothing recognized" notifications.
// Failures are always shown.
func (p *Presenter) SetShowOptional(show bool) { p.enabled.Store(show) }

// Show implements the Notification handler of the event loop.
func (p *Presenter) Show(n messages.Notification) error {
	msg := n.Message
	if r := []rune(msg); len(r) > maxMessageLength {
		msg = string(r[:maxMessageLength]) + "..."
	}
	if n.Optional && !p.enabled.Load() {
		log.Printf("notification (suppressed): %s: %s", n.Title, logutil.SanitizeForLog(msg, 80))
		return nil
	}
	if p.sender == nil {
		log.Printf("notification: %s: %s", n.Title, msg)
		return nil
	}
	log.Printf("notification: showing %q", n.Title)
	p.sender.SendNotification(fyne.NewNotification(n.Title, msg))
	return nil
}
