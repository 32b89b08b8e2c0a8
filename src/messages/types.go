package messages

// Event is a message posted to the UI event loop. Any goroutine may post one;
// only the UI thread consumes them.
type Event interface {
	Type() string
}

// Type constants for event identification
const (
	TypeCapture      = "Capture"
	TypeSettings     = "Settings"
	TypeNotification = "Notification"
)

// Capture - a trigger fired (hotkey, tray menu, or remote request); start a
// region selection if none is active.
type Capture struct {
	Source string // e.g., "hotkey", "tray", "remote"
}

func (Capture) Type() string { return TypeCapture }

// Settings - open the settings window.
type Settings struct{}

func (Settings) Type() string { return TypeSettings }

// Notification - show a user-visible notification.
type Notification struct {
	Title   string
	Message string
	// Optional notifications are suppressed when show_notification is off.
	Optional bool
}

func (Notification) Type() string { return TypeNotification }

// Poster is the producer side of the event queue.
type Poster interface {
	Post(ev Event)
}
