package tray

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"screen-ocr-hotkey/src/messages"
)

const Title = "Screen OCR Hotkey"

// Menu builds the tray menu. Capture and Settings only post events; quit runs
// directly and is marked as the quit item so fyne does not add its own.
func Menu(out messages.Poster, quit func()) *fyne.Menu {
	capture := fyne.NewMenuItem("Capture", func() {
		out.Post(messages.Capture{Source: "tray"})
	})
	settings := fyne.NewMenuItem("Settings", func() {
		out.Post(messages.Settings{})
	})
	quitItem := fyne.NewMenuItem("Quit", quit)
	quitItem.IsQuit = true
	return fyne.NewMenu(Title, capture, settings, fyne.NewMenuItemSeparator(), quitItem)
}

// Install attaches the menu to the system tray. It returns false when the
// driver has no tray support.
func Install(app fyne.App, out messages.Poster, quit func()) bool {
	desk, ok := app.(desktop.App)
	if !ok {
		log.Printf("tray: system tray not supported by this driver")
		return false
	}
	desk.SetSystemTrayMenu(Menu(out, quit))
	desk.SetSystemTrayIcon(Icon)
	return true
}
