package settings

import (
	"fmt"
	"log"
	"math"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"screen-ocr-hotkey/src/config"
)

const (
	labelLongPress = "Long press"
	labelInstant   = "Instant"
)

// ApplyFunc persists and activates a new configuration. It runs on the UI
// thread; a returned error is shown in the window, which stays open.
type ApplyFunc func(cfg *config.Config) error

// Window is the settings form. At most one instance is open at a time.
type Window struct {
	app     fyne.App
	current func() *config.Config
	apply   ApplyFunc

	win     fyne.Window
	form    *form
	saveBtn *widget.Button
}

type form struct {
	hotkey    *widget.Select
	mode      *widget.RadioGroup
	longPress *widget.Slider
	pressText *widget.Label
	notify    *widget.Check
	apiKey    *widget.Entry
}

func New(app fyne.App, current func() *config.Config, apply ApplyFunc) *Window {
	return &Window{app: app, current: current, apply: apply}
}

// Show opens the window or focuses the one already open.
func (w *Window) Show() error {
	if w.win != nil {
		w.win.RequestFocus()
		return nil
	}
	cfg := w.current()
	w.form = newForm(cfg)

	win := w.app.NewWindow("Screen OCR Settings")
	w.saveBtn = widget.NewButton("Save", func() { w.save() })
	w.saveBtn.Importance = widget.HighImportance
	cancel := widget.NewButton("Cancel", func() { w.close() })

	items := widget.NewForm(
		widget.NewFormItem("Hotkey", w.form.hotkey),
		widget.NewFormItem("Trigger", w.form.mode),
		widget.NewFormItem("Long press", container.NewBorder(nil, nil, nil, w.form.pressText, w.form.longPress)),
		widget.NewFormItem("", w.form.notify),
		widget.NewFormItem("API key", w.form.apiKey),
	)
	win.SetContent(container.NewVBox(
		items,
		container.NewHBox(cancel, w.saveBtn),
	))
	win.SetOnClosed(func() {
		w.win = nil
		w.form = nil
	})
	win.Resize(fyne.NewSize(420, 0))
	win.CenterOnScreen()
	w.win = win
	win.Show()
	return nil
}

func newForm(cfg *config.Config) *form {
	f := &form{}

	options := append([]string(nil), config.SupportedHotkeys...)
	if !contains(options, cfg.Hotkey) {
		options = append([]string{cfg.Hotkey}, options...)
	}
	f.hotkey = widget.NewSelect(options, nil)
	f.hotkey.SetSelected(cfg.Hotkey)

	f.pressText = widget.NewLabel("")
	f.longPress = widget.NewSlider(config.MinLongPressTime, config.MaxLongPressTime)
	f.longPress.Step = 0.1
	f.longPress.OnChanged = func(v float64) {
		f.pressText.SetText(fmt.Sprintf("%.1f s", v))
	}
	f.longPress.SetValue(clamp(cfg.LongPressTime, config.MinLongPressTime, config.MaxLongPressTime))
	f.pressText.SetText(fmt.Sprintf("%.1f s", f.longPress.Value))

	f.mode = widget.NewRadioGroup([]string{labelLongPress, labelInstant}, func(s string) {
		if s == labelInstant {
			f.longPress.Disable()
		} else {
			f.longPress.Enable()
		}
	})
	f.mode.Horizontal = true
	f.mode.Required = true
	if cfg.Mode == config.ModeInstant {
		f.mode.SetSelected(labelInstant)
	} else {
		f.mode.SetSelected(labelLongPress)
	}

	f.notify = widget.NewCheck("Show a notification when text is recognized", nil)
	f.notify.SetChecked(cfg.ShowNotification)

	f.apiKey = widget.NewPasswordEntry()
	f.apiKey.SetPlaceHolder("SiliconFlow API key")
	f.apiKey.SetText(cfg.APIKey)
	return f
}

// values copies base and applies the form fields.
func (f *form) values(base *config.Config) *config.Config {
	cfg := *base
	cfg.Hotkey = f.hotkey.Selected
	cfg.Mode = config.ModeLongPress
	if f.mode.Selected == labelInstant {
		cfg.Mode = config.ModeInstant
	}
	cfg.LongPressTime = math.Round(f.longPress.Value*10) / 10
	cfg.ShowNotification = f.notify.Checked
	cfg.APIKey = strings.TrimSpace(f.apiKey.Text)
	return &cfg
}

func (w *Window) save() {
	if w.form == nil {
		return
	}
	cfg := w.form.values(w.current())
	if err := cfg.Validate(); err != nil {
		dialog.ShowError(err, w.win)
		return
	}
	if err := w.apply(cfg); err != nil {
		log.Printf("settings: apply failed: %v", err)
		dialog.ShowError(err, w.win)
		return
	}
	log.Printf("settings: saved hotkey=%s mode=%s long_press_time=%.1f notify=%v", cfg.Hotkey, cfg.Mode, cfg.LongPressTime, cfg.ShowNotification)
	w.close()
}

func (w *Window) close() {
	if w.win != nil {
		w.win.Close()
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
