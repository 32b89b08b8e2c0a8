package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fyne.io/fyne/v2"

	"screen-ocr-hotkey/src/config"
	"screen-ocr-hotkey/src/delivery"
	"screen-ocr-hotkey/src/eventloop"
	"screen-ocr-hotkey/src/messages"
	"screen-ocr-hotkey/src/notification"
	"screen-ocr-hotkey/src/ocr"
	"screen-ocr-hotkey/src/runtimeinit"
	"screen-ocr-hotkey/src/screenshot"
	"screen-ocr-hotkey/src/worker"
)

type fakeHotkeys struct {
	applied []config.HotkeyConfig
	err     error
}

func (f *fakeHotkeys) Apply(cfg config.HotkeyConfig) error {
	f.applied = append(f.applied, cfg)
	return f.err
}

func (f *fakeHotkeys) Stop() {}

type countingSender struct{ sent []string }

func (s *countingSender) SendNotification(n *fyne.Notification) { s.sent = append(s.sent, n.Title) }

// keyRecognizer returns the key it was built with as its only line.
type keyRecognizer struct{ key string }

func (r keyRecognizer) Recognize(context.Context, *screenshot.Artifact) (ocr.Result, error) {
	return ocr.Result{Lines: []string{r.key}}, nil
}

type testApp struct {
	*application
	hotkeys *fakeHotkeys
	sender  *countingSender
	builds  int
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := config.Default()
	cfg.APIKey = "sk-1"
	cfg.Path = filepath.Join(t.TempDir(), "config", config.ConfigFileName)

	ta := &testApp{hotkeys: &fakeHotkeys{}, sender: &countingSender{}}
	ta.application = &application{
		cfg:        cfg,
		queue:      eventloop.NewQueue(),
		hotkeys:    ta.hotkeys,
		notifier:   notification.New(ta.sender, cfg.ShowNotification),
		saveConfig: config.Save,
		ctx:        context.Background(),
	}
	ta.newRecognizer = func(c *config.Config) (ocr.Recognizer, error) {
		ta.builds++
		if c.APIKey == "" {
			return nil, runtimeinit.ErrMissingAPIKey
		}
		return keyRecognizer{key: c.APIKey}, nil
	}
	ta.setRecognizer(cfg)
	ta.builds = 0
	return ta
}

func (ta *testApp) edited(edit func(c *config.Config)) *config.Config {
	c := *ta.config()
	edit(&c)
	return &c
}

func TestApplySettings(t *testing.T) {
	tests := []struct {
		name        string
		edit        func(c *config.Config)
		wantRebuild bool
		wantReapply bool
	}{
		{"unchanged", func(c *config.Config) {}, false, false},
		{"api key", func(c *config.Config) { c.APIKey = "sk-2" }, true, false},
		{"base url", func(c *config.Config) { c.BaseURL = "http://localhost:9/v1" }, true, false},
		{"model", func(c *config.Config) { c.Model = "other/model" }, true, false},
		{"binding", func(c *config.Config) { c.Hotkey = "f8" }, false, true},
		{"mode", func(c *config.Config) { c.Mode = config.ModeInstant }, false, true},
		{"threshold", func(c *config.Config) { c.LongPressTime = 1.5 }, false, true},
		{"notifications only", func(c *config.Config) { c.ShowNotification = false }, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			next := ta.edited(tt.edit)

			if err := ta.applySettings(next); err != nil {
				t.Fatalf("applySettings failed: %v", err)
			}
			if ta.config() != next {
				t.Error("expected the saved config to become current")
			}
			if _, err := os.Stat(next.Path); err != nil {
				t.Errorf("expected config persisted: %v", err)
			}
			if got := ta.builds > 0; got != tt.wantRebuild {
				t.Errorf("recognizer rebuilt = %v, want %v", got, tt.wantRebuild)
			}
			if got := len(ta.hotkeys.applied) > 0; got != tt.wantReapply {
				t.Errorf("hotkey reapplied = %v, want %v", got, tt.wantReapply)
			}
			if tt.wantReapply && ta.hotkeys.applied[0] != next.HotkeyConfig() {
				t.Errorf("applied %+v, want %+v", ta.hotkeys.applied[0], next.HotkeyConfig())
			}
		})
	}
}

func TestApplySettingsRebuildUsesNewKey(t *testing.T) {
	ta := newTestApp(t)
	if err := ta.applySettings(ta.edited(func(c *config.Config) { c.APIKey = "sk-new" })); err != nil {
		t.Fatal(err)
	}
	res, err := ta.currentRecognizer().Recognize(context.Background(), nil)
	if err != nil || res.Text() != "sk-new" {
		t.Errorf("expected recognizer for sk-new, got %q %v", res.Text(), err)
	}

	if err := ta.applySettings(ta.edited(func(c *config.Config) { c.APIKey = "" })); err != nil {
		t.Fatal(err)
	}
	if _, ok := ta.currentRecognizer().(missingKeyRecognizer); !ok {
		t.Errorf("expected missingKeyRecognizer after clearing the key, got %T", ta.currentRecognizer())
	}
}

func TestApplySettingsHookFailureKeepsSavedConfig(t *testing.T) {
	ta := newTestApp(t)
	hookErr := errors.New("hook refused")
	ta.hotkeys.err = hookErr
	next := ta.edited(func(c *config.Config) { c.Hotkey = "f7" })

	err := ta.applySettings(next)
	if err == nil || !strings.Contains(err.Error(), "settings saved, but the hotkey is disabled") {
		t.Fatalf("expected hotkey-disabled error, got %v", err)
	}
	if !errors.Is(err, hookErr) {
		t.Errorf("expected wrapped hook error, got %v", err)
	}
	if ta.config() != next {
		t.Error("config must stay replaced after a hook failure")
	}

	t.Setenv("SCREEN_OCR_HOTKEY_HOTKEY", "")
	loaded, lerr := config.LoadWithOptions(config.LoadOptions{ConfigPathOverride: next.Path})
	if lerr != nil {
		t.Fatalf("reload failed: %v", lerr)
	}
	if loaded.Hotkey != "f7" {
		t.Errorf("persisted hotkey = %q, want f7", loaded.Hotkey)
	}
}

func TestApplySettingsSaveFailureChangesNothing(t *testing.T) {
	ta := newTestApp(t)
	before := ta.config()
	ta.saveConfig = func(string, *config.Config) error { return errors.New("disk full") }

	if err := ta.applySettings(ta.edited(func(c *config.Config) { c.Hotkey = "f7"; c.APIKey = "sk-2" })); err == nil {
		t.Fatal("expected save error")
	}
	if ta.config() != before || ta.builds != 0 || len(ta.hotkeys.applied) != 0 {
		t.Error("a failed save must not change the running configuration")
	}
}

func TestApplySettingsTogglesOptionalNotifications(t *testing.T) {
	ta := newTestApp(t)
	optional := messages.Notification{Title: delivery.TitleSuccess, Message: "hi", Optional: true}
	failure := messages.Notification{Title: delivery.TitleFailure, Message: "boom"}

	if err := ta.applySettings(ta.edited(func(c *config.Config) { c.ShowNotification = false })); err != nil {
		t.Fatal(err)
	}
	_ = ta.notifier.Show(optional)
	_ = ta.notifier.Show(failure)
	if len(ta.sender.sent) != 1 || ta.sender.sent[0] != delivery.TitleFailure {
		t.Fatalf("with notifications off, sent %v", ta.sender.sent)
	}

	if err := ta.applySettings(ta.edited(func(c *config.Config) { c.ShowNotification = true })); err != nil {
		t.Fatal(err)
	}
	_ = ta.notifier.Show(optional)
	if len(ta.sender.sent) != 2 {
		t.Errorf("with notifications on, sent %v", ta.sender.sent)
	}
}

type memoryClipboard struct {
	mu   sync.Mutex
	text string
}

func (c *memoryClipboard) Write(text string) error {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
	return nil
}

func TestSpawnRecognitionDeliversAndRemovesArtifact(t *testing.T) {
	ta := newTestApp(t)
	clip := &memoryClipboard{}
	ta.delivery = delivery.New(clip, ta.queue)
	ta.pool = worker.New(1)

	path := filepath.Join(t.TempDir(), "capture.png")
	if err := os.WriteFile(path, []byte("png"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := ta.spawnRecognition(&screenshot.Artifact{ID: "a1", Path: path}); err != nil {
		t.Fatalf("spawnRecognition failed: %v", err)
	}
	ta.pool.Close()

	if clip.text != "sk-1" {
		t.Errorf("clipboard = %q, want sk-1", clip.text)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected artifact removed after the job")
	}
	evs := ta.queue.Drain()
	if len(evs) != 1 {
		t.Fatalf("expected one notification, got %v", evs)
	}
	if n, ok := evs[0].(messages.Notification); !ok || n.Title != delivery.TitleSuccess {
		t.Errorf("expected success notification, got %+v", evs[0])
	}
}

func TestSpawnRecognitionAfterCloseFails(t *testing.T) {
	ta := newTestApp(t)
	ta.pool = worker.New(1)
	ta.pool.Close()
	if err := ta.spawnRecognition(&screenshot.Artifact{ID: "a2"}); !errors.Is(err, worker.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
