package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"screen-ocr-hotkey/src/clipboard"
	"screen-ocr-hotkey/src/config"
	"screen-ocr-hotkey/src/delivery"
	"screen-ocr-hotkey/src/eventloop"
	"screen-ocr-hotkey/src/hotkey"
	"screen-ocr-hotkey/src/messages"
	"screen-ocr-hotkey/src/notification"
	"screen-ocr-hotkey/src/ocr"
	"screen-ocr-hotkey/src/overlay"
	"screen-ocr-hotkey/src/runtimeinit"
	"screen-ocr-hotkey/src/screenshot"
	"screen-ocr-hotkey/src/session"
	"screen-ocr-hotkey/src/settings"
	"screen-ocr-hotkey/src/singleinstance"
	"screen-ocr-hotkey/src/tray"
	"screen-ocr-hotkey/src/worker"
)

const appID = "io.github.screen-ocr-hotkey"

// application wires the capture pipeline: trigger sources post events, the
// loop dispatches them on the fyne thread, and recognition runs on the pool.
type application struct {
	fyne      fyne.App
	queue     *eventloop.Queue
	loop      *eventloop.Loop
	hotkeys   hotkeyService
	pool      *worker.Pool
	selection *overlay.Controller
	notifier  *notification.Presenter
	settings  *settings.Window
	delivery  *delivery.Delivery
	server    *singleinstance.Server

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	cfg           *config.Config
	recognizer    ocr.Recognizer
	newRecognizer func(cfg *config.Config) (ocr.Recognizer, error)
	saveConfig    func(path string, cfg *config.Config) error
}

// hotkeyService is the trigger listener the application restarts when the
// binding changes. hotkey.Service satisfies it.
type hotkeyService interface {
	Apply(cfg config.HotkeyConfig) error
	Stop()
}

func newClientRecognizer(cfg *config.Config) (ocr.Recognizer, error) {
	c, err := runtimeinit.NewRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newApplication(cfg *config.Config) *application {
	a := &application{
		cfg:           cfg,
		queue:         eventloop.NewQueue(),
		newRecognizer: newClientRecognizer,
		saveConfig:    config.Save,
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.fyne = fyneapp.NewWithID(appID)
	a.fyne.SetIcon(tray.Icon)

	a.notifier = notification.New(a.fyne, cfg.ShowNotification)
	a.delivery = delivery.New(clipboard.System{}, a.queue)
	a.pool = worker.New(cfg.MaxWorkers)
	a.hotkeys = hotkey.NewService(a.queue)
	a.server = singleinstance.NewServer(a.queue)
	a.selection = overlay.NewController(
		overlay.NewFyneFactory(a.fyne, nil),
		screenshot.NewStore("", nil),
		a.spawnRecognition,
		a.queue,
	)
	a.settings = settings.New(a.fyne, a.config, a.applySettings)
	a.loop = eventloop.New(a.queue, eventloop.Handlers{
		Capture: func(ev messages.Capture) error {
			log.Printf("app: capture requested by %s", ev.Source)
			return a.selection.BeginSelection()
		},
		Settings:     a.settings.Show,
		Notification: a.notifier.Show,
	}, eventloop.FyneThread{})

	a.setRecognizer(cfg)
	return a
}

// run blocks on the fyne main loop until Quit.
func (a *application) run(captureNow bool) error {
	if err := a.server.Start(a.ctx); err != nil {
		return fmt.Errorf("%w: %v", errAlreadyRunning, err)
	}
	defer a.server.Close()
	defer a.pool.Close()
	defer a.hotkeys.Stop()

	if err := a.hotkeys.Apply(a.config().HotkeyConfig()); err != nil {
		log.Printf("app: hotkey disabled: %v", err)
		a.queue.Post(messages.Notification{Title: "Hotkey unavailable", Message: err.Error()})
	}

	if !tray.Install(a.fyne, a.queue, a.quit) {
		log.Printf("app: running without a tray menu; use --capture to trigger captures")
	}

	if a.config().APIKey == "" {
		log.Printf("WARNING: %v", runtimeinit.ErrMissingAPIKey)
		a.queue.Post(messages.Settings{})
	}
	if captureNow {
		a.queue.Post(messages.Capture{Source: "command line"})
	}

	go func() {
		if err := a.loop.Run(a.ctx); err != nil && a.ctx.Err() == nil {
			log.Printf("app: event loop stopped: %v", err)
		}
	}()

	log.Printf("Screen OCR hotkey ready: press %s (%s)", a.config().Hotkey, a.config().Mode)
	a.fyne.Run()
	a.loop.Stop()
	a.cancel()
	return nil
}

func (a *application) quit() {
	log.Printf("app: quit requested")
	a.loop.Stop()
	a.cancel()
	a.fyne.Quit()
}

func (a *application) config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *application) currentRecognizer() ocr.Recognizer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recognizer
}

func (a *application) setRecognizer(cfg *config.Config) {
	var rec ocr.Recognizer = missingKeyRecognizer{}
	if c, err := a.newRecognizer(cfg); err == nil {
		rec = c
	} else {
		log.Printf("app: recognition unavailable: %v", err)
	}
	a.mu.Lock()
	a.recognizer = rec
	a.mu.Unlock()
}

// spawnRecognition hands a to the worker pool. The job owns the artifact
// once Submit succeeds.
func (a *application) spawnRecognition(art *screenshot.Artifact) error {
	rec := a.currentRecognizer()
	return a.pool.Submit(a.ctx, "ocr "+art.ID, func(ctx context.Context) {
		_, _ = session.Execute(ctx, art, session.Options{Recognizer: rec, Target: a.delivery})
	})
}

// applySettings persists cfg and replaces the running configuration. It runs
// on the UI thread.
func (a *application) applySettings(cfg *config.Config) error {
	if err := a.saveConfig(cfg.Path, cfg); err != nil {
		return err
	}
	old := a.config()

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	a.notifier.SetShowOptional(cfg.ShowNotification)
	if cfg.APIKey != old.APIKey || cfg.BaseURL != old.BaseURL || cfg.Model != old.Model {
		a.setRecognizer(cfg)
	}
	if cfg.HotkeyConfig() != old.HotkeyConfig() {
		if err := a.hotkeys.Apply(cfg.HotkeyConfig()); err != nil {
			return fmt.Errorf("settings saved, but the hotkey is disabled: %w", err)
		}
	}
	return nil
}

// missingKeyRecognizer fails every recognition until a key is configured.
type missingKeyRecognizer struct{}

func (missingKeyRecognizer) Recognize(context.Context, *screenshot.Artifact) (ocr.Result, error) {
	return ocr.Result{}, runtimeinit.ErrMissingAPIKey
}
