package runtimeinit

import (
	"errors"
	"fmt"
	"log"

	"screen-ocr-hotkey/src/clipboard"
	"screen-ocr-hotkey/src/config"
	"screen-ocr-hotkey/src/llm"
	"screen-ocr-hotkey/src/logutil"
	"screen-ocr-hotkey/src/ocr"
)

// ErrMissingAPIKey means no recognition key was configured in any source.
var ErrMissingAPIKey = errors.New("SILICONFLOW_API_KEY is required. Set api_key in the config file, SILICONFLOW_API_KEY in .env or the environment, or pass --api-key")

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
}

// Bootstrap loads configuration, configures logging and prepares the
// clipboard. A missing API key is not an error here; callers decide.
func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	log.Printf("Config: path=%s hotkey=%s mode=%s long_press_time=%.1f notify=%v", cfg.Path, cfg.Hotkey, cfg.Mode, cfg.LongPressTime, cfg.ShowNotification)
	log.Printf("Config: base_url=%s model=%s max_workers=%d api_key=%s", cfg.BaseURL, cfg.Model, cfg.MaxWorkers, logutil.RedactKey(cfg.APIKey))

	if err := clipboard.Init(); err != nil {
		log.Printf("WARNING: clipboard unavailable, results cannot be copied: %v", err)
	}
	return cfg, nil
}

// NewRecognizer builds the recognition client for cfg.
func NewRecognizer(cfg *config.Config) (*ocr.Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	q, err := llm.New(llm.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to create recognition client: %w", err)
	}
	return ocr.NewClient(q), nil
}
