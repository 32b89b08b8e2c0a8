package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ConfigFileName     = "hotkey_config.toml"
	ConfigPathEnvVar   = "SCREEN_OCR_HOTKEY_CONFIG"
	DefaultHotkey      = "f9"
	DefaultLongPress   = 1.0
	DefaultBaseURL     = "https://api.siliconflow.cn/v1"
	DefaultModel       = "PaddlePaddle/PaddleOCR-VL-1.5"
	DefaultMaxWorkers  = 2
	MinLongPressTime   = 0.5
	MaxLongPressTime   = 2.0
	ModeInstant        = "instant"
	ModeLongPress      = "long_press"
	apiKeyEnvVar       = "SILICONFLOW_API_KEY"
	fileLoggingEnvVar  = "ENABLE_FILE_LOGGING"
	hotkeyEnvVar       = "SCREEN_OCR_HOTKEY_HOTKEY"
	modeEnvVar         = "SCREEN_OCR_HOTKEY_MODE"
	longPressEnvVar    = "SCREEN_OCR_HOTKEY_LONG_PRESS_TIME"
	notificationEnvVar = "SCREEN_OCR_HOTKEY_SHOW_NOTIFICATION"
)

var ErrInvalidMode = errors.New("invalid trigger mode")

// SupportedHotkeys lists the bindings offered by the settings window.
var SupportedHotkeys = []string{
	"f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f12",
	"insert", "delete", "home", "end", "page up", "page down",
	"scroll lock", "pause", "print screen",
	"ctrl+a", "ctrl+b", "ctrl+c", "ctrl+d", "ctrl+e", "ctrl+f",
	"ctrl+shift+a", "ctrl+shift+s", "ctrl+shift+d",
	"alt+a", "alt+s", "alt+d", "alt+f",
	"ctrl+alt+a", "ctrl+alt+s",
}

type LoadOptions struct {
	ConfigPathOverride string
	APIKeyOverride     string
}

// Config is the persisted application configuration. Field tags are the keys
// of hotkey_config.toml.
type Config struct {
	Hotkey           string  `toml:"hotkey"`
	Mode             string  `toml:"mode"`
	LongPressTime    float64 `toml:"long_press_time"`
	ShowNotification bool    `toml:"show_notification"`
	APIKey           string  `toml:"api_key"`
	BaseURL          string  `toml:"base_url"`
	Model            string  `toml:"model"`
	MaxWorkers       int     `toml:"max_workers"`

	EnableFileLogging bool   `toml:"-"`
	Path              string `toml:"-"`
}

// Mode selects how a single-key binding turns into a capture trigger.
type Mode int

const (
	LongPress Mode = iota
	Instant
)

func (m Mode) String() string {
	if m == Instant {
		return ModeInstant
	}
	return ModeLongPress
}

// HotkeyConfig is the immutable trigger configuration for one session. It is
// replaced wholesale when settings are saved.
type HotkeyConfig struct {
	Binding   string
	Mode      Mode
	Threshold time.Duration
}

func Default() *Config {
	return &Config{
		Hotkey:           DefaultHotkey,
		Mode:             ModeLongPress,
		LongPressTime:    DefaultLongPress,
		ShowNotification: true,
		BaseURL:          DefaultBaseURL,
		Model:            DefaultModel,
		MaxWorkers:       DefaultMaxWorkers,
	}
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) hotkey_config.toml (next to the executable or SCREEN_OCR_HOTKEY_CONFIG)
	// 2) .env next to the executable, then process environment
	// 3) explicit overrides from the command line
	cfg := Default()
	cfg.Path = resolveConfigPath(opts)

	if cfg.Path != "" {
		if _, err := os.Stat(cfg.Path); err == nil {
			if _, err := toml.DecodeFile(cfg.Path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", cfg.Path, err)
			}
		}
	}

	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}
	applyEnv(cfg)

	if key := strings.TrimSpace(opts.APIKeyOverride); key != "" {
		cfg.APIKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes casing and rejects values the trigger detector cannot use.
func (c *Config) Validate() error {
	c.Hotkey = strings.ToLower(strings.TrimSpace(c.Hotkey))
	if c.Hotkey == "" {
		c.Hotkey = DefaultHotkey
	}
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	switch c.Mode {
	case ModeInstant, ModeLongPress:
	case "":
		c.Mode = ModeLongPress
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if c.LongPressTime <= 0 {
		return fmt.Errorf("long_press_time must be positive, got %v", c.LongPressTime)
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	return nil
}

// HotkeyConfig returns the trigger settings derived from c.
func (c *Config) HotkeyConfig() HotkeyConfig {
	mode := LongPress
	if c.Mode == ModeInstant {
		mode = Instant
	}
	return HotkeyConfig{
		Binding:   c.Hotkey,
		Mode:      mode,
		Threshold: time.Duration(c.LongPressTime * float64(time.Second)),
	}
}

// Save writes cfg as TOML to path, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func resolveConfigPath(opts LoadOptions) string {
	if p := strings.TrimSpace(opts.ConfigPathOverride); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); p != "" {
		return p
	}
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(execPath), "config", ConfigFileName)
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(hotkeyEnvVar); v != "" {
		cfg.Hotkey = v
	}
	if v := os.Getenv(modeEnvVar); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv(longPressEnvVar); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.LongPressTime = f
		}
	}
	if v := os.Getenv(notificationEnvVar); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ShowNotification = b
		}
	}
	if v := strings.TrimSpace(os.Getenv(apiKeyEnvVar)); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("OCR_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("OCR_MODEL"); v != "" {
		cfg.Model = v
	}
	cfg.EnableFileLogging = strings.ToLower(os.Getenv(fileLoggingEnvVar)) == "true"
}
