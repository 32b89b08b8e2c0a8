package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Hotkey != "f9" {
		t.Errorf("Expected Hotkey to be 'f9', got '%s'", cfg.Hotkey)
	}
	if cfg.Mode != ModeLongPress {
		t.Errorf("Expected Mode to be %q, got %q", ModeLongPress, cfg.Mode)
	}
	if cfg.LongPressTime != 1.0 {
		t.Errorf("Expected LongPressTime to be 1.0, got %v", cfg.LongPressTime)
	}
	if !cfg.ShowNotification {
		t.Error("Expected ShowNotification to default to true")
	}
	if cfg.Path != path {
		t.Errorf("Expected Path %q, got %q", path, cfg.Path)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `hotkey = "Ctrl+Shift+S"
mode = "instant"
long_press_time = 1.5
show_notification = false
api_key = "sk-file"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SILICONFLOW_API_KEY", "sk-env")
	t.Setenv("ENABLE_FILE_LOGGING", "true")

	cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Hotkey != "ctrl+shift+s" {
		t.Errorf("Expected Hotkey to be lowercased, got '%s'", cfg.Hotkey)
	}
	if cfg.Mode != ModeInstant {
		t.Errorf("Expected Mode instant, got %q", cfg.Mode)
	}
	if cfg.ShowNotification {
		t.Error("Expected ShowNotification false from file")
	}
	if cfg.APIKey != "sk-env" {
		t.Errorf("Expected env API key to win, got %q", cfg.APIKey)
	}
	if !cfg.EnableFileLogging {
		t.Error("Expected EnableFileLogging true")
	}

	hk := cfg.HotkeyConfig()
	if hk.Mode != Instant {
		t.Errorf("Expected Instant mode, got %v", hk.Mode)
	}
	if hk.Threshold != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s threshold, got %v", hk.Threshold)
	}
}

func TestAPIKeyOverride(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "sk-env")
	cfg, err := LoadWithOptions(LoadOptions{
		ConfigPathOverride: filepath.Join(t.TempDir(), "none.toml"),
		APIKeyOverride:     "sk-flag",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "sk-flag" {
		t.Errorf("Expected flag API key, got %q", cfg.APIKey)
	}
}

func TestTriggerEnvOverrides(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantHotkey string
		wantMode   string
		wantNotify bool
	}{
		{
			name:       "generic shell variables ignored",
			env:        map[string]string{"MODE": "production", "HOTKEY": "x", "LONG_PRESS_TIME": "9", "SHOW_NOTIFICATION": "false"},
			wantHotkey: DefaultHotkey,
			wantMode:   ModeLongPress,
			wantNotify: true,
		},
		{
			name: "prefixed variables applied",
			env: map[string]string{
				"SCREEN_OCR_HOTKEY_HOTKEY":            "F8",
				"SCREEN_OCR_HOTKEY_MODE":              "instant",
				"SCREEN_OCR_HOTKEY_SHOW_NOTIFICATION": "false",
			},
			wantHotkey: "f8",
			wantMode:   ModeInstant,
			wantNotify: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadWithOptions(LoadOptions{ConfigPathOverride: filepath.Join(t.TempDir(), "none.toml")})
			if err != nil {
				t.Fatalf("LoadWithOptions failed: %v", err)
			}
			if cfg.Hotkey != tt.wantHotkey || cfg.Mode != tt.wantMode || cfg.ShowNotification != tt.wantNotify {
				t.Errorf("got hotkey=%q mode=%q notify=%v", cfg.Hotkey, cfg.Mode, cfg.ShowNotification)
			}
			if cfg.LongPressTime != DefaultLongPress {
				t.Errorf("Expected default long_press_time, got %v", cfg.LongPressTime)
			}
		})
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Mode = "double_tap"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}

	cfg = Default()
	cfg.LongPressTime = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for non-positive long_press_time")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", ConfigFileName)
	cfg := Default()
	cfg.Hotkey = "alt+d"
	cfg.Mode = ModeInstant
	cfg.APIKey = "sk-saved"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadWithOptions(LoadOptions{ConfigPathOverride: path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Hotkey != "alt+d" || loaded.Mode != ModeInstant || loaded.APIKey != "sk-saved" {
		t.Errorf("Unexpected config after round trip: %+v", loaded)
	}
}
