package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

type Config struct {
	LogLevel   string           `json:"log_level"`
	Tray       TrayConfig       `json:"tray"`
	Compositor CompositorConfig `json:"compositor"`
	Inject     InjectConfig     `json:"inject"`
}

type TrayConfig struct {
	// AppID is the item title/id mirrored by the indicator proxy.
	// Items registered under any other identity stay tracked but unrendered.
	AppID string `json:"app_id"`
}

type CompositorConfig struct {
	Service   string `json:"service"`
	Path      string `json:"path"`
	Interface string `json:"interface"`
}

type InjectConfig struct {
	// PressEnter submits the pasted text with a trailing Enter,
	// useful when the target is a terminal.
	PressEnter bool `json:"press_enter"`
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	path := configPath()

	// Default config
	cfg := &Config{
		LogLevel: "info",
		Tray: TrayConfig{
			AppID: "tapshell",
		},
		Compositor: CompositorConfig{
			Service:   "org.gnome.Shell",
			Path:      "/org/gnome/Shell/Extensions/TapShell",
			Interface: "org.gnome.Shell.Extensions.TapShell",
		},
		Inject: InjectConfig{
			PressEnter: true,
		},
	}

	// Load existing config if it exists
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// configPath returns the XDG config file path
func configPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = os.Getenv("HOME") + "/.config"
	}

	return filepath.Join(base, "tapshell", "config.json")
}
