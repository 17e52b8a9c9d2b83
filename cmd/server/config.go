package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MegaGrindStone/mpp-web-ui/internal/render"
	"github.com/MegaGrindStone/mpp-web-ui/internal/services"
	"github.com/MegaGrindStone/mpp-web-ui/internal/stream"
	"github.com/spf13/viper"
)

type config struct {
	Port      string          `mapstructure:"port"`
	AskStream askStreamConfig `mapstructure:"askstream"`
	Render    renderConfig    `mapstructure:"render"`
	Widget    widgetConfig    `mapstructure:"widget"`
	Journal   journalConfig   `mapstructure:"journal"`
	Log       logConfig       `mapstructure:"log"`
}

type askStreamConfig struct {
	URL             string `mapstructure:"url"`
	RequestIDHeader string `mapstructure:"request_id_header"`
}

type renderConfig struct {
	Format         string `mapstructure:"format"`
	HighlightStyle string `mapstructure:"highlight_style"`
}

type widgetConfig struct {
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
	EndPolicy         string        `mapstructure:"end_policy"`
	BusyPolicy        string        `mapstructure:"busy_policy"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
}

type journalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type logConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	appDirName = "mppwebui"
	envPrefix  = "MPP"
)

// defaultConfigDir is the mppwebui directory in the user's config dir, created if missing.
func defaultConfigDir() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting user config dir: %w", err)
	}
	cfgPath := filepath.Join(cfgDir, appDirName)
	if err := os.MkdirAll(cfgPath, 0755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}
	return cfgPath, nil
}

// initViper layers the configuration: defaults, then config.yaml in configDir, then MPP_*
// environment variables. Flags are bound on top by the commands.
func initViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v, configDir)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

func setViperDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("port", "8080")

	v.SetDefault("askstream.url", "http://127.0.0.1:5000/ask-stream")
	v.SetDefault("askstream.request_id_header", services.DefaultRequestIDHeader)

	v.SetDefault("render.format", string(render.FormatMarkdown))
	v.SetDefault("render.highlight_style", "github")

	v.SetDefault("widget.inactivity_timeout", stream.DefaultInactivityTimeout)
	v.SetDefault("widget.end_policy", "accept")
	v.SetDefault("widget.busy_policy", "reject")
	v.SetDefault("widget.idle_ttl", 30*time.Minute)
	v.SetDefault("widget.sweep_interval", time.Minute)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", filepath.Join(configDir, "journal.db"))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func loadConfig(v *viper.Viper) (config, error) {
	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.AskStream.URL == "" {
		return fmt.Errorf("askstream.url is required")
	}
	if _, err := c.Widget.endPolicy(); err != nil {
		return err
	}
	if _, err := c.Widget.busyPolicy(); err != nil {
		return err
	}
	if c.Widget.InactivityTimeout < 0 {
		return fmt.Errorf("widget.inactivity_timeout must not be negative")
	}
	if c.Widget.IdleTTL <= 0 || c.Widget.SweepInterval <= 0 {
		return fmt.Errorf("widget.idle_ttl and widget.sweep_interval must be positive")
	}
	switch c.Log.Format {
	case "text", "json", "pretty":
	default:
		return fmt.Errorf("unknown log format: %s", c.Log.Format)
	}
	return nil
}

func (w widgetConfig) endPolicy() (stream.EndPolicy, error) {
	switch w.EndPolicy {
	case "accept":
		return stream.EndAccept, nil
	case "fail":
		return stream.EndFail, nil
	default:
		return 0, fmt.Errorf("unknown widget end policy: %s", w.EndPolicy)
	}
}

func (w widgetConfig) busyPolicy() (stream.BusyPolicy, error) {
	switch w.BusyPolicy {
	case "reject":
		return stream.BusyReject, nil
	case "supersede":
		return stream.BusySupersede, nil
	default:
		return 0, fmt.Errorf("unknown widget busy policy: %s", w.BusyPolicy)
	}
}

// widgetOptions turns the widget section into options for every visitor's widget.
func (w widgetConfig) widgetOptions() ([]stream.WidgetOption, error) {
	end, err := w.endPolicy()
	if err != nil {
		return nil, err
	}
	busy, err := w.busyPolicy()
	if err != nil {
		return nil, err
	}
	return []stream.WidgetOption{
		stream.WithInactivityTimeout(w.InactivityTimeout),
		stream.WithEndPolicy(end),
		stream.WithBusyPolicy(busy),
	}, nil
}
