// Package config loads the service configuration.
//
// Values are resolved by viper in this order: bound flags, MUDRA_* environment
// variables, the YAML config file, then the defaults set here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. MUDRA_SERVER_ADDR.
const EnvPrefix = "MUDRA"

// Detector kinds.
const (
	DetectorMediaPipe = "mediapipe"
	DetectorNone      = "none"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Translate  TranslateConfig  `mapstructure:"translate"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string  `mapstructure:"addr"`
	StaticDir      string  `mapstructure:"static_dir"` // generated audio is written and served from here
	WebDir         string  `mapstructure:"web_dir"`
	AllowedOrigin  string  `mapstructure:"allowed_origin"`
	MaxBodyBytes   int64   `mapstructure:"max_body_bytes"`
	TranslateRPS   float64 `mapstructure:"translate_rps"`
	TranslateBurst int     `mapstructure:"translate_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// DetectorConfig selects and tunes the hand landmark detector.
type DetectorConfig struct {
	Kind          string        `mapstructure:"kind"`
	Script        string        `mapstructure:"script"`
	Python        string        `mapstructure:"python"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	MaxHands      int           `mapstructure:"max_hands"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
}

// ClassifierConfig points at the sign classifier artifact and its labels.
type ClassifierConfig struct {
	Kind    string `mapstructure:"kind"`
	Path    string `mapstructure:"path"`
	Threads int    `mapstructure:"threads"`
	Labels  string `mapstructure:"labels"`
}

// TranslateConfig configures the translation and speech backends.
// Translation is disabled when APIKey is empty.
type TranslateConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	SourceLang string        `mapstructure:"source_lang"`
	TargetLang string        `mapstructure:"target_lang"`
	VoiceLang  string        `mapstructure:"voice_lang"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether translation has credentials.
func (t TranslateConfig) Enabled() bool {
	return strings.TrimSpace(t.APIKey) != ""
}

// DataDir is the per-user directory holding the database, models and scripts.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// DefaultPath is the config file read when none is given explicitly.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// SetDefaults registers every key with its default value. Keys must be known
// to viper for AutomaticEnv to apply during Unmarshal.
func SetDefaults(v *viper.Viper) {
	dataDir := DataDir()

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("server.web_dir", "")
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.translate_rps", 2.0)
	v.SetDefault("server.translate_burst", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("store.path", filepath.Join(dataDir, "mudra.db"))

	v.SetDefault("detector.kind", DetectorMediaPipe)
	v.SetDefault("detector.script", "")
	v.SetDefault("detector.python", "")
	v.SetDefault("detector.min_confidence", 0.3)
	v.SetDefault("detector.max_hands", 1)
	v.SetDefault("detector.idle_timeout", 30*time.Second)

	v.SetDefault("classifier.kind", "")
	v.SetDefault("classifier.path", filepath.Join(dataDir, "models", "model.tflite"))
	v.SetDefault("classifier.threads", 1)
	v.SetDefault("classifier.labels", "")

	v.SetDefault("translate.api_key", "")
	v.SetDefault("translate.model", "gemini-1.5-flash")
	v.SetDefault("translate.source_lang", "en")
	v.SetDefault("translate.target_lang", "es")
	v.SetDefault("translate.voice_lang", "es-ES")
	v.SetDefault("translate.cache_ttl", time.Hour)
	v.SetDefault("translate.timeout", 30*time.Second)
}

// Load reads configuration into v and decodes it. An empty path falls back to
// DefaultPath, which may be absent; an explicit path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if _, err := os.Stat(DefaultPath()); err == nil {
		v.SetConfigFile(DefaultPath())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", DefaultPath(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Detector.Kind = strings.ToLower(strings.TrimSpace(cfg.Detector.Kind))
	cfg.Classifier.Kind = strings.ToLower(strings.TrimSpace(cfg.Classifier.Kind))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.StaticDir == "" {
		errs = append(errs, errors.New("server.static_dir must not be empty"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if c.Server.TranslateRPS <= 0 {
		errs = append(errs, fmt.Errorf("server.translate_rps must be positive, got %v", c.Server.TranslateRPS))
	}
	if c.Server.TranslateBurst < 1 {
		errs = append(errs, fmt.Errorf("server.translate_burst must be at least 1, got %d", c.Server.TranslateBurst))
	}

	switch strings.ToLower(c.Detector.Kind) {
	case DetectorMediaPipe, DetectorNone:
	default:
		errs = append(errs, fmt.Errorf("detector.kind must be %q or %q, got %q", DetectorMediaPipe, DetectorNone, c.Detector.Kind))
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_confidence must be within [0,1], got %v", c.Detector.MinConfidence))
	}
	if c.Detector.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("detector.max_hands must be at least 1, got %d", c.Detector.MaxHands))
	}

	if c.Classifier.Threads < 0 {
		errs = append(errs, fmt.Errorf("classifier.threads must not be negative, got %d", c.Classifier.Threads))
	}

	if c.Translate.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("translate.timeout must be positive, got %v", c.Translate.Timeout))
	}
	if c.Translate.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("translate.cache_ttl must not be negative, got %v", c.Translate.CacheTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
