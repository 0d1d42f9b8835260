// Package config loads recompose settings from a TOML file.
//
// The file is optional: every field has a default, and a missing file yields
// [Default]. Values are layered as defaults, then the file, then the
// environment (GEMINI_API_KEY, RECOMPOSE_REDIS_ADDR, RECOMPOSE_MONGO_URI).
//
// Example config.toml:
//
//	[markers]
//	template = "!!TEMPLATE"
//	prefix = "!!"
//
//	[reconcile]
//	debounce = "500ms"
//
//	[ai]
//	text_model = "gemini-2.5-flash"
//	image_model = "gemini-2.5-flash-image"
//	timeout = "90s"
//
//	[cache]
//	redis_addr = "localhost:6379"
//	ttl = "168h"
//
//	[store]
//	kind = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//	mongo_db = "recompose"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/recompose/pkg/ai"
	"github.com/matzehuels/recompose/pkg/container"
	"github.com/matzehuels/recompose/pkg/errors"
	"github.com/matzehuels/recompose/pkg/reconcile"
)

// Store kinds.
const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

// Environment overrides.
const (
	EnvAPIKey    = ai.APIKeyEnv
	EnvRedisAddr = "RECOMPOSE_REDIS_ADDR"
	EnvMongoURI  = "RECOMPOSE_MONGO_URI"
)

// Duration is a time.Duration that decodes from TOML strings like "90s".
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full settings tree.
type Config struct {
	Markers   Markers   `toml:"markers"`
	Reconcile Reconcile `toml:"reconcile"`
	AI        AI        `toml:"ai"`
	Cache     Cache     `toml:"cache"`
	Store     Store     `toml:"store"`
	History   History   `toml:"history"`
	Server    Server    `toml:"server"`
}

// Markers name the template group and container prefix.
type Markers struct {
	Template string `toml:"template"`
	Prefix   string `toml:"prefix"`
}

// Reconcile tunes the reconciliation store.
type Reconcile struct {
	Debounce Duration `toml:"debounce"`
}

// AI configures the generative model.
type AI struct {
	APIKey     string   `toml:"api_key"`
	TextModel  string   `toml:"text_model"`
	ImageModel string   `toml:"image_model"`
	Timeout    Duration `toml:"timeout"`
}

// Cache selects the cache backend. A non-empty RedisAddr wins over Dir.
type Cache struct {
	Disabled  bool     `toml:"disabled"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	RedisDB   int      `toml:"redis_db"`
	TTL       Duration `toml:"ttl"`
	// Scope prefixes every cache key so several projects can share one
	// backend.
	Scope string `toml:"scope"`
}

// Store selects where projects are persisted.
type Store struct {
	Kind     string `toml:"kind"`
	Dir      string `toml:"dir"`
	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`
}

// History locates the generation ledger. An empty path disables it.
type History struct {
	Path string `toml:"path"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Markers:   Markers{Template: container.DefaultTemplateName, Prefix: container.DefaultPrefix},
		Reconcile: Reconcile{Debounce: Duration{reconcile.DefaultDebounce}},
		AI: AI{
			TextModel:  ai.DefaultTextModel,
			ImageModel: ai.DefaultImageModel,
			Timeout:    Duration{ai.DefaultTimeout},
		},
		Store:  Store{Kind: StoreFile, MongoDB: "recompose"},
		Server: Server{Addr: ":8080"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/recompose/config.toml, falling back
// to ~/.config.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "recompose", "config.toml")
}

// Load reads path over the defaults and applies environment overrides. An
// empty path uses [DefaultPath]; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses TOML text over the defaults. Environment overrides are not
// applied.
func Decode(text string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Store.MongoURI = v
	}
}

// Validate fills zero values with defaults and rejects inconsistent
// settings.
func (c *Config) Validate() error {
	def := Default()
	if c.Markers.Template == "" {
		c.Markers.Template = def.Markers.Template
	}
	if c.Markers.Prefix == "" {
		c.Markers.Prefix = def.Markers.Prefix
	}
	if c.Reconcile.Debounce.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "reconcile.debounce must not be negative")
	}
	if c.AI.TextModel == "" {
		c.AI.TextModel = def.AI.TextModel
	}
	if c.AI.ImageModel == "" {
		c.AI.ImageModel = def.AI.ImageModel
	}
	if c.AI.Timeout.Duration <= 0 {
		c.AI.Timeout = def.AI.Timeout
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	switch c.Store.Kind {
	case "":
		c.Store.Kind = StoreFile
	case StoreFile:
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.mongo_uri is required for kind %q", StoreMongo)
		}
		if c.Store.MongoDB == "" {
			c.Store.MongoDB = def.Store.MongoDB
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "store.kind must be %q or %q, got %q", StoreFile, StoreMongo, c.Store.Kind)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	return nil
}

// ContainerOptions returns the extractor settings.
func (c Config) ContainerOptions() container.Options {
	return container.Options{TemplateName: c.Markers.Template, Prefix: c.Markers.Prefix}
}

// AIOptions returns the Gemini client settings.
func (c Config) AIOptions() ai.Options {
	return ai.Options{
		APIKey:     c.AI.APIKey,
		TextModel:  c.AI.TextModel,
		ImageModel: c.AI.ImageModel,
		Timeout:    c.AI.Timeout.Duration,
	}
}
