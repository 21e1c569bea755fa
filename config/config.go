// Package config loads server settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tjpa/sgf-engine/calendar"
	"github.com/tjpa/sgf-engine/engine"
	"github.com/tjpa/sgf-engine/feed"
)

const (
	configPathEnv = "SGF_CONFIG"
	portEnv       = "SGF_PORT"
	dbPathEnv     = "SGF_DB_PATH"
	logLevelEnv   = "SGF_LOG_LEVEL"
)

// Config holds every setting the server needs.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Log      LogConfig       `yaml:"log"`
	Engine   EngineConfig    `yaml:"engine"`
	Feed     FeedConfig      `yaml:"feed"`
	Holidays []HolidayConfig `yaml:"holidays"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// DatabaseConfig points at the SQLite file; ":memory:" is allowed.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// EngineConfig mirrors engine.Options. Severities use their display names.
type EngineConfig struct {
	Offsets            []int          `yaml:"offsets"`
	SeverityByOffset   map[int]string `yaml:"severityByOffset"`
	CriticalWindowDays *int           `yaml:"criticalWindowDays"`
}

type FeedConfig struct {
	ExpiryWindowDays       int `yaml:"expiryWindowDays"`
	ExpiryHighDays         int `yaml:"expiryHighDays"`
	ExpiryMediumDays       int `yaml:"expiryMediumDays"`
	ReadjustmentWindowDays int `yaml:"readjustmentWindowDays"`
}

// HolidayConfig is one entry of the versioned holiday list.
type HolidayConfig struct {
	Date      string `yaml:"date"`
	Name      string `yaml:"name"`
	Recurring bool   `yaml:"recurring"`
}

// Load reads the file named by SGF_CONFIG (if any) and applies environment
// overrides. Unreadable or unparseable files fall back to defaults.
func Load(log *slog.Logger) Config {
	return LoadFile(os.Getenv(configPathEnv), log)
}

// LoadFile is Load with an explicit path. An empty path means defaults.
func LoadFile(path string, log *slog.Logger) Config {
	cfg := Default()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Warn("config: cannot read file, falling back to defaults", "path", path, "err", err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Warn("config: cannot parse file, falling back to defaults", "path", path, "err", err)
			} else {
				cfg = merge(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides(log)
	return cfg
}

func (c *Config) applyEnvOverrides(log *slog.Logger) {
	if v := os.Getenv(portEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		} else {
			log.Warn("config: ignoring non-numeric port", "env", portEnv, "value", v)
		}
	}
	if v := os.Getenv(dbPathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Log.Level = v
	}
}

func merge(base, override Config) Config {
	if override.Server.Port != 0 {
		base.Server.Port = override.Server.Port
	}
	if len(override.Server.AllowedOrigins) > 0 {
		base.Server.AllowedOrigins = override.Server.AllowedOrigins
	}
	if override.Database.Path != "" {
		base.Database.Path = override.Database.Path
	}
	if override.Log.Level != "" {
		base.Log.Level = override.Log.Level
	}

	if len(override.Engine.Offsets) > 0 {
		base.Engine.Offsets = override.Engine.Offsets
	}
	if len(override.Engine.SeverityByOffset) > 0 {
		base.Engine.SeverityByOffset = override.Engine.SeverityByOffset
	}
	if override.Engine.CriticalWindowDays != nil {
		base.Engine.CriticalWindowDays = override.Engine.CriticalWindowDays
	}

	if override.Feed.ExpiryWindowDays != 0 {
		base.Feed.ExpiryWindowDays = override.Feed.ExpiryWindowDays
	}
	if override.Feed.ExpiryHighDays != 0 {
		base.Feed.ExpiryHighDays = override.Feed.ExpiryHighDays
	}
	if override.Feed.ExpiryMediumDays != 0 {
		base.Feed.ExpiryMediumDays = override.Feed.ExpiryMediumDays
	}
	if override.Feed.ReadjustmentWindowDays != 0 {
		base.Feed.ReadjustmentWindowDays = override.Feed.ReadjustmentWindowDays
	}

	// A file holiday list replaces the defaults entirely: it is the
	// versioned calendar for the office.
	if override.Holidays != nil {
		base.Holidays = override.Holidays
	}
	return base
}

// Default returns the built-in configuration.
func Default() Config {
	eng := engine.DefaultOptions()
	sev := make(map[int]string, len(eng.SeverityByOffset))
	for k, v := range eng.SeverityByOffset {
		sev[k] = string(v)
	}
	window := eng.CriticalWindowDays
	fd := feed.DefaultOptions()

	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{Path: "sgf.db"},
		Log:      LogConfig{Level: "info"},
		Engine: EngineConfig{
			Offsets:            eng.Offsets,
			SeverityByOffset:   sev,
			CriticalWindowDays: &window,
		},
		Feed: FeedConfig{
			ExpiryWindowDays:       fd.ExpiryWindowDays,
			ExpiryHighDays:         fd.ExpiryHighDays,
			ExpiryMediumDays:       fd.ExpiryMediumDays,
			ReadjustmentWindowDays: fd.ReadjustmentWindowDays,
		},
		Holidays: []HolidayConfig{
			{Date: "2024-01-01", Name: "Confraternização Universal"},
			{Date: "2024-05-01", Name: "Dia do Trabalho"},
			{Date: "2024-09-07", Name: "Independência do Brasil"},
			{Date: "2024-10-12", Name: "Nossa Senhora Aparecida"},
			{Date: "2024-12-25", Name: "Natal"},
		},
	}
}

// EngineOptions converts and validates the engine section.
func (c Config) EngineOptions() (engine.Options, error) {
	opts := engine.Options{
		Offsets:          append([]int(nil), c.Engine.Offsets...),
		SeverityByOffset: make(map[int]engine.Severity, len(c.Engine.SeverityByOffset)),
	}
	for off, name := range c.Engine.SeverityByOffset {
		sev := engine.Severity(name)
		if !sev.Valid() {
			return engine.Options{}, &engine.OptionsError{Field: "severityByOffset", Reason: fmt.Sprintf("unknown severity %q", name)}
		}
		opts.SeverityByOffset[off] = sev
	}
	if c.Engine.CriticalWindowDays != nil {
		opts.CriticalWindowDays = *c.Engine.CriticalWindowDays
	}
	if err := opts.Validate(); err != nil {
		return engine.Options{}, err
	}
	return opts, nil
}

// FeedOptions converts the feed section.
func (c Config) FeedOptions() feed.Options {
	return feed.Options{
		ExpiryWindowDays:       c.Feed.ExpiryWindowDays,
		ExpiryHighDays:         c.Feed.ExpiryHighDays,
		ExpiryMediumDays:       c.Feed.ExpiryMediumDays,
		ReadjustmentWindowDays: c.Feed.ReadjustmentWindowDays,
	}
}

// HolidayList parses the holiday section. IDs are derived from the date so
// reloading the same list is idempotent.
func (c Config) HolidayList() ([]calendar.Holiday, error) {
	out := make([]calendar.Holiday, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		d, err := calendar.Parse(h.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h.Name, err)
		}
		id := "holiday-" + d.String()
		if h.Recurring {
			id = "holiday-recurring-" + d.Time().Format("01-02")
		}
		out = append(out, calendar.Holiday{ID: id, Date: d, Name: h.Name, Recurring: h.Recurring})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
