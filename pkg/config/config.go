package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oarkflow/bcl"
	"github.com/oarkflow/json"
	"github.com/oarkflow/log"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Address string `json:"address" yaml:"address"`
	Prefork bool   `json:"prefork" yaml:"prefork"`
	// BodyLimit caps request bodies in bytes.
	BodyLimit int `json:"body_limit" yaml:"body_limit"`
}

type RuntimeConfig struct {
	MaxSourceBytes  int  `json:"max_source_bytes" yaml:"max_source_bytes"`
	MaxNestingDepth int  `json:"max_nesting_depth" yaml:"max_nesting_depth"`
	LogExecution    bool `json:"log_execution" yaml:"log_execution"`
}

// HistoryConfig selects where executed runs are recorded.
type HistoryConfig struct {
	Driver   string `json:"driver" yaml:"driver"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	// URI and Collection are used by the mongodb driver.
	URI        string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Limit      int    `json:"limit" yaml:"limit"`
}

type CacheConfig struct {
	MaxPrograms int `json:"max_programs" yaml:"max_programs"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// EventsConfig forwards run events to RabbitMQ when AMQPURL is set.
type EventsConfig struct {
	AMQPURL string `json:"amqp_url,omitempty" yaml:"amqp_url,omitempty"`
	Queue   string `json:"queue,omitempty" yaml:"queue,omitempty"`
}

// ScheduleConfig runs Source on a cron schedule.
type ScheduleConfig struct {
	Name   string `json:"name" yaml:"name"`
	Cron   string `json:"cron" yaml:"cron"`
	Source string `json:"source" yaml:"source"`
}

type Config struct {
	Server    ServerConfig     `json:"server" yaml:"server"`
	Runtime   RuntimeConfig    `json:"runtime" yaml:"runtime"`
	History   HistoryConfig    `json:"history" yaml:"history"`
	Cache     CacheConfig      `json:"cache" yaml:"cache"`
	Log       LogConfig        `json:"log" yaml:"log"`
	Events    EventsConfig     `json:"events" yaml:"events"`
	Schedules []ScheduleConfig `json:"schedules" yaml:"schedules"`
}

const (
	HistoryMemory   = "memory"
	HistoryFile     = "file"
	HistoryMySQL    = "mysql"
	HistoryPostgres = "postgres"
	HistoryMongo    = "mongodb"
)

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:   ":8080",
			BodyLimit: 4 << 20,
		},
		Runtime: RuntimeConfig{
			MaxSourceBytes:  1 << 20,
			MaxNestingDepth: 256,
		},
		History: HistoryConfig{
			Driver: HistoryMemory,
			Limit:  1000,
		},
		Cache: CacheConfig{MaxPrograms: 1024},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads a config file, choosing the decoder from its extension.
func Load(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, err := decoderFor(strings.TrimPrefix(ext, "."))
	if err != nil {
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(raw, fn)
}

// LoadFromString decodes raw text in the named format (yaml, json or bcl).
func LoadFromString(content, format string) (*Config, error) {
	fn, err := decoderFor(strings.ToLower(format))
	if err != nil {
		return nil, err
	}
	return decode([]byte(content), fn)
}

func decoderFor(format string) (func([]byte, any) error, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Unmarshal, nil
	case "json":
		return func(data []byte, v any) error {
			return json.Unmarshal(data, v)
		}, nil
	case "bcl":
		return func(data []byte, v any) error {
			_, err := bcl.Unmarshal(data, v)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func decode(data []byte, fn func([]byte, any) error) (*Config, error) {
	cfg := Default()
	if err := fn(data, cfg); err != nil {
		return nil, err
	}
	cfg.History.Driver = strings.ToLower(strings.TrimSpace(cfg.History.Driver))
	return cfg, cfg.Validate()
}

// Validate checks limits and the history driver settings.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}
	if cfg.Runtime.MaxSourceBytes < 0 {
		return fmt.Errorf("runtime max_source_bytes must not be negative")
	}
	if cfg.Runtime.MaxNestingDepth < 0 {
		return fmt.Errorf("runtime max_nesting_depth must not be negative")
	}
	if cfg.Cache.MaxPrograms < 0 {
		return fmt.Errorf("cache max_programs must not be negative")
	}
	if cfg.History.Limit < 0 {
		return fmt.Errorf("history limit must not be negative")
	}
	switch cfg.History.Driver {
	case HistoryMemory:
	case HistoryFile:
		if cfg.History.Path == "" {
			return fmt.Errorf("history driver %s requires a path", cfg.History.Driver)
		}
	case HistoryMySQL, HistoryPostgres:
		if cfg.History.Host == "" || cfg.History.Database == "" {
			return fmt.Errorf("history driver %s requires host and database", cfg.History.Driver)
		}
	case HistoryMongo:
		if cfg.History.URI == "" || cfg.History.Database == "" {
			return fmt.Errorf("history driver %s requires uri and database", cfg.History.Driver)
		}
	default:
		return fmt.Errorf("unknown history driver %q", cfg.History.Driver)
	}
	seen := make(map[string]bool, len(cfg.Schedules))
	for idx, sched := range cfg.Schedules {
		if sched.Name == "" {
			return fmt.Errorf("schedule at index %d is missing a name", idx)
		}
		if seen[sched.Name] {
			return fmt.Errorf("duplicate schedule %s", sched.Name)
		}
		seen[sched.Name] = true
		if sched.Cron == "" {
			return fmt.Errorf("schedule %s missing cron expression", sched.Name)
		}
		if strings.TrimSpace(sched.Source) == "" {
			return fmt.Errorf("schedule %s missing source", sched.Name)
		}
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a log level. An empty name means info.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return log.TraceLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}
