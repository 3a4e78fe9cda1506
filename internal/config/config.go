// Package config loads overlay settings from defaults, an optional YAML
// file, a .env file and HISTORIC_FLAG_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "HISTORIC_FLAG_"

type Discovery struct {
	Host         string        `yaml:"host"`
	DefaultPort  int           `yaml:"default_port"`
	SweepLow     int           `yaml:"sweep_low"`
	SweepHigh    int           `yaml:"sweep_high"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	Path         string        `yaml:"path"`
	LegacyPath   string        `yaml:"legacy_path"`
	CachePath    string        `yaml:"cache_path"`
	CacheKey     string        `yaml:"cache_key"`
}

type Bridge struct {
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// View holds the synchronizer timings. The delays were tuned against
// client render latency and are not load-bearing.
type View struct {
	AssetPath        string          `yaml:"asset_path"`
	RetryDelay       time.Duration   `yaml:"retry_delay"`
	MaxRetries       int             `yaml:"max_retries"`
	PhaseEnterDelay  time.Duration   `yaml:"phase_enter_delay"`
	HistoricDelays   []time.Duration `yaml:"historic_delays"`
	InitDelays       []time.Duration `yaml:"init_delays"`
	LabelTTL         time.Duration   `yaml:"label_ttl"`
	MutationDebounce time.Duration   `yaml:"mutation_debounce"`
}

type Client struct {
	DevToolsURL string `yaml:"devtools_url"`
	PageMatch   string `yaml:"page_match"`
}

type Config struct {
	LogLevel  string    `yaml:"log_level"`
	LogSource string    `yaml:"log_source"`
	Discovery Discovery `yaml:"discovery"`
	Bridge    Bridge    `yaml:"bridge"`
	View      View      `yaml:"view"`
	Client    Client    `yaml:"client"`
}

func Default() Config {
	return Config{
		LogLevel:  "info",
		LogSource: "historic-flag",
		Discovery: Discovery{
			Host:         "localhost",
			DefaultPort:  50000,
			SweepLow:     50000,
			SweepHigh:    50010,
			ProbeTimeout: 500 * time.Millisecond,
			Path:         "/bridge-port",
			LegacyPath:   "/port",
			CacheKey:     "historic_flag.bridge_port",
		},
		Bridge: Bridge{
			ReconnectDelay: 3 * time.Second,
			DialTimeout:    5 * time.Second,
			WriteTimeout:   3 * time.Second,
		},
		View: View{
			AssetPath:        "historic_flag.png",
			RetryDelay:       500 * time.Millisecond,
			MaxRetries:       5,
			PhaseEnterDelay:  250 * time.Millisecond,
			HistoricDelays:   []time.Duration{50 * time.Millisecond, time.Second},
			InitDelays:       []time.Duration{time.Second, 3 * time.Second},
			LabelTTL:         5 * time.Second,
			MutationDebounce: 100 * time.Millisecond,
		},
		Client: Client{
			DevToolsURL: "http://127.0.0.1:8999",
			PageMatch:   "index.html",
		},
	}
}

// Load resolves the effective configuration. A missing .env or config file
// is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(os.Getenv); err != nil {
		return nil, err
	}

	if cfg.Discovery.CachePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir := filepath.Join(home, ".historic-flag")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		cfg.Discovery.CachePath = filepath.Join(dir, "storage.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := getenv(envPrefix + key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v := getenv(envPrefix + key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = d
		return nil
	}
	durs := func(key string, dst *[]time.Duration) error {
		v := getenv(envPrefix + key)
		if v == "" {
			return nil
		}
		var out []time.Duration
		for _, part := range strings.Split(v, ",") {
			d, err := time.ParseDuration(strings.TrimSpace(part))
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			out = append(out, d)
		}
		*dst = out
		return nil
	}

	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_SOURCE", &c.LogSource)
	str("HOST", &c.Discovery.Host)
	str("DISCOVERY_PATH", &c.Discovery.Path)
	str("LEGACY_PATH", &c.Discovery.LegacyPath)
	str("CACHE_PATH", &c.Discovery.CachePath)
	str("ASSET_PATH", &c.View.AssetPath)
	str("DEVTOOLS_URL", &c.Client.DevToolsURL)
	str("PAGE_MATCH", &c.Client.PageMatch)

	for _, f := range []func() error{
		func() error { return num("DEFAULT_PORT", &c.Discovery.DefaultPort) },
		func() error { return num("SWEEP_LOW", &c.Discovery.SweepLow) },
		func() error { return num("SWEEP_HIGH", &c.Discovery.SweepHigh) },
		func() error { return num("MAX_RETRIES", &c.View.MaxRetries) },
		func() error { return dur("PROBE_TIMEOUT", &c.Discovery.ProbeTimeout) },
		func() error { return dur("RECONNECT_DELAY", &c.Bridge.ReconnectDelay) },
		func() error { return dur("RETRY_DELAY", &c.View.RetryDelay) },
		func() error { return dur("PHASE_ENTER_DELAY", &c.View.PhaseEnterDelay) },
		func() error { return dur("LABEL_TTL", &c.View.LabelTTL) },
		func() error { return dur("MUTATION_DEBOUNCE", &c.View.MutationDebounce) },
		func() error { return durs("HISTORIC_DELAYS", &c.View.HistoricDelays) },
		func() error { return durs("INIT_DELAYS", &c.View.InitDelays) },
	} {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) Validate() error {
	d := c.Discovery
	if d.DefaultPort <= 0 || d.DefaultPort > 65535 {
		return fmt.Errorf("default port %d out of range", d.DefaultPort)
	}
	if d.SweepLow <= 0 || d.SweepHigh > 65535 || d.SweepLow > d.SweepHigh {
		return fmt.Errorf("sweep range %d-%d invalid", d.SweepLow, d.SweepHigh)
	}
	if d.ProbeTimeout <= 0 {
		return errors.New("probe timeout must be positive")
	}
	if c.Bridge.ReconnectDelay <= 0 {
		return errors.New("reconnect delay must be positive")
	}
	if c.View.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}
	return nil
}
