// Package config loads the nubesync TOML configuration.
//
// The file is looked up from --config, then $NUBESYNC_CONFIG, then
// ./nube-sync.config.toml. A .env file in the working directory is loaded
// first; variables already set in the process environment win. Selected
// NUBESYNC_* variables override file values.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "nube-sync.config.toml"

// Environment variables understood by Load.
const (
	EnvConfig   = "NUBESYNC_CONFIG"
	EnvHost     = "NUBESYNC_HOST"
	EnvUsername = "NUBESYNC_USERNAME"
	EnvPassword = "NUBESYNC_PASSWORD"
	EnvOutDir   = "NUBESYNC_OUT_DIR"
)

var (
	// ErrNotFound indicates the configuration file does not exist.
	ErrNotFound = errors.New("configuration file not found")

	// ErrInvalid indicates the configuration failed validation.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the complete nubesync configuration.
type Config struct {
	// Host is the WebDAV root URL, e.g. https://cloud.example.com/remote.php/dav/files/alice/
	Host     string `toml:"host"`
	Username string `toml:"username"`
	Password string `toml:"password"`

	// OutDir is the default output directory (overridden by --out)
	OutDir string `toml:"out_dir"`

	// BlackList holds patterns; a key containing any of them is never created locally
	BlackList []string `toml:"black_list"`

	State     State     `toml:"state"`
	Migration Migration `toml:"migration"`
	Retry     Retry     `toml:"retry"`
	Daemon    Daemon    `toml:"daemon"`
	Log       Log       `toml:"log"`
	Metrics   Metrics   `toml:"metrics"`
	Journal   Journal   `toml:"journal"`
	Notify    Notify    `toml:"notify"`

	// path is the file the configuration was loaded from
	path string
}

// State configures the state file inside the output directory.
type State struct {
	File        string   `toml:"file"`
	LockTimeout Duration `toml:"lock_timeout"`
	Backup      bool     `toml:"backup"`
	KeepBackups int      `toml:"keep_backups"`
}

// Migration configures the state migration capability.
type Migration struct {
	// Enabled turns the migration capability on at runtime
	Enabled bool `toml:"enabled"`

	// Auto lets sync and daemon migrate before running
	Auto bool `toml:"auto"`
}

// Retry configures retries of remote operations.
type Retry struct {
	Mode       RetryBackoffMode `toml:"mode"`
	Initial    Duration         `toml:"initial"`
	Max        Duration         `toml:"max"`
	MaxRetries int              `toml:"max_retries"`
}

// Daemon configures the long-running agent.
type Daemon struct {
	Interval    Duration `toml:"interval"`
	WatchConfig bool     `toml:"watch_config"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Metrics configures the Prometheus textfile output.
type Metrics struct {
	// Textfile is a node_exporter textfile path; empty disables metrics
	Textfile string `toml:"textfile"`
}

// JournalOff disables the run journal when used as Journal.Path.
const JournalOff = "off"

// Journal configures the SQLite run history.
type Journal struct {
	// Path of the database; empty means the XDG state default
	Path string `toml:"path"`
}

// Notify configures NATS event publishing.
type Notify struct {
	// NatsURL of the server; empty disables notifications
	NatsURL string `toml:"nats_url"`
	Subject string `toml:"subject"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		State: State{
			File:        ".sync",
			LockTimeout: D(10 * time.Second),
			Backup:      true,
			KeepBackups: 3,
		},
		Retry: Retry{
			Mode:       RetryBackoffFixed,
			Initial:    D(250 * time.Millisecond),
			Max:        D(5 * time.Second),
			MaxRetries: 2,
		},
		Daemon: Daemon{
			Interval:    D(15 * time.Minute),
			WatchConfig: true,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Notify: Notify{
			Subject: "nubesync.events",
		},
	}
}

// Path returns the file the configuration was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

// ResolvePath picks the configuration file: flag, then $NUBESYNC_CONFIG,
// then ./nube-sync.config.toml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	return DefaultFileName
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes TOML content over the defaults, applies environment
// overrides and validates the result.
func Parse(content string) (*Config, error) {
	cfg := Default()
	meta, err := toml.Decode(content, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: unknown keys: %s", ErrInvalid, strings.Join(keys, ", "))
	}

	cfg.Retry.Mode = NormalizeRetryBackoff(string(cfg.Retry.Mode))
	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile loads .env from the working directory if present. Existing
// process environment variables are not overwritten.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// ApplyEnv copies the NUBESYNC_* overrides into c.
func ApplyEnv(c *Config) {
	for env, field := range map[string]*string{
		EnvHost:     &c.Host,
		EnvUsername: &c.Username,
		EnvPassword: &c.Password,
		EnvOutDir:   &c.OutDir,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks the configuration for impossible values.
func (c *Config) Validate() error {
	var problems []string

	if c.Host == "" {
		problems = append(problems, "host is required")
	} else if _, err := c.HostURL(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.State.File == "" {
		problems = append(problems, "state.file is required")
	}
	if c.State.LockTimeout.Duration < 0 {
		problems = append(problems, "state.lock_timeout cannot be negative")
	}
	if c.State.KeepBackups < 0 {
		problems = append(problems, "state.keep_backups cannot be negative")
	}
	if strings.ContainsAny(c.State.File, `/\`) {
		problems = append(problems, "state.file must be a file name, not a path")
	}
	if c.Retry.Mode == "" {
		problems = append(problems, "retry.mode must be one of fixed, linear, exponential")
	}
	if c.Retry.Initial.Duration <= 0 || c.Retry.Max.Duration <= 0 {
		problems = append(problems, "retry durations must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		problems = append(problems, "retry.max_retries cannot be negative")
	}
	if c.Daemon.Interval.Duration <= 0 {
		problems = append(problems, "daemon.interval must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not one of text, json", c.Log.Format))
	}
	if c.Notify.NatsURL != "" && c.Notify.Subject == "" {
		problems = append(problems, "notify.subject is required when notify.nats_url is set")
	}
	for i, pattern := range c.BlackList {
		if pattern == "" {
			problems = append(problems, fmt.Sprintf("black_list[%d] is empty", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// HostURL parses Host. The path always ends with "/".
func (c *Config) HostURL() (*url.URL, error) {
	u, err := url.Parse(c.Host)
	if err != nil {
		return nil, fmt.Errorf("host %q is not a valid URL: %w", c.Host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("host %q must use http or https", c.Host)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("host %q has no server name", c.Host)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}
