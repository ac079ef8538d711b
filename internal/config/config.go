// Package config provides configuration types and defaults for entwined.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/session"
	"github.com/entwined/remote/internal/tracing"
	"github.com/entwined/remote/internal/transport"
)

// EnvPrefix prefixes environment overrides, e.g. ENTWINED_SERVER_HOSTNAME.
const EnvPrefix = "ENTWINED"

// Config holds all configuration options for entwined.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Session SessionConfig  `mapstructure:"session"`
	Log     LogConfig      `mapstructure:"log"`
	Tracing tracing.Config `mapstructure:"tracing"`
	UI      UIConfig       `mapstructure:"ui"`
}

// ServerConfig locates the lighting server.
type ServerConfig struct {
	Hostname    string        `mapstructure:"hostname" validate:"required"`
	Port        int           `mapstructure:"port" validate:"min=1,max=65535"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
}

// SessionConfig holds the controller's timings.
type SessionConfig struct {
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" validate:"gt=0"`
	TimerRefreshDelay time.Duration `mapstructure:"timer_refresh_delay" validate:"gt=0"`
	// CatalogTTL is how long a server's pattern and effect lists are
	// remembered after it was last seen.
	CatalogTTL time.Duration `mapstructure:"catalog_ttl" validate:"gt=0"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Debug bool   `mapstructure:"debug"`
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// UIConfig holds control panel options.
type UIConfig struct {
	ShowLog bool `mapstructure:"show_log"` // Open the log overlay on start
}

// Defaults returns a Config with the installation's standard values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Hostname:    session.DefaultHostname,
			Port:        transport.DefaultPort,
			DialTimeout: transport.DefaultDialTimeout,
		},
		Session: SessionConfig{
			ReconnectInterval: session.DefaultReconnectInterval,
			TimerRefreshDelay: session.DefaultTimerRefreshDelay,
			CatalogTTL:        10 * time.Minute,
		},
		Log: LogConfig{
			Level: "debug",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// SessionOptions returns the controller options described by c.
func (c Config) SessionOptions() session.Options {
	return session.Options{
		Hostname:          strings.TrimSpace(c.Server.Hostname),
		Port:              c.Server.Port,
		ReconnectInterval: c.Session.ReconnectInterval,
		TimerRefreshDelay: c.Session.TimerRefreshDelay,
	}
}

// SetDefaults registers Defaults on v so that every key is known to viper
// and can be overridden from the environment.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.hostname", d.Server.Hostname)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.dial_timeout", d.Server.DialTimeout)
	v.SetDefault("session.reconnect_interval", d.Session.ReconnectInterval)
	v.SetDefault("session.timer_refresh_delay", d.Session.TimerRefreshDelay)
	v.SetDefault("session.catalog_ttl", d.Session.CatalogTTL)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("ui.show_log", d.UI.ShowLog)
}

// BindEnv enables ENTWINED_* overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Unmarshal decodes and validates the configuration held by v.
func Unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the config file at path on top of the defaults and the
// environment.
func Load(path string) (Config, error) {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Unmarshal(v)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their config key rather than the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks cfg and returns an error naming the first bad key.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Server.Hostname) == "" {
		return fmt.Errorf("server.hostname must not be empty")
	}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return describe(verrs[0])
		}
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

func describe(fe validator.FieldError) error {
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "gt":
		return fmt.Errorf("%s must be positive, got %v", key, fe.Value())
	case "min", "max":
		return fmt.Errorf("%s must be between 1 and 65535, got %v", key, fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of %s, got %q", key, fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s is invalid (%s)", key, fe.Tag())
	}
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(cfg tracing.Config) error {
	if cfg.SampleRate < 0.0 || cfg.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", cfg.SampleRate)
	}

	if cfg.Exporter != "" {
		switch cfg.Exporter {
		case tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", cfg.Exporter)
		}
	}

	// Paths only matter once tracing is on.
	if cfg.Enabled {
		if cfg.Exporter == tracing.ExporterFile && cfg.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if cfg.Exporter == tracing.ExporterOTLP && cfg.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// DefaultTracesFilePath returns ~/.config/entwined/traces/traces.jsonl or
// empty string if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "entwined", "traces", "traces.jsonl")
}

// DefaultConfigPath returns ~/.config/entwined/config.yaml or empty string
// if the home directory is unavailable.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "entwined", "config.yaml")
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Entwined remote configuration

# Lighting server
server:
  hostname: 10.0.0.3     # Changed from the panel with 'h'; saved here
  port: 5204
  dial_timeout: 5s

# Session timings
session:
  reconnect_interval: 1s    # Fixed delay between reconnect attempts
  timer_refresh_delay: 250ms # Fetch the pause timer this long after a reset
  catalog_ttl: 10m          # Remember each server's patterns and effects this long

# Logging (also enabled with --debug or ENTWINED_DEBUG)
log:
  # path: /tmp/entwined.log
  debug: false
  level: debug  # debug, info, warn or error

# Control panel
ui:
  show_log: false  # Open the log overlay on start (toggle with 'l')

# Distributed tracing of connection attempts, syncs and commands
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/entwined/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
