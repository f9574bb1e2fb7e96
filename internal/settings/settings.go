// Package settings loads server settings from defaults, an optional YAML
// file and the environment.
//
// Precedence from lowest to highest: defaults, YAML file, environment
// (including a .env file), command-line flags. Flags are applied by the
// caller since only it knows which were set explicitly.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds all server settings
type Settings struct {
	Server  ServerSettings  `yaml:"server"`
	Board   BoardSettings   `yaml:"board"`
	Session SessionSettings `yaml:"session"`
	Log     LogSettings     `yaml:"log"`
	Ngrok   NgrokSettings   `yaml:"ngrok"`
}

// ServerSettings holds the HTTP listener address
type ServerSettings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BoardSettings locates board configurations
type BoardSettings struct {
	ConfigDir string `yaml:"config_dir"`
}

// SessionSettings controls session expiry
type SessionSettings struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LogSettings controls logrus output
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NgrokSettings controls the optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `yaml:"enabled"`
	AuthToken string `yaml:"auth_token"`
	Domain    string `yaml:"domain"`
}

// Default returns the built-in settings
func Default() *Settings {
	return &Settings{
		Server: ServerSettings{Host: "localhost", Port: 8080},
		Board:  BoardSettings{ConfigDir: "configs"},
		Session: SessionSettings{
			TTL:             24 * time.Hour,
			CleanupInterval: time.Hour,
		},
		Log: LogSettings{Level: "info", Format: "text"},
	}
}

// Load reads a YAML settings file on top of the defaults. Keys missing from
// the file keep their default values.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadDotEnv reads a .env file without touching the process environment. A
// missing file yields an empty map.
func ReadDotEnv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	logrus.WithField("file", path).Debug("loaded environment file")
	return env, nil
}

// LookupFunc resolves one environment variable
type LookupFunc func(key string) (string, bool)

// Lookup resolves variables from the process environment first, then from
// the given .env values.
func Lookup(dotenv map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// ApplyEnv overrides settings from environment variables
func (s *Settings) ApplyEnv(lookup LookupFunc) error {
	get := func(keys ...string) (string, bool) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}

	if v, ok := get("PARTRIDGE_HOST"); ok {
		s.Server.Host = v
	}
	if v, ok := get("PARTRIDGE_PORT", "PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: port %q", ErrInvalidSettings, v)
		}
		s.Server.Port = port
	}
	if v, ok := get("PARTRIDGE_CONFIG_DIR", "CONFIG_DIR"); ok {
		s.Board.ConfigDir = v
	}
	if v, ok := get("PARTRIDGE_SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: session ttl %q", ErrInvalidSettings, v)
		}
		s.Session.TTL = d
	}
	if v, ok := get("PARTRIDGE_CLEANUP_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: cleanup interval %q", ErrInvalidSettings, v)
		}
		s.Session.CleanupInterval = d
	}
	if v, ok := get("PARTRIDGE_LOG_LEVEL"); ok {
		s.Log.Level = v
	}
	if v, ok := get("PARTRIDGE_LOG_FORMAT"); ok {
		s.Log.Format = v
	}
	if v, ok := get("NGROK_ENABLED"); ok {
		s.Ngrok.Enabled = v == "true" || v == "1"
	}
	if v, ok := get("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"); ok {
		s.Ngrok.AuthToken = v
	}
	if v, ok := get("NGROK_DOMAIN"); ok {
		s.Ngrok.Domain = v
	}

	return s.Validate()
}

// Validate checks the settings are usable
func (s *Settings) Validate() error {
	var problems []string

	if s.Server.Port < 0 || s.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", s.Server.Port))
	}
	if s.Board.ConfigDir == "" {
		problems = append(problems, "config dir is required")
	}
	if s.Session.TTL <= 0 {
		problems = append(problems, "session ttl must be positive")
	}
	if s.Session.CleanupInterval <= 0 {
		problems = append(problems, "cleanup interval must be positive")
	}
	if _, err := logrus.ParseLevel(s.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log level %q", s.Log.Level))
	}
	switch strings.ToLower(s.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log format %q", s.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

// Addr returns host:port for the HTTP listener
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}
