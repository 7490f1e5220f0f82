// Package config handles the XDG configuration directory, its file paths and
// the environment-driven backend settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// AppName is the application directory name.
	AppName = "tarevity"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// EnvFile holds optional KEY=value settings inside the config directory.
	EnvFile = ".env"

	// LogFile is the default log filename inside the config directory.
	LogFile = "tarevity.log"
)

// Backends
const (
	BackendGoogle = "google"
	BackendMongo  = "mongo"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend selects the record store: "google" or "mongo".
	Backend string

	// TaskList is the Google task list ID.
	TaskList string

	MongoURI string
	MongoDB  string

	// UserID scopes mongo records and notification dismissals.
	UserID string

	// CassandraHosts enables the notification repository when non-empty.
	CassandraHosts    []string
	CassandraKeyspace string

	ServerPort string
	JWTSecret  string

	// LogPath is the rotating log file. Empty disables file logging.
	LogPath string

	SettleDelay time.Duration
	StaleTime   time.Duration
	GCTime      time.Duration
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tarevity or $HOME/.config/tarevity.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:               dir,
		Backend:           BackendGoogle,
		MongoDB:           "tarevity",
		CassandraKeyspace: "notifications",
		ServerPort:        "8080",
	}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// LoadEnv reads settings from the environment. Variables in the config
// directory's .env file are loaded first but never override the process
// environment.
func (c *Config) LoadEnv() error {
	if _, err := os.Stat(c.EnvPath()); err == nil {
		if err := godotenv.Load(c.EnvPath()); err != nil {
			return fmt.Errorf("loading %s: %w", c.EnvPath(), err)
		}
	}

	setString(&c.Backend, "TAREVITY_BACKEND")
	setString(&c.TaskList, "TAREVITY_TASKLIST")
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.MongoDB, "MONGO_DB_NAME")
	setString(&c.UserID, "TAREVITY_USER_ID")
	setString(&c.CassandraKeyspace, "CASS_KEYSPACE")
	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.LogPath, "TAREVITY_LOG_FILE")
	if hosts := os.Getenv("CASS_DB"); hosts != "" {
		c.CassandraHosts = nil
		for _, h := range strings.Split(hosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				c.CassandraHosts = append(c.CassandraHosts, h)
			}
		}
	}

	var errs []error
	errs = append(errs, setDuration(&c.SettleDelay, "TAREVITY_SETTLE_DELAY"))
	errs = append(errs, setDuration(&c.StaleTime, "TAREVITY_STALE_TIME"))
	errs = append(errs, setDuration(&c.GCTime, "TAREVITY_GC_TIME"))
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return c.Validate()
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGoogle:
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo backend")
		}
		if c.UserID == "" {
			return errors.New("TAREVITY_USER_ID is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendGoogle, BackendMongo)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnvPath returns the path to the optional .env file.
func (c *Config) EnvPath() string {
	return filepath.Join(c.Dir, EnvFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}
