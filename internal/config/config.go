package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gitter-badger/astroid/internal/chunk"
	"github.com/gitter-badger/astroid/internal/logger"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendIMAP     = "imap"
)

type Config struct {
	Environment  string
	StoreBackend string

	DBHost     string
	DBPort     string
	DBUsername string
	DBPassword string
	DBName     string
	DBSSLMode  string

	IMAPServer   string
	IMAPUsername string
	IMAPPassword string
	IMAPMailbox  string
	IMAPTLS      bool
	CacheDir     string

	PreferredOrder []string
	MaxDepth       int

	Log  logger.Config
	Port string
}

// NewConfig loads the configuration and validates it for opening a store.
func NewConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Load reads configuration from the environment (prefix ASTROID_), an
// optional .env file in development and an optional JSON config file named
// by ASTROID_CONFIG or found in the user config directory. Store settings
// are not validated, so commands working on plain files can run without
// them.
func Load() (*Config, error) {
	env := os.Getenv("ASTROID_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
		}
	}

	v := viper.New()
	v.SetEnvPrefix("astroid")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path := configFile(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	config := fromViper(v)
	config.Environment = env

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendPostgres)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "astroid")
	v.SetDefault("db.name", "astroid")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.tls", true)
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("mime.preferred_order", strings.Join(chunk.DefaultPreferredOrder, ","))
	v.SetDefault("mime.max_depth", chunk.DefaultMaxDepth)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("port", "8080")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		StoreBackend:   strings.ToLower(v.GetString("store.backend")),
		DBHost:         v.GetString("db.host"),
		DBPort:         v.GetString("db.port"),
		DBUsername:     v.GetString("db.user"),
		DBPassword:     v.GetString("db.password"),
		DBName:         v.GetString("db.name"),
		DBSSLMode:      v.GetString("db.sslmode"),
		IMAPServer:     v.GetString("imap.server"),
		IMAPUsername:   v.GetString("imap.user"),
		IMAPPassword:   v.GetString("imap.password"),
		IMAPMailbox:    v.GetString("imap.mailbox"),
		IMAPTLS:        v.GetBool("imap.tls"),
		CacheDir:       v.GetString("cache_dir"),
		PreferredOrder: getList(v, "mime.preferred_order"),
		MaxDepth:       v.GetInt("mime.max_depth"),
		Log: logger.Config{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			LogFile:     v.GetString("log.file"),
			MaxSize:     v.GetInt("log.max_size"),
			MaxBackups:  v.GetInt("log.max_backups"),
			MaxAge:      v.GetInt("log.max_age"),
			Compress:    v.GetBool("log.compress"),
		},
		Port: v.GetString("port"),
	}
}

// getList reads a list given either as a comma separated string (env) or as
// an array (config file).
func getList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}

	list := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func configFile() string {
	if path := os.Getenv("ASTROID_CONFIG"); path != "" {
		return path
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	path := filepath.Join(dir, "astroid", "config.json")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "astroid")
	}
	return filepath.Join(dir, "astroid")
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("ASTROID_DB_PASSWORD is required")
		}

	case BackendIMAP:
		if c.IMAPServer == "" {
			return fmt.Errorf("ASTROID_IMAP_SERVER is required")
		}
		if c.IMAPUsername == "" || c.IMAPPassword == "" {
			return fmt.Errorf("ASTROID_IMAP_USER and ASTROID_IMAP_PASSWORD are required")
		}
		if c.CacheDir == "" {
			return fmt.Errorf("ASTROID_CACHE_DIR is required")
		}

	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	if c.MaxDepth <= 0 {
		return fmt.Errorf("mime.max_depth must be positive")
	}

	return nil
}

// TreeOptions returns the part tree options for this configuration.
func (c *Config) TreeOptions() chunk.Options {
	return chunk.Options{
		PreferredOrder: c.PreferredOrder,
		MaxDepth:       c.MaxDepth,
	}
}

// GetDatabaseURL returns the Postgres connection URL with credentials
// escaped.
func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUsername, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}
