package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Feed     FeedConfig     `mapstructure:"feed"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	Mode                string        `mapstructure:"mode"`
	CookieName          string        `mapstructure:"cookie_name"`
	CookieSecure        bool          `mapstructure:"cookie_secure"`
	InvalidSessionDelay time.Duration `mapstructure:"invalid_session_delay"`
	CORS                CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// APIConfig points at the remote quote service.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// UploadConfig selects how media is hosted before a quote is created.
type UploadConfig struct {
	Backend       string `mapstructure:"backend"` // remote, s3
	Endpoint      string `mapstructure:"endpoint"`
	FormField     string `mapstructure:"form_field"`
	ResponseShape string `mapstructure:"response_shape"` // media_url, url_list
	MaxBytes      int64  `mapstructure:"max_bytes"`
	MaxPixels     int64  `mapstructure:"max_pixels"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // r2, s3, s3compatible
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

type SessionConfig struct {
	Backend string `mapstructure:"backend"` // sql, redis, memory
	CLIKey  string `mapstructure:"cli_key"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogSQL          bool          `mapstructure:"log_sql"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	if c.Path == "" {
		return "file::memory:?cache=shared"
	}
	return c.Path
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type FeedConfig struct {
	PageSize     int  `mapstructure:"page_size"`
	SearchAuthor bool `mapstructure:"search_author"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("api.base_url", "CRAFTO_API_URL")
	v.BindEnv("upload.endpoint", "CRAFTO_UPLOAD_URL")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.public_url", "S3_PUBLIC_URL")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cookie_name", "crafto_session")
	v.SetDefault("server.cookie_secure", false)
	v.SetDefault("server.invalid_session_delay", 2*time.Second)
	v.SetDefault("server.cors.allow_all_origins", false)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("api.base_url", "https://assignment.stage.crafto.app")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.user_agent", "crafto-go/1.0")
	v.SetDefault("upload.backend", "remote")
	v.SetDefault("upload.endpoint", "https://crafto.app/crafto/v1.0/media/assignment/upload")
	v.SetDefault("upload.form_field", "file")
	v.SetDefault("upload.response_shape", "media_url")
	v.SetDefault("upload.max_bytes", 10<<20)
	v.SetDefault("upload.max_pixels", 25_000_000)
	v.SetDefault("storage.type", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "quotes")
	v.SetDefault("storage.prefix", "media")
	v.SetDefault("session.backend", "sql")
	v.SetDefault("session.cli_key", "cli")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/crafto.db")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_sql", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "crafto:session:")
	v.SetDefault("redis.ttl", 7*24*time.Hour)
	v.SetDefault("feed.page_size", 12)
	v.SetDefault("feed.search_author", true)
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed.page_size must be positive, got %d", c.Feed.PageSize)
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	switch c.Upload.Backend {
	case "remote", "s3":
	default:
		return fmt.Errorf("unknown upload.backend %q", c.Upload.Backend)
	}
	switch c.Upload.ResponseShape {
	case "media_url", "url_list":
	default:
		return fmt.Errorf("unknown upload.response_shape %q", c.Upload.ResponseShape)
	}
	switch c.Session.Backend {
	case "sql", "redis", "memory":
	default:
		return fmt.Errorf("unknown session.backend %q", c.Session.Backend)
	}
	return nil
}
