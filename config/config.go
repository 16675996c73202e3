// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	ErrMissingSecret = errors.New("jwt.secret is not set")

	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validEnvs      = []string{"development", "production"}
	validDrivers   = []string{"sqlite", "postgres", "mongo"}
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Host       HostConfig       `mapstructure:"host"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Mail       MailConfig       `mapstructure:"mail"`
	Security   SecurityConfig   `mapstructure:"security"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cleanup    CleanupConfig    `mapstructure:"cleanup"`
}

type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	Env      string `mapstructure:"env"`
	// Puts reset codes into forgot-password responses. The code only shows
	// up for registered emails, so responses reveal which accounts exist.
	// Refused when env is production
	ExposeResetCodes bool   `mapstructure:"expose_reset_codes"`
	PagesDir         string `mapstructure:"pages_dir"`
}

func (a AppConfig) Production() bool {
	return a.Env == "production"
}

type HostConfig struct {
	Port        int       `mapstructure:"port"`
	Domain      string    `mapstructure:"domain"`
	CORSOrigins []string  `mapstructure:"cors_origins"`
	SSL         SSLConfig `mapstructure:"ssl"`
}

type SSLConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertificatePath    string `mapstructure:"certificate_path"`
	CertificateKeyPath string `mapstructure:"certificate_key_path"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type DatabaseConfig struct {
	// sqlite, postgres or mongo
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	DSN           string `mapstructure:"dsn"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Sender   string `mapstructure:"sender"`
}

type SecurityConfig struct {
	// Requests per second allowed per IP on the auth endpoints
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	OTPMaxAttempts int           `mapstructure:"otp_max_attempts"`
	OTPWindow      time.Duration `mapstructure:"otp_window"`
}

type CloudflareConfig struct {
	Turnstile TurnstileConfig `mapstructure:"turnstile"`
}

type TurnstileConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SecretToken string `mapstructure:"secret_token"`
}

type StorageConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PublicURL       string `mapstructure:"public_url"`
	// In megabytes in the config file, converted to bytes by Load
	MaxImageSize int64 `mapstructure:"max_image_size"`
}

type CleanupConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Every key that can be overridden with an environment variable. The
// variable name is the key in upper case with dots replaced by underscores
var envKeys = []string{
	"app.log_level",
	"app.env",
	"app.expose_reset_codes",
	"app.pages_dir",

	"host.port",
	"host.domain",
	"host.cors_origins",
	"host.ssl.enabled",
	"host.ssl.certificate_path",
	"host.ssl.certificate_key_path",

	"jwt.secret",
	"jwt.ttl",

	"database.driver",
	"database.path",
	"database.dsn",
	"database.mongo_uri",
	"database.mongo_database",

	"redis.addr",
	"redis.password",
	"redis.db",

	"mail.enabled",
	"mail.host",
	"mail.port",
	"mail.username",
	"mail.password",
	"mail.sender",

	"security.rate_limit",
	"security.rate_burst",
	"security.otp_max_attempts",
	"security.otp_window",

	"cloudflare.turnstile.enabled",
	"cloudflare.turnstile.secret_token",

	"storage.enabled",
	"storage.endpoint",
	"storage.region",
	"storage.access_key_id",
	"storage.secret_access_key",
	"storage.bucket",
	"storage.public_url",
	"storage.max_image_size",

	"cleanup.interval",
}

func GenerateSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Load reads the configuration from flags, environment variables and
// an optional config.toml file, in that order of precedence. It returns
// an error if something is critically wrong and the application can't
// run because of that
func Load(args []string) (*Config, error) {
	v := viper.New()

	fs := pflag.NewFlagSet("campus-finder", pflag.ContinueOnError)
	cfgPath := fs.StringP("config", "c", "", "Path to the config file")
	fs.Int("port", 8080, "Port to listen on")
	fs.String("log-level", "info", "Log level (debug, info, warn, error, fatal)")
	fs.String("db-driver", "sqlite", "Database driver (sqlite, postgres, mongo)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v.BindPFlag("host.port", fs.Lookup("port"))
	v.BindPFlag("app.log_level", fs.Lookup("log-level"))
	v.BindPFlag("database.driver", fs.Lookup("db-driver"))

	for _, key := range envKeys {
		v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.expose_reset_codes", false)
	v.SetDefault("app.pages_dir", "")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("jwt.ttl", "168h")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "database.db")
	v.SetDefault("database.mongo_database", "campus_finder")

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)

	v.SetDefault("security.rate_limit", 1.0)
	v.SetDefault("security.rate_burst", 10)
	v.SetDefault("security.otp_max_attempts", 5)
	v.SetDefault("security.otp_window", "15m")

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.max_image_size", 5)

	v.SetDefault("cleanup.interval", "10m")

	if *cfgPath != "" {
		v.SetConfigFile(*cfgPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}

		zap.L().Info("No config.toml found, using defaults and environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config, %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.JWT.Secret = strings.TrimSpace(cfg.JWT.Secret)
	cfg.Storage.MaxImageSize <<= 20

	return &cfg, nil
}

func (c *Config) validate() error {
	if !slices.Contains(validLogLevels, c.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if !slices.Contains(validEnvs, c.App.Env) {
		return errors.New("app.env must be either development or production")
	}

	if c.App.ExposeResetCodes && c.App.Production() {
		return errors.New("app.expose_reset_codes can't be enabled in production")
	}

	if c.Host.Port <= 0 || c.Host.Port > 65535 {
		return errors.New("invalid port provided")
	}

	if len(c.Host.CORSOrigins) == 0 {
		return errors.New("host.cors_origins can't be empty")
	}

	if c.Host.SSL.Enabled {
		if c.Host.SSL.CertificatePath == "" {
			return errors.New("no ssl certificate path provided")
		}

		if c.Host.SSL.CertificateKeyPath == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if strings.TrimSpace(c.JWT.Secret) == "" {
		return ErrMissingSecret
	}

	if c.JWT.TTL <= 0 {
		return errors.New("jwt.ttl must be bigger than 0")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path can't be empty")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn can't be empty when using postgres")
		}
	case "mongo":
		if c.Database.MongoURI == "" {
			return errors.New("database.mongo_uri can't be empty when using mongo")
		}
		if c.Database.MongoDatabase == "" {
			return errors.New("database.mongo_database can't be empty")
		}
	default:
		return fmt.Errorf("invalid database driver provided, must be one of %v", validDrivers)
	}

	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			return errors.New("mail.host can't be empty")
		}
		if c.Mail.Sender == "" {
			return errors.New("mail.sender can't be empty")
		}
		if c.Mail.Port <= 0 {
			return errors.New("invalid mail port provided")
		}
	}

	if c.Security.RateLimit <= 0 || c.Security.RateBurst <= 0 {
		return errors.New("security.rate_limit and security.rate_burst must be bigger than 0")
	}

	if c.Security.OTPMaxAttempts <= 0 {
		return errors.New("security.otp_max_attempts must be bigger than 0")
	}

	if c.Security.OTPWindow <= 0 {
		return errors.New("security.otp_window must be bigger than 0")
	}

	if c.Cloudflare.Turnstile.Enabled && c.Cloudflare.Turnstile.SecretToken == "" {
		return errors.New("turnstile secret token is missing")
	}

	if c.Storage.Enabled {
		if c.Storage.AccessKeyID == "" {
			return errors.New("access key id can't be empty")
		}
		if c.Storage.SecretAccessKey == "" {
			return errors.New("secret access key can't be empty")
		}
		if c.Storage.Bucket == "" {
			return errors.New("bucket can't be empty")
		}
		if c.Storage.PublicURL == "" {
			return errors.New("storage.public_url can't be empty")
		}
	}

	if c.Storage.MaxImageSize <= 0 {
		return errors.New("storage.max_image_size must be bigger than 0")
	}

	if c.Cleanup.Interval <= 0 {
		return errors.New("cleanup.interval must be bigger than 0")
	}

	return nil
}
