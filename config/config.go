// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	validLogLevels     = []string{"debug", "info", "warn", "error", "fatal"}
	validEnvs          = []string{"development", "production", "test"}
	validStorageTypes  = []string{"local", "s3", "r2"}
	validDBDrivers     = []string{"sqlite", "postgres"}
	validSessionStores = []string{"db", "redis", "memory"}
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Host       HostConfig       `mapstructure:"host"`
	DB         DBConfig         `mapstructure:"db"`
	Session    SessionConfig    `mapstructure:"session"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	S3         S3Config         `mapstructure:"s3"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Security   SecurityConfig   `mapstructure:"security"`
	Mail       MailConfig       `mapstructure:"mail"`

	MigrateOnly bool `mapstructure:"-"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type HostConfig struct {
	Port   int       `mapstructure:"port"`
	Domain string    `mapstructure:"domain"`
	CORS   []string  `mapstructure:"cors"`
	SSL    SSLConfig `mapstructure:"ssl"`
}

type SSLConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertificatePath    string `mapstructure:"certificate_path"`
	CertificateKeyPath string `mapstructure:"certificate_key_path"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SessionConfig struct {
	Store      string        `mapstructure:"store"`
	Secret     string        `mapstructure:"secret"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	CookieName string        `mapstructure:"cookie_name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Type       string `mapstructure:"type"`
	LocalDir   string `mapstructure:"local_dir"`
	PublicPath string `mapstructure:"public_path"`
}

type S3Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicURL       string `mapstructure:"public_url"`
}

type CloudflareConfig struct {
	AccountID       string          `mapstructure:"account_id"`
	AccessKeyID     string          `mapstructure:"access_key_id"`
	SecretAccessKey string          `mapstructure:"secret_access_key"`
	Bucket          string          `mapstructure:"bucket"`
	PublicURL       string          `mapstructure:"public_url"`
	ImageResizing   bool            `mapstructure:"image_resizing"`
	Turnstile       TurnstileConfig `mapstructure:"turnstile"`
}

type TurnstileConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SecretToken string `mapstructure:"secret_token"`
	SiteKey     string `mapstructure:"site_key"`
}

type UploadConfig struct {
	// MaxSize is read in MiB and converted to bytes by Setup
	MaxSize int64 `mapstructure:"max_size"`
}

type SecurityConfig struct {
	AuthRateLimit  int           `mapstructure:"auth_rate_limit"`
	AuthRateWindow time.Duration `mapstructure:"auth_rate_window"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Sender   string `mapstructure:"sender"`
	Password string `mapstructure:"password"`
}

// IsProduction reports whether the app runs with production settings
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Every key that can be overridden with an environment variable. The
// variable name is the key uppercased with dots replaced by underscores.
var envKeys = []string{
	"app.env",
	"app.log_level",

	"host.port",
	"host.domain",
	"host.cors",
	"host.ssl.enabled",
	"host.ssl.certificate_path",
	"host.ssl.certificate_key_path",

	"db.driver",
	"db.dsn",

	"session.store",
	"session.secret",
	"session.max_age",
	"session.cookie_name",

	"redis.addr",
	"redis.password",
	"redis.db",

	"storage.type",
	"storage.local_dir",
	"storage.public_path",

	"s3.region",
	"s3.bucket",
	"s3.access_key_id",
	"s3.secret_access_key",
	"s3.public_url",

	"cloudflare.account_id",
	"cloudflare.access_key_id",
	"cloudflare.secret_access_key",
	"cloudflare.bucket",
	"cloudflare.public_url",
	"cloudflare.image_resizing",
	"cloudflare.turnstile.enabled",
	"cloudflare.turnstile.secret_token",
	"cloudflare.turnstile.site_key",

	"upload.max_size",

	"security.auth_rate_limit",
	"security.auth_rate_window",

	"mail.enabled",
	"mail.host",
	"mail.port",
	"mail.sender",
	"mail.password",
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("seed-swap", pflag.ContinueOnError)
	configPath := flags.String("config", "", "Path to a config.toml file")
	migrateOnly := flags.Bool("migrate-only", false, "Migrates the database and exits")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()

	if *configPath != "" {
		v.SetConfigFile(*configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	for _, k := range envKeys {
		v.BindEnv(k, strings.ToUpper(strings.ReplaceAll(k, ".", "_")))
	}

	//
	// Defaults
	//
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 3000)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", []string{})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("session.store", "db")
	v.SetDefault("session.max_age", 24*time.Hour)
	v.SetDefault("session.cookie_name", "seedswap_session")

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_dir", "public/uploads")
	v.SetDefault("storage.public_path", "/uploads")

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("upload.max_size", 5)

	v.SetDefault("security.auth_rate_limit", 5)
	v.SetDefault("security.auth_rate_window", 15*time.Minute)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit --config path must exist, the default one is optional
		if !errors.As(err, &notFound) || *configPath != "" {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config, %w", err)
	}
	cfg.MigrateOnly = *migrateOnly

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Upload.MaxSize <<= 20
	return &cfg, nil
}

func (c *Config) validate() error {
	if !slices.Contains(validEnvs, c.App.Env) {
		return errors.New("invalid app.env provided")
	}

	if !slices.Contains(validLogLevels, c.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.Host.Port <= 0 {
		return errors.New("invalid port provided")
	}

	if c.Host.SSL.Enabled {
		if c.Host.SSL.CertificatePath == "" {
			return errors.New("no ssl certificate path provided")
		}

		if c.Host.SSL.CertificateKeyPath == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if !slices.Contains(validDBDrivers, c.DB.Driver) {
		return errors.New("invalid db driver provided")
	}

	if c.DB.DSN == "" {
		return errors.New("db.dsn can't be empty")
	}

	if !slices.Contains(validSessionStores, c.Session.Store) {
		return errors.New("invalid session store provided")
	}

	if c.Session.MaxAge <= 0 {
		return errors.New("session.max_age must be bigger than 0")
	}

	if len(c.Session.Secret) < 32 {
		return errors.New("session.secret must be at least 32 characters long")
	}

	if c.Session.Store == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr can't be empty when using the redis session store")
	}

	if c.Upload.MaxSize <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if c.Security.AuthRateLimit <= 0 {
		return errors.New("security.auth_rate_limit must be bigger than 0")
	}

	if c.Security.AuthRateWindow <= 0 {
		return errors.New("security.auth_rate_window must be bigger than 0")
	}

	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir can't be empty")
		}
	case "s3":
		if c.S3.Region == "" {
			return errors.New("s3 region can't be empty")
		}
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket can't be empty")
		}
		if c.S3.PublicURL == "" {
			return errors.New("s3 public url can't be empty")
		}
	case "r2":
		if c.Cloudflare.AccountID == "" {
			return errors.New("account id can't be empty")
		}
		if c.Cloudflare.AccessKeyID == "" {
			return errors.New("account access id can't be empty")
		}
		if c.Cloudflare.SecretAccessKey == "" {
			return errors.New("secret access key can't be empty")
		}
		if c.Cloudflare.Bucket == "" {
			return errors.New("bucket can't be empty")
		}
		if c.Cloudflare.PublicURL == "" {
			return errors.New("public url can't be empty")
		}
	}

	if !slices.Contains(validStorageTypes, c.Storage.Type) {
		return errors.New("invalid storage type provided")
	}

	if c.Cloudflare.Turnstile.Enabled && c.Cloudflare.Turnstile.SecretToken == "" {
		return errors.New("turnstile secret token is missing")
	}

	if c.Mail.Enabled {
		if c.Mail.Host == "" || c.Mail.Sender == "" {
			return errors.New("mail.host and mail.sender are required when mail is enabled")
		}
	}

	return nil
}
