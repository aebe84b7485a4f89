package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/andefred/eldsal/internal/pkg/fees"
)

type Config struct {
	App      AppConfig      `envPrefix:"APP_"`
	DB       DBConfig       `envPrefix:"DB_"`
	Cache    CacheConfig    `envPrefix:"CACHE_"`
	Identity IdentityConfig `envPrefix:"AUTH0_"`
	Stripe   StripeConfig   `envPrefix:"STRIPE_"`
	Archive  ArchiveConfig  `envPrefix:"ROSTER_ARCHIVE_"`
	Metrics  MetricsConfig  `envPrefix:"MONITOR_"`
}

type AppConfig struct {
	Env  string `env:"ENV" envDefault:"prod"`
	Host string `env:"HOST" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"4000"`
	// WebHost is where the member web client runs; checkout returns there.
	WebHost string `env:"WEB_HOST" envDefault:"local.eldsal.se"`
}

type DBConfig struct {
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Host     string `env:"HOST" envDefault:"127.0.0.1"`
	Port     string `env:"PORT" envDefault:"3306"`
	Name     string `env:"NAME" envDefault:"eldsal"`
}

// DSN returns the go-sql-driver DSN used by GORM.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// MigrateURL returns the golang-migrate database URL.
func (c DBConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type CacheConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type IdentityConfig struct {
	Domain   string `env:"DOMAIN"`
	Audience string `env:"AUDIENCE"`
	// Connection restricts member listings to one identity database.
	Connection string `env:"USER_CONNECTION" envDefault:"Username-Password-Authentication"`
	// ConnectionClaim names a custom token claim carrying the member's connection.
	ConnectionClaim string `env:"CONNECTION_CLAIM"`
}

// Issuer is the token issuer URL of the identity provider.
func (c IdentityConfig) Issuer() string {
	return "https://" + c.Domain + "/"
}

type StripeConfig struct {
	Membfee   StripeAccount `envPrefix:"MEMBFEE_"`
	Housecard StripeAccount `envPrefix:"HOUSECARD_"`
	// Processed webhook deliveries older than WebhookRetention are pruned.
	WebhookRetention time.Duration `env:"WEBHOOK_RETENTION" envDefault:"2160h"`
	WebhookPrune     string        `env:"WEBHOOK_PRUNE_SCHEDULE" envDefault:"0 4 * * *"`
}

// StripeAccount holds the credentials of the checkout account for one flavour.
type StripeAccount struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

func (c StripeConfig) Account(f fees.Flavour) StripeAccount {
	if f == fees.FlavourMembership {
		return c.Membfee
	}
	return c.Housecard
}

type ArchiveConfig struct {
	Enabled  bool   `env:"ENABLED" envDefault:"false"`
	Schedule string `env:"SCHEDULE" envDefault:"0 3 * * *"`
	Bucket   string `env:"BUCKET"`
	Prefix   string `env:"PREFIX" envDefault:"rosters"`
	Region   string `env:"REGION" envDefault:"eu-north-1"`
	Endpoint string `env:"ENDPOINT"`
	// Credentials fall back to the default AWS chain when empty.
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

type MetricsConfig struct {
	User     string `env:"USER" envDefault:"admin"`
	Password string `env:"PASSWORD"`
}

// Load parses the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDB parses only the database section, for tools that need nothing else.
func LoadDB() (DBConfig, error) {
	var cfg DBConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "DB_"}); err != nil {
		return cfg, fmt.Errorf("parse database config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Identity.Domain == "" {
		return errors.New("AUTH0_DOMAIN is required")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return errors.New("ROSTER_ARCHIVE_BUCKET is required when the roster archive is enabled")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.App.Env == "dev"
}
