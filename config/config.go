package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Bank     BankConfig     `mapstructure:"bank"`
	Push     PushConfig     `mapstructure:"push"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// BankConfig holds credentials for the external bank payment gateway.
type BankConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	BillerID  string        `mapstructure:"biller_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// TokenSkew is subtracted from the gateway-reported expiry so a token
	// is refreshed before it actually lapses mid-request.
	TokenSkew time.Duration `mapstructure:"token_skew"`
}

// PushConfig holds Firebase Cloud Messaging credentials.
type PushConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"` // empty = push disabled
}

// PaymentConfig tunes the payment reconciliation behaviour.
type PaymentConfig struct {
	// VerifyTimeout bounds how long a verify call blocks waiting for the
	// matching webhook confirmation.
	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`
	// WebhookLookupRetry is the pause before re-checking for a pending QR
	// row when a confirmation arrives ahead of the issuance commit.
	WebhookLookupRetry time.Duration `mapstructure:"webhook_lookup_retry"`
	// QrExpiry is the age after which an unconfirmed QR request is expired.
	QrExpiry time.Duration `mapstructure:"qr_expiry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CIVICPAY_.
// Nested keys use underscore: CIVICPAY_DATABASE_HOST, CIVICPAY_BANK_API_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "civicpay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "civicpay")
	v.SetDefault("bank.base_url", "https://api-sandbox.partners.scb/partners/sandbox")
	v.SetDefault("bank.api_key", "")
	v.SetDefault("bank.api_secret", "")
	v.SetDefault("bank.biller_id", "")
	v.SetDefault("bank.timeout", "30s")
	v.SetDefault("bank.token_skew", "30s")
	v.SetDefault("push.credentials_file", "")
	v.SetDefault("payment.verify_timeout", "60s")
	v.SetDefault("payment.webhook_lookup_retry", "500ms")
	v.SetDefault("payment.qr_expiry", "15m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CIVICPAY_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CIVICPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
