package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/inkpress/inkpress/internal/types"
)

// Configuration is the root config, loaded from config files and environment
// variables (INKPRESS_ prefix) via viper.
type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Server     ServerConfig     `mapstructure:"server"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Checkout   CheckoutConfig   `mapstructure:"checkout"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type DeploymentConfig struct {
	Mode string `mapstructure:"mode"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	SuccessURL    string `mapstructure:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"`
	// CallTimeout bounds every outbound provider call. On timeout the
	// outcome is unknown and the webhook is the source of truth.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// PendingOrderPolicy says what happens to the local pending order when the
// provider session creation fails.
type PendingOrderPolicy string

const (
	PendingOrderPolicyMarkFailed PendingOrderPolicy = "mark_failed"
	PendingOrderPolicyDelete     PendingOrderPolicy = "delete"
)

type CheckoutConfig struct {
	PendingOrderPolicy PendingOrderPolicy `mapstructure:"pending_order_policy"`
}

type WebhookConfig struct {
	// ReprocessInterval is how often the stuck-event reprocessor scans for
	// events left in received state. Zero disables the reprocessor.
	ReprocessInterval time.Duration `mapstructure:"reprocess_interval"`
	// ReprocessMaxAge bounds how far back the reprocessor looks.
	ReprocessMaxAge time.Duration `mapstructure:"reprocess_max_age"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level"`
}

// NewConfig loads configuration from ./config/config.yaml (optional), .env
// (optional) and INKPRESS_* environment variables.
func NewConfig() (*Configuration, error) {
	// .env is a developer convenience; absence is fine
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("inkpress")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", "api")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "inkpress")
	v.SetDefault("postgres.dbname", "inkpress")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)
	v.SetDefault("stripe.call_timeout", 30*time.Second)
	v.SetDefault("checkout.pending_order_policy", string(PendingOrderPolicyMarkFailed))
	v.SetDefault("webhook.reprocess_interval", 5*time.Minute)
	v.SetDefault("webhook.reprocess_max_age", 72*time.Hour)
	v.SetDefault("logging.level", string(types.LogLevelInfo))
}

func (c *Configuration) Validate() error {
	switch c.Checkout.PendingOrderPolicy {
	case PendingOrderPolicyMarkFailed, PendingOrderPolicyDelete:
	default:
		return fmt.Errorf("invalid checkout.pending_order_policy: %s", c.Checkout.PendingOrderPolicy)
	}
	if c.Stripe.CallTimeout <= 0 {
		return fmt.Errorf("stripe.call_timeout must be positive")
	}
	return nil
}

// GetDefaultConfig returns a config suitable for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: "test"},
		Server:     ServerConfig{Address: ":8080"},
		Stripe: StripeConfig{
			CallTimeout: 30 * time.Second,
		},
		Checkout: CheckoutConfig{PendingOrderPolicy: PendingOrderPolicyMarkFailed},
		Webhook: WebhookConfig{
			ReprocessInterval: 5 * time.Minute,
			ReprocessMaxAge:   72 * time.Hour,
		},
		Logging: LoggingConfig{Level: types.LogLevelDebug},
	}
}
