package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DB       DBConfig       `yaml:"db"`
	Telegram TelegramConfig `yaml:"telegram"`
	HTTP     HTTPConfig     `yaml:"http"`
	Feed     FeedConfig     `yaml:"feed"`
	Payment  PaymentConfig  `yaml:"payment"`
	App      AppConfig      `yaml:"app"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// URL is the pgx connection string.
func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	Debug bool   `yaml:"debug"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the API
}

const (
	FeedPostgres = "postgres"
	FeedRabbitMQ = "rabbitmq"
	FeedNone     = "none"
)

type FeedConfig struct {
	Driver   string         `yaml:"driver"`
	Channel  string         `yaml:"channel"` // LISTEN/NOTIFY channel for the postgres driver
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"tls"`
	Exchange string `yaml:"exchange"`
}

type PaymentConfig struct {
	StripeURL   string        `yaml:"stripe_url"`
	PayPalDelay time.Duration `yaml:"paypal_delay"`
}

type AppConfig struct {
	DefaultWallet int64         `yaml:"default_wallet"`
	ToastDuration time.Duration `yaml:"toast_duration"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
}

func defaults() *Config {
	return &Config{
		DB: DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "campus_eats",
		},
		HTTP: HTTPConfig{Addr: ":5000"},
		Feed: FeedConfig{
			Driver:  FeedPostgres,
			Channel: "docstore_changes",
			RabbitMQ: RabbitMQConfig{
				Host:     "localhost",
				Port:     5672,
				User:     "guest",
				Password: "guest",
				VHost:    "/",
			},
		},
		Payment: PaymentConfig{
			StripeURL:   "https://buy.stripe.com/test_00g5nFfJg0Yd2Eo4gg",
			PayPalDelay: 3 * time.Second,
		},
		App: AppConfig{
			DefaultWallet: 500,
			ToastDuration: 3 * time.Second,
			BcryptCost:    10,
		},
	}
}

// Load reads .env, then the YAML file named by CONFIG_FILE (if any), then environment
// overrides. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.DB.Host = getEnv("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnvInt("DB_PORT", cfg.DB.Port)
	cfg.DB.User = getEnv("DB_USER", cfg.DB.User)
	cfg.DB.Password = getEnv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Database = getEnv("DB_NAME", cfg.DB.Database)

	cfg.Telegram.Token = getEnv("TOKEN", cfg.Telegram.Token)
	cfg.Telegram.Debug = getEnvBool("TELEGRAM_DEBUG", cfg.Telegram.Debug)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)

	cfg.Feed.Driver = strings.ToLower(getEnv("FEED_DRIVER", cfg.Feed.Driver))
	cfg.Feed.Channel = getEnv("FEED_CHANNEL", cfg.Feed.Channel)
	cfg.Feed.RabbitMQ.Host = getEnv("RABBITMQ_HOST", cfg.Feed.RabbitMQ.Host)
	cfg.Feed.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", cfg.Feed.RabbitMQ.Port)
	cfg.Feed.RabbitMQ.User = getEnv("RABBITMQ_USER", cfg.Feed.RabbitMQ.User)
	cfg.Feed.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", cfg.Feed.RabbitMQ.Password)
	cfg.Feed.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", cfg.Feed.RabbitMQ.VHost)
	cfg.Feed.RabbitMQ.UseTLS = getEnvBool("RABBITMQ_TLS", cfg.Feed.RabbitMQ.UseTLS)
	cfg.Feed.RabbitMQ.Exchange = getEnv("RABBITMQ_EXCHANGE", cfg.Feed.RabbitMQ.Exchange)

	cfg.Payment.StripeURL = getEnv("STRIPE_URL", cfg.Payment.StripeURL)
	cfg.Payment.PayPalDelay = getEnvDuration("PAYPAL_DELAY", cfg.Payment.PayPalDelay)

	cfg.App.DefaultWallet = int64(getEnvInt("DEFAULT_WALLET", int(cfg.App.DefaultWallet)))
	cfg.App.ToastDuration = getEnvDuration("TOAST_DURATION", cfg.App.ToastDuration)
	cfg.App.BcryptCost = getEnvInt("BCRYPT_COST", cfg.App.BcryptCost)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Feed.Driver {
	case FeedPostgres, FeedRabbitMQ, FeedNone:
	default:
		return fmt.Errorf("unknown feed driver %q", c.Feed.Driver)
	}
	if c.App.DefaultWallet < 0 {
		return errors.New("default wallet cannot be negative")
	}
	if c.App.ToastDuration <= 0 {
		return errors.New("toast duration must be positive")
	}
	if c.Payment.PayPalDelay < 0 {
		return errors.New("paypal delay cannot be negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

// getEnvDuration accepts Go durations ("2s") or plain milliseconds ("2000").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
