package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"orderetl/internal/currency"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// MinCurrencyTimeout is the shortest rate lookup timeout accepted
const MinCurrencyTimeout = 100 * time.Millisecond

// Config is everything a run or the operations API needs, read once at startup
type Config struct {
	DataDir   string
	OutputDir string

	CurrencyAPIKey  string
	CurrencyAPIURL  string
	CurrencyTimeout time.Duration
	BaseCurrency    string
	TargetCurrency  string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBReset    bool

	KafkaBrokers  string
	KafkaKPITopic string

	JWTSecret string
	GinMode   string
	Port      string
	LogLevel  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("CURRENCY_API_URL", currency.DefaultBaseURL)
	v.SetDefault("CURRENCY_TIMEOUT", currency.DefaultTimeout.String())
	v.SetDefault("BASE_CURRENCY", currency.DefaultBase)
	v.SetDefault("TARGET_CURRENCY", currency.DefaultTarget)
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_RESET", true)
	v.SetDefault("KAFKA_KPI_TOPIC", "order-kpis")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads configs/.env when present and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		slog.Info("no configs/.env file found, using environment only")
	}
	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	timeout, err := parseTimeout(v.GetString("CURRENCY_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:         v.GetString("DATA_DIR"),
		OutputDir:       v.GetString("OUTPUT_DIR"),
		CurrencyAPIKey:  v.GetString("CURRENCY_API_KEY"),
		CurrencyAPIURL:  v.GetString("CURRENCY_API_URL"),
		CurrencyTimeout: timeout,
		BaseCurrency:    strings.ToUpper(v.GetString("BASE_CURRENCY")),
		TargetCurrency:  strings.ToUpper(v.GetString("TARGET_CURRENCY")),
		DBDriver:        strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:          v.GetString("DB_HOST"),
		DBPort:          v.GetString("DB_PORT"),
		DBUser:          v.GetString("DB_USER"),
		DBPassword:      v.GetString("DB_PASSWORD"),
		DBName:          v.GetString("DB_NAME"),
		DBSSLMode:       v.GetString("DB_SSLMODE"),
		DBReset:         v.GetBool("DB_RESET"),
		KafkaBrokers:    v.GetString("KAFKA_BROKERS"),
		KafkaKPITopic:   v.GetString("KAFKA_KPI_TOPIC"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		GinMode:         v.GetString("GIN_MODE"),
		Port:            v.GetString("PORT"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	if cfg.DBDriver != DriverPostgres && cfg.DBDriver != DriverMySQL {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

// parseTimeout accepts a Go duration ("10s", "1500ms") or a bare number of seconds
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	var d time.Duration
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = time.ParseDuration(raw); err != nil {
		return 0, fmt.Errorf("invalid CURRENCY_TIMEOUT %q: %w", raw, err)
	}
	if d < MinCurrencyTimeout {
		return 0, fmt.Errorf("CURRENCY_TIMEOUT must be at least %s, got %s", MinCurrencyTimeout, d)
	}
	return d, nil
}

// DSN renders the connection string for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == DriverMySQL {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

func (c *Config) Currency() currency.Config {
	return currency.Config{BaseURL: c.CurrencyAPIURL, APIKey: c.CurrencyAPIKey, Timeout: c.CurrencyTimeout}
}

// JWTKey returns the signing secret. Release mode refuses to start without one.
func (c *Config) JWTKey() ([]byte, error) {
	if c.JWTSecret == "" {
		if c.GinMode == "release" {
			return nil, fmt.Errorf("JWT_SECRET is required in release mode")
		}
		return []byte("default_super_secret_key"), nil
	}
	return []byte(c.JWTSecret), nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) ProductsPath() string { return filepath.Join(c.DataDir, "products.csv") }
func (c *Config) OrdersPath() string   { return filepath.Join(c.DataDir, "orders.csv") }

func (c *Config) EnrichedPath() string {
	return filepath.Join(c.OutputDir, "order_full_information.csv")
}

func (c *Config) ConvertedPath() string {
	return filepath.Join(c.OutputDir, "fixed_order_full_information.csv")
}

func (c *Config) KPIPath() string { return filepath.Join(c.OutputDir, "kpi_product_orders.csv") }

func (c *Config) ProductQuarantinePath() string {
	return filepath.Join(c.OutputDir, "products_quarantine.csv")
}

func (c *Config) OrderQuarantinePath() string {
	return filepath.Join(c.OutputDir, "orders_quarantine.csv")
}
