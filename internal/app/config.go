package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	CartStorageMemory = "memory"
	CartStorageRedis  = "redis"

	NotifierLog      = "log"
	NotifierSendGrid = "sendgrid"
	NotifierKafka    = "kafka"
)

// Переменные окружения, переопределяющие конфигурацию.
const (
	EnvConfigFile = "STOREFRONT_CONFIG"

	envHTTPAddr             = "STOREFRONT_HTTP_ADDR"
	envGRPCAddr             = "STOREFRONT_GRPC_ADDR"
	envMetricsAddr          = "STOREFRONT_METRICS_ADDR"
	envLogLevel             = "STOREFRONT_LOG_LEVEL"
	envShutdownTimeout      = "STOREFRONT_SHUTDOWN_TIMEOUT"
	envStorageDriver        = "STOREFRONT_STORAGE_DRIVER"
	envPostgresDSN          = "STOREFRONT_POSTGRES_DSN"
	envPostgresAutoMigrate  = "STOREFRONT_POSTGRES_AUTO_MIGRATE"
	envPostgresMaxOpenConns = "STOREFRONT_POSTGRES_MAX_OPEN_CONNS"
	envCatalogAutoSeed      = "STOREFRONT_CATALOG_AUTO_SEED"
	envCartStorage          = "STOREFRONT_CART_STORAGE"
	envRedisAddr            = "STOREFRONT_REDIS_ADDR"
	envRedisPassword        = "STOREFRONT_REDIS_PASSWORD"
	envRedisDB              = "STOREFRONT_REDIS_DB"
	envRedisKeyPrefix       = "STOREFRONT_REDIS_KEY_PREFIX"
	envCartTTL              = "STOREFRONT_CART_TTL"
	envNotifiers            = "STOREFRONT_NOTIFIERS"
	envSendGridAPIKey       = "STOREFRONT_SENDGRID_API_KEY"
	envMailFrom             = "STOREFRONT_MAIL_FROM"
	envMailFromName         = "STOREFRONT_MAIL_FROM_NAME"
	envSupportEmail         = "STOREFRONT_SUPPORT_EMAIL"
	envAppURL               = "STOREFRONT_APP_URL"
	envKafkaBrokers         = "STOREFRONT_KAFKA_BROKERS"
	envKafkaTopic           = "STOREFRONT_KAFKA_TOPIC"
	envNotifyMaxAttempts    = "STOREFRONT_NOTIFY_MAX_ATTEMPTS"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr        string        `toml:"http_addr"`
	GRPCAddr        string        `toml:"grpc_addr"`
	MetricsAddr     string        `toml:"metrics_addr"`
	LogLevel        string        `toml:"log_level"`
	ShutdownTimeout time.Duration `toml:"-"`

	StorageDriver        string `toml:"storage_driver"`
	PostgresDSN          string `toml:"postgres_dsn"`
	PostgresAutoMigrate  bool   `toml:"postgres_auto_migrate"`
	PostgresMaxOpenConns int    `toml:"postgres_max_open_conns"`
	CatalogAutoSeed      bool   `toml:"catalog_auto_seed"`

	CartStorage    string        `toml:"cart_storage"`
	RedisAddr      string        `toml:"redis_addr"`
	RedisPassword  string        `toml:"redis_password"`
	RedisDB        int           `toml:"redis_db"`
	RedisKeyPrefix string        `toml:"redis_key_prefix"`
	// CartTTL — срок хранения корзины; 0 означает хранение без срока.
	CartTTL        time.Duration `toml:"-"`

	// Notifiers — список через запятую: log, sendgrid, kafka.
	Notifiers      string `toml:"notifiers"`
	SendGridAPIKey string `toml:"sendgrid_api_key"`
	MailFrom       string `toml:"mail_from"`
	MailFromName   string `toml:"mail_from_name"`
	SupportEmail   string `toml:"support_email"`
	AppURL         string `toml:"app_url"`
	KafkaBrokers   string `toml:"kafka_brokers"`
	KafkaTopic     string `toml:"kafka_topic"`
	// NotifyMaxAttempts — попытки отправки через sendgrid и kafka до предупреждения.
	NotifyMaxAttempts int `toml:"notify_max_attempts"`
}

// DefaultConfig возвращает конфигурацию локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:             ":8080",
		GRPCAddr:             ":50051",
		MetricsAddr:          ":9090",
		LogLevel:             "info",
		ShutdownTimeout:      10 * time.Second,
		StorageDriver:        StorageDriverMemory,
		PostgresAutoMigrate:  true,
		PostgresMaxOpenConns: 25,
		CatalogAutoSeed:      true,
		CartStorage:          CartStorageMemory,
		RedisAddr:            "localhost:6379",
		RedisKeyPrefix:       "storefront:cart",
		Notifiers:            NotifierLog,
		MailFromName:         "Audiophile",
		KafkaTopic:           "storefront.order.events",
		NotifyMaxAttempts:    3,
	}
}

// NotifierList разбирает Notifiers в нормализованный список без дублей.
func (c Config) NotifierList() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(c.Notifiers, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// KafkaBrokerList разбирает KafkaBrokers.
func (c Config) KafkaBrokerList() []string {
	var out []string
	for _, part := range strings.Split(c.KafkaBrokers, ",") {
		if b := strings.TrimSpace(part); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate проверяет согласованность настроек до старта зависимостей.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres storage requires postgres dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver: %q", c.StorageDriver))
	}

	switch c.CartStorage {
	case CartStorageMemory:
	case CartStorageRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis cart storage requires redis addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported cart storage: %q", c.CartStorage))
	}

	for _, n := range c.NotifierList() {
		switch n {
		case NotifierLog:
		case NotifierSendGrid:
			if c.SendGridAPIKey == "" || c.MailFrom == "" {
				errs = append(errs, errors.New("sendgrid notifier requires api key and mail from"))
			}
		case NotifierKafka:
			if len(c.KafkaBrokerList()) == 0 {
				errs = append(errs, errors.New("kafka notifier requires kafka brokers"))
			}
		default:
			errs = append(errs, fmt.Errorf("unsupported notifier: %q", n))
		}
	}

	return errors.Join(errs...)
}

// fileConfig — представление TOML-файла. Длительности задаются строками ("10s").
type fileConfig struct {
	Config
	ShutdownTimeout string `toml:"shutdown_timeout"`
	CartTTL         string `toml:"cart_ttl"`
}

// LoadConfigFile накладывает значения TOML-файла path на base.
// Ключи, отсутствующие в файле, сохраняют значения base.
func LoadConfigFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}

	fc := fileConfig{Config: base}
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return base, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg := fc.Config
	if fc.ShutdownTimeout != "" {
		if cfg.ShutdownTimeout, err = parseDuration(fc.ShutdownTimeout, positiveDuration, "must be > 0"); err != nil {
			return base, fmt.Errorf("shutdown_timeout: %w", err)
		}
	}
	if fc.CartTTL != "" {
		if cfg.CartTTL, err = parseDuration(fc.CartTTL, nonNegativeDuration, "must be >= 0"); err != nil {
			return base, fmt.Errorf("cart_ttl: %w", err)
		}
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.CartStorage = strings.ToLower(strings.TrimSpace(cfg.CartStorage))
	return cfg, nil
}

// EnvLookup — источник переменных окружения (os.LookupEnv в проде).
type EnvLookup func(string) (string, bool)

// LoadConfig собирает конфигурацию: DefaultConfig, затем файл из
// STOREFRONT_CONFIG (если задан), затем переменные окружения.
// Некорректные значения окружения не прерывают загрузку и возвращаются как warnings.
func LoadConfig(lookup EnvLookup) (Config, []error, error) {
	cfg := DefaultConfig()
	if path, ok := lookup(EnvConfigFile); ok && strings.TrimSpace(path) != "" {
		var err error
		if cfg, err = LoadConfigFile(strings.TrimSpace(path), cfg); err != nil {
			return Config{}, nil, err
		}
	}
	cfg, warnings := ApplyEnv(cfg, lookup)
	return cfg, warnings, nil
}

// ApplyEnv переопределяет поля cfg из окружения.
func ApplyEnv(cfg Config, lookup EnvLookup) (Config, []error) {
	var warnings []error
	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Errorf("%s=%q: %w", key, value, err))
	}

	str := func(key string, dst *string, lower bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			v = strings.TrimSpace(v)
			if lower {
				v = strings.ToLower(v)
			}
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warn(key, v, err)
			return
		}
		*dst = parsed
	}
	integer := func(key string, dst *int, valid func(int) bool, rule string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseInt(v, valid, rule)
		if err != nil {
			warn(key, v, err)
			return
		}
		*dst = parsed
	}
	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseDuration(v, valid, rule)
		if err != nil {
			warn(key, v, err)
			return
		}
		*dst = parsed
	}

	str(envHTTPAddr, &cfg.HTTPAddr, false)
	str(envGRPCAddr, &cfg.GRPCAddr, false)
	str(envMetricsAddr, &cfg.MetricsAddr, false)
	str(envLogLevel, &cfg.LogLevel, true)
	duration(envShutdownTimeout, &cfg.ShutdownTimeout, positiveDuration, "must be > 0")

	str(envStorageDriver, &cfg.StorageDriver, true)
	str(envPostgresDSN, &cfg.PostgresDSN, false)
	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	integer(envPostgresMaxOpenConns, &cfg.PostgresMaxOpenConns, func(v int) bool { return v > 0 }, "must be > 0")
	boolean(envCatalogAutoSeed, &cfg.CatalogAutoSeed)

	str(envCartStorage, &cfg.CartStorage, true)
	str(envRedisAddr, &cfg.RedisAddr, false)
	str(envRedisPassword, &cfg.RedisPassword, false)
	integer(envRedisDB, &cfg.RedisDB, func(v int) bool { return v >= 0 }, "must be >= 0")
	str(envRedisKeyPrefix, &cfg.RedisKeyPrefix, false)
	duration(envCartTTL, &cfg.CartTTL, nonNegativeDuration, "must be >= 0")

	str(envNotifiers, &cfg.Notifiers, true)
	str(envSendGridAPIKey, &cfg.SendGridAPIKey, false)
	str(envMailFrom, &cfg.MailFrom, false)
	str(envMailFromName, &cfg.MailFromName, false)
	str(envSupportEmail, &cfg.SupportEmail, false)
	str(envAppURL, &cfg.AppURL, false)
	str(envKafkaBrokers, &cfg.KafkaBrokers, false)
	str(envKafkaTopic, &cfg.KafkaTopic, false)
	integer(envNotifyMaxAttempts, &cfg.NotifyMaxAttempts, func(v int) bool { return v > 0 }, "must be > 0")

	return cfg, warnings
}

func positiveDuration(v time.Duration) bool { return v > 0 }

func nonNegativeDuration(v time.Duration) bool { return v >= 0 }

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value")
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if valid != nil && !valid(value) {
		return 0, errors.New(rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %w", err)
	}
	if valid != nil && !valid(value) {
		return 0, errors.New(rule)
	}
	return value, nil
}
