package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"taskBoard/internal/executor"
	"taskBoard/internal/logger"
	"taskBoard/internal/service"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "TASKBOARD"

const (
	RepositoryInMemory = "inmemory"
	RepositorySQLite   = "sqlite"
	RepositoryPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Gateway    GatewayConfig    `mapstructure:"gateway" yaml:"gateway"`
	Retry      executor.Config  `mapstructure:"retry" yaml:"retry"`
	Cache      service.Policies `mapstructure:"cache" yaml:"cache"`
	Sync       SyncConfig       `mapstructure:"sync" yaml:"sync"`
	Logging    logger.Config    `mapstructure:"logging" yaml:"logging"`
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type GatewayConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type SyncConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	BulkConcurrency int           `mapstructure:"bulk_concurrency" yaml:"bulk_concurrency"`
	PruneInterval   time.Duration `mapstructure:"prune_interval" yaml:"prune_interval"`
}

type RepositoryConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // "inmemory", "sqlite" или "postgres"
	Path string `mapstructure:"path" yaml:"path"`
	DSN  string `mapstructure:"dsn" yaml:"dsn"`
}

// Load читает YAML и переменные окружения TASKBOARD_*; пустой path - поиск
// config.yaml в рабочем каталоге, без файла работают умолчания
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("чтение %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("разбор конфига: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("неверный конфиг: %w", err)
	}
	return &cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(EnvPrefix + "_CONFIG_FILE"); envPath != "" {
		return envPath
	}
	for _, candidate := range []string{"./config.yaml", "./config.yml", "./configs/config.yaml"} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("gateway.base_url", "http://localhost:8081/api")

	retry := executor.DefaultConfig()
	v.SetDefault("retry.attempts", retry.Attempts)
	v.SetDefault("retry.base_delay", retry.BaseDelay)
	v.SetDefault("retry.multiplier", retry.Multiplier)
	v.SetDefault("retry.timeout", retry.Timeout)

	policies := service.DefaultPolicies()
	v.SetDefault("cache.list.stale_after", policies.List.StaleAfter)
	v.SetDefault("cache.list.expire_after", policies.List.ExpireAfter)
	v.SetDefault("cache.task.stale_after", policies.Task.StaleAfter)
	v.SetDefault("cache.task.expire_after", policies.Task.ExpireAfter)
	v.SetDefault("cache.statistics.stale_after", policies.Statistics.StaleAfter)
	v.SetDefault("cache.statistics.expire_after", policies.Statistics.ExpireAfter)
	v.SetDefault("cache.reference.stale_after", policies.Reference.StaleAfter)
	v.SetDefault("cache.reference.expire_after", policies.Reference.ExpireAfter)

	v.SetDefault("sync.poll_interval", 30*time.Second)
	v.SetDefault("sync.bulk_concurrency", service.DefaultBulkConcurrency)
	v.SetDefault("sync.prune_interval", 10*time.Minute)

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.filename", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", false)

	v.SetDefault("repository.type", RepositoryInMemory)
	v.SetDefault("repository.path", "taskboard.db")
	v.SetDefault("repository.dsn", "")
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Gateway.BaseURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("gateway.base_url %q должен быть абсолютным URL", c.Gateway.BaseURL)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d вне диапазона", c.Server.Port)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts должен быть не меньше 1")
	}
	for name, p := range map[string]struct{ stale, expire time.Duration }{
		"list":       {c.Cache.List.StaleAfter, c.Cache.List.ExpireAfter},
		"task":       {c.Cache.Task.StaleAfter, c.Cache.Task.ExpireAfter},
		"statistics": {c.Cache.Statistics.StaleAfter, c.Cache.Statistics.ExpireAfter},
		"reference":  {c.Cache.Reference.StaleAfter, c.Cache.Reference.ExpireAfter},
	} {
		if p.stale <= 0 || p.expire < p.stale {
			return fmt.Errorf("cache.%s: нужно 0 < stale_after <= expire_after", name)
		}
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.poll_interval должен быть положительным")
	}

	switch c.Repository.Type {
	case RepositoryInMemory:
	case RepositorySQLite:
		if c.Repository.Path == "" {
			return fmt.Errorf("repository.path обязателен для sqlite")
		}
	case RepositoryPostgres:
		if c.Repository.DSN == "" {
			return fmt.Errorf("repository.dsn обязателен для postgres")
		}
	default:
		return fmt.Errorf("неизвестный тип репозитория %q", c.Repository.Type)
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Dump - действующий конфиг в YAML
func (c *Config) Dump() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("кодирование конфига: %w", err)
	}
	return out, nil
}
