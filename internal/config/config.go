package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageS3    = "s3"
	StorageLocal = "local"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Log      LogConfig      `mapstructure:"Log"`
	Storage  StorageConfig  `mapstructure:"Storage"`
	Quota    QuotaConfig    `mapstructure:"Quota"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"Port"`
	GRPCPort       string        `mapstructure:"GRPCPort"`
	MaxUploadMB    int64         `mapstructure:"MaxUploadMB"`
	RequestTimeout time.Duration `mapstructure:"RequestTimeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type LogConfig struct {
	Level       string `mapstructure:"Level"`
	Development bool   `mapstructure:"Development"`
}

type StorageConfig struct {
	// Backend: s3 или local
	Backend  string `mapstructure:"Backend"`
	LocalDir string `mapstructure:"LocalDir"`
}

type QuotaConfig struct {
	// ReconcileInterval задаёт период пересчёта счётчиков, 0 отключает
	ReconcileInterval time.Duration `mapstructure:"ReconcileInterval"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetDefault("Server.Port", "2525")
	v.SetDefault("Server.GRPCPort", "50051")
	v.SetDefault("Server.MaxUploadMB", 50)
	v.SetDefault("Server.RequestTimeout", 5*time.Minute)
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Log.Development", false)
	v.SetDefault("Storage.Backend", StorageS3)
	v.SetDefault("Storage.LocalDir", "/tmp/tierdrive")
	v.SetDefault("Quota.ReconcileInterval", time.Hour)

	// Привязываем переменные окружения
	bindings := map[string]string{
		"Database.Host":           "DATABASE_HOST",
		"Database.Port":           "DATABASE_PORT",
		"Database.User":           "DATABASE_USER",
		"Database.Password":       "DATABASE_PASSWORD",
		"Database.Name":           "DATABASE_NAME",
		"Database.SSLMode":        "DATABASE_SSLMODE",
		"Server.Port":             "HTTP_PORT",
		"Server.GRPCPort":         "GRPC_PORT",
		"Server.MaxUploadMB":      "MAX_UPLOAD_MB",
		"Server.RequestTimeout":   "REQUEST_TIMEOUT",
		"Log.Level":               "LOG_LEVEL",
		"Log.Development":         "LOG_DEVELOPMENT",
		"Storage.Backend":         "STORAGE_BACKEND",
		"Storage.LocalDir":        "STORAGE_LOCAL_DIR",
		"Quota.ReconcileInterval": "QUOTA_RECONCILE_INTERVAL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// файла может не быть, тогда работаем только на переменных окружения
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	// в .app.env ключи плоские (DATABASE_HOST=...), переносим их в секции,
	// если переменная окружения не задана
	for key, env := range bindings {
		if _, ok := os.LookupEnv(env); !ok && v.InConfig(env) {
			v.Set(key, v.Get(env))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Host == "" ||
		c.Database.Port == "" ||
		c.Database.User == "" ||
		c.Database.Password == "" ||
		c.Database.Name == "" {
		return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case StorageS3:
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage local dir is required for the local backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Quota.ReconcileInterval < 0 {
		return fmt.Errorf("quota reconcile interval must not be negative")
	}

	return nil
}

func (c *ServerConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// MigrationURL возвращает адрес базы в формате golang-migrate
func (c *DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}
