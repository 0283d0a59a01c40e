package s3

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	// Prefix добавляется ко всем ключам объектов, например "tierdrive"
	Prefix       string `mapstructure:"Prefix"`
	UsePathStyle bool   `mapstructure:"UsePathStyle"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	v.SetDefault("Endpoint", "https://storage.yandexcloud.net")
	v.SetDefault("Region", "ru-central1")

	for key, env := range map[string]string{
		"AccessKeyID":     "S3_ACCESS_KEY_ID",
		"SecretAccessKey": "S3_SECRET_ACCESS_KEY",
		"Bucket":          "S3_BUCKET",
		"Endpoint":        "S3_ENDPOINT",
		"Region":          "S3_REGION",
		"Prefix":          "S3_PREFIX",
		"UsePathStyle":    "S3_USE_PATH_STYLE",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("cannot bind %s: %w", env, err)
		}
	}

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет, что все необходимые поля заполнены
func (c *Config) Validate() error {
	if c.AccessKeyID == "" {
		return fmt.Errorf("AccessKeyID is required")
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("SecretAccessKey is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("Bucket is required")
	}
	return nil
}
