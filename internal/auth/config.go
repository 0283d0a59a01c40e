package auth

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// если Issuer задан, токены с другим iss отклоняются
	Issuer string `mapstructure:"JWT_ISSUER"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	v.AutomaticEnv()
	// без SetDefault AutomaticEnv не видит ключи при Unmarshal
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "")

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &cfg, nil
}
