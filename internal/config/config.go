package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// FCMConfig carries the raw service-account JSON blob; it is parsed once at
// startup by the fcm package.
type FCMConfig struct {
	ServiceAccountJSON string `yaml:"service_account_json"`
}

// VAPIDConfig identifies this server to browser push services.
type VAPIDConfig struct {
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
	Subject    string `yaml:"subject"`
}

type DispatchConfig struct {
	RetryMax          int `yaml:"retry_max"`
	RetryBaseDelayMS  int `yaml:"retry_base_delay_ms"`
	AdminCacheSeconds int `yaml:"admin_cache_seconds"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Redis    RedisConfig    `yaml:"redis"`
	MQ       MQConfig       `yaml:"mq"`
	JWT      JWTConfig      `yaml:"jwt"`
	FCM      FCMConfig      `yaml:"fcm"`
	VAPID    VAPIDConfig    `yaml:"vapid"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// Load reads config/base.yaml, overlays the CONFIG_ENV specific file when one
// exists, and finally applies environment variable overrides.
func Load() (*Config, error) {
	configDir := GetEnv("CONFIG_DIR", "config")
	env := GetEnv("CONFIG_ENV", "local")

	cfg := &Config{}
	if err := loadYAMLFile(filepath.Join(configDir, "base.yaml"), cfg); err != nil {
		return nil, fmt.Errorf("failed to load base.yaml: %w", err)
	}

	if env != "" && env != "base" {
		envFile := filepath.Join(configDir, fmt.Sprintf("%s.yaml", env))
		if _, err := os.Stat(envFile); err == nil {
			if err := loadYAMLFile(envFile, cfg); err != nil {
				return nil, fmt.Errorf("failed to load %s.yaml: %w", env, err)
			}
		}
	}

	OverrideFromEnv(cfg)

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8086"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.Dispatch.RetryMax == 0 {
		cfg.Dispatch.RetryMax = 2
	}
	if cfg.Dispatch.RetryBaseDelayMS == 0 {
		cfg.Dispatch.RetryBaseDelayMS = 300
	}
	if cfg.Dispatch.AdminCacheSeconds == 0 {
		cfg.Dispatch.AdminCacheSeconds = 60
	}

	return cfg, nil
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// OverrideFromEnv applies environment variables on top of the file config.
// Env vars win so deployments can keep secrets out of the yaml files.
func OverrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DB.SSLMode = sslmode
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if sa := os.Getenv("FCM_SERVICE_ACCOUNT"); sa != "" {
		cfg.FCM.ServiceAccountJSON = sa
	}
	if pk := os.Getenv("VAPID_PUBLIC_KEY"); pk != "" {
		cfg.VAPID.PublicKey = pk
	}
	if pk := os.Getenv("VAPID_PRIVATE_KEY"); pk != "" {
		cfg.VAPID.PrivateKey = pk
	}
	if subject := os.Getenv("VAPID_SUBJECT"); subject != "" {
		cfg.VAPID.Subject = subject
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
}

// GetEnv returns the env var value or a default when unset.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
