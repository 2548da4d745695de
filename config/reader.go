package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type ConfigSchema struct {
	App struct {
		Env  string `yaml:"env"`
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"app"`
	Database struct {
		// Driver is "postgres" or "sqlite"
		Driver   string     `yaml:"driver"`
		Path     string     `yaml:"path"`
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"db"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`
	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`
	Storage struct {
		// Driver is "gcs" or "local"
		Driver          string `yaml:"driver"`
		Bucket          string `yaml:"bucket"`
		CredentialsFile string `yaml:"credentials_file"`
		LocalDir        string `yaml:"local_dir"`
		PublicBaseURL   string `yaml:"public_base_url"`
		MaxMediaBytes   int64  `yaml:"max_media_bytes"`
		MaxImageBytes   int64  `yaml:"max_image_bytes"`
	} `yaml:"storage"`
	Logs struct {
		Level string `yaml:"level"`
	} `yaml:"logs"`
	RateLimit struct {
		Requests int           `yaml:"requests"`
		Window   time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Reconcile struct {
		Workers       int           `yaml:"workers"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
		BatchSize     int           `yaml:"batch_size"`
	} `yaml:"reconcile"`
}

var AppConfig *ConfigSchema

// IsProduction reports whether error details must be hidden from clients.
func (c *ConfigSchema) IsProduction() bool {
	return c != nil && c.App.Env == "production"
}

func LoadConfig(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	conf, err := Parse(data)
	if err != nil {
		return err
	}
	AppConfig = conf
	return nil
}

// Parse decodes a YAML document, applies environment overrides and defaults.
func Parse(data []byte) (*ConfigSchema, error) {
	conf := &ConfigSchema{}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		conf.Auth.JWTSecret = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		conf.RabbitMQ.URL = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		conf.Database.Master.Password = v
	}

	applyDefaults(conf)

	if conf.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	return conf, nil
}

func applyDefaults(conf *ConfigSchema) {
	if conf.App.Env == "" {
		conf.App.Env = "development"
	}
	if conf.App.Port == 0 {
		conf.App.Port = 5000
	}
	if conf.Database.Driver == "" {
		conf.Database.Driver = "postgres"
	}
	if conf.Database.Master.Port == 0 {
		conf.Database.Master.Port = 5432
	}
	if conf.Auth.TokenTTL == 0 {
		conf.Auth.TokenTTL = 30 * 24 * time.Hour
	}
	if conf.Storage.Driver == "" {
		conf.Storage.Driver = "local"
	}
	if conf.Storage.LocalDir == "" {
		conf.Storage.LocalDir = "uploads"
	}
	if conf.Storage.MaxMediaBytes == 0 {
		conf.Storage.MaxMediaBytes = 100 << 20
	}
	if conf.Storage.MaxImageBytes == 0 {
		conf.Storage.MaxImageBytes = 10 << 20
	}
	if conf.Logs.Level == "" {
		conf.Logs.Level = "info"
	}
	if conf.RateLimit.Requests == 0 {
		conf.RateLimit.Requests = 100
	}
	if conf.RateLimit.Window == 0 {
		conf.RateLimit.Window = 15 * time.Minute
	}
	if conf.Reconcile.Workers == 0 {
		conf.Reconcile.Workers = 2
	}
	if conf.Reconcile.SweepInterval == 0 {
		conf.Reconcile.SweepInterval = time.Hour
	}
	if conf.Reconcile.BatchSize == 0 {
		conf.Reconcile.BatchSize = 500
	}
}
