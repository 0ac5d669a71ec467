package config

import (
	"sync"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Gurjant002/api-g-books/package/logger"
)

type Config struct {
	IsDebug *bool         `yaml:"is_debug" env-required:"true"`
	Listen  Listener      `yaml:"listen"`
	Storage StorageConfig `yaml:"storage"`
	Key     JWTSecretKey  `yaml:"authorization"`
}

type Listener struct {
	Type   string `yaml:"type" env-default:"tcp"`
	BindIp string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"8080"`
}

type StorageConfig struct {
	Host     string `yaml:"host" env:"PG_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PG_PORT" env-default:"5432"`
	Database string `yaml:"database" env:"PG_DATABASE"`
	Username string `yaml:"username" env:"PG_USERNAME"`
	Password string `yaml:"password" env:"PG_PASSWORD"`
}

type JWTSecretKey struct {
	SecretKey       string `yaml:"key" env:"JWT_SECRET"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes" env:"JWT_TTL_MINUTES" env-default:"30"`
}

var instance *Config
var once sync.Once

func GetConfig() *Config {
	once.Do(func() {
		logger.Log.Info("Reading app configuration")
		instance = &Config{}
		if err := cleanenv.ReadConfig("config.yml", instance); err != nil {
			help, _ := cleanenv.GetDescription(instance, nil)
			logger.Log.Error(help)
			logger.Log.Fatal(err)
		}
	})
	return instance
}
