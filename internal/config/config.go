package config

import (
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
)

type Config interface {
	EnvConfig
	APIConfig
	StoreConfig
}

type EnvConfig interface {
	GetEnv() string
	GetLogLevel() string
	GetProfile() string
}

type APIConfig interface {
	GetBaseURL() string
	GetAuthScheme() string
	GetRequestTimeout() time.Duration
}

type StoreConfig interface {
	GetStoreBackend() credentials.Backend
	GetStorePath() string
	GetStoreSealKey() string
	GetRedis() credentials.RedisConfig
}

// settings is the resolved configuration, validated before use
type settings struct {
	Env            string        `validate:"required"`
	LogLevel       string        `validate:"oneof=trace debug info warn error disabled"`
	Profile        string        `validate:"required"`
	BaseURL        string        `validate:"required,url"`
	AuthScheme     string        `validate:"required"`
	RequestTimeout time.Duration `validate:"gt=0"`
	StoreBackend   string        `validate:"oneof=file sqlite redis"`
	StorePath      string
	StoreSealKey   string
	RedisAddr      string `validate:"required_if=StoreBackend redis"`
	RedisPassword  string
	RedisDB        int `validate:"gte=0"`
}

func defaults() settings {
	return settings{
		Env:            "DEV",
		LogLevel:       "warn",
		Profile:        "default",
		BaseURL:        "http://localhost:8000",
		AuthScheme:     "JWT",
		RequestTimeout: 15 * time.Second,
		StoreBackend:   string(credentials.BackendFile),
	}
}

type mainConfig struct {
	s settings
}

var _ Config = mainConfig{}

func (c mainConfig) GetEnv() string { return c.s.Env }
func (c mainConfig) GetLogLevel() string { return c.s.LogLevel }
func (c mainConfig) GetProfile() string { return c.s.Profile }

func (c mainConfig) GetBaseURL() string { return c.s.BaseURL }
func (c mainConfig) GetAuthScheme() string { return c.s.AuthScheme }
func (c mainConfig) GetRequestTimeout() time.Duration { return c.s.RequestTimeout }

func (c mainConfig) GetStoreBackend() credentials.Backend { return credentials.Backend(c.s.StoreBackend) }
func (c mainConfig) GetStorePath() string { return c.s.StorePath }
func (c mainConfig) GetStoreSealKey() string { return c.s.StoreSealKey }

func (c mainConfig) GetRedis() credentials.RedisConfig {
	return credentials.RedisConfig{Addr: c.s.RedisAddr, Password: c.s.RedisPassword, DB: c.s.RedisDB}
}

// StoreOptions maps the store settings onto credentials.Open
func StoreOptions(c Config) credentials.OpenOptions {
	return credentials.OpenOptions{
		Backend: c.GetStoreBackend(),
		Path:    c.GetStorePath(),
		SealKey: c.GetStoreSealKey(),
		Redis:   c.GetRedis(),
		Profile: c.GetProfile(),
	}
}
