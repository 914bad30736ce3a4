package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

const (
	envVar            = "ENV"
	logLevelVar       = "LOG_LEVEL"
	profileVar        = "SHOP_PROFILE"
	baseURLVar        = "SHOP_API_BASE_URL"
	authSchemeVar     = "SHOP_AUTH_SCHEME"
	requestTimeoutVar = "SHOP_REQUEST_TIMEOUT"
	storeBackendVar   = "SHOP_STORE_BACKEND"
	storePathVar      = "SHOP_STORE_PATH"
	storeSealKeyVar   = "SHOP_STORE_SEAL_KEY"
	redisAddrVar      = "SHOP_REDIS_ADDR"
	redisPasswordVar  = "SHOP_REDIS_PASSWORD"
	redisDBVar        = "SHOP_REDIS_DB"
)

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// applyEnv overlays every set environment variable onto s
func applyEnv(s *settings) error {
	s.Env = strings.ToUpper(GetEnv(envVar, s.Env))
	s.LogLevel = strings.ToLower(GetEnv(logLevelVar, s.LogLevel))
	s.Profile = GetEnv(profileVar, s.Profile)
	s.BaseURL = GetEnv(baseURLVar, s.BaseURL)
	s.AuthScheme = GetEnv(authSchemeVar, s.AuthScheme)
	s.StoreBackend = strings.ToLower(GetEnv(storeBackendVar, s.StoreBackend))
	s.StorePath = GetEnv(storePathVar, s.StorePath)
	s.StoreSealKey = GetEnv(storeSealKeyVar, s.StoreSealKey)
	s.RedisAddr = GetEnv(redisAddrVar, s.RedisAddr)
	s.RedisPassword = GetEnv(redisPasswordVar, s.RedisPassword)

	if v := os.Getenv(requestTimeoutVar); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return autherrors.Wrapf(autherrors.ErrInvalidConfig, "%s=%q", requestTimeoutVar, v)
		}
		s.RequestTimeout = d
	}
	if v := os.Getenv(redisDBVar); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return autherrors.Wrapf(autherrors.ErrInvalidConfig, "%s=%q", redisDBVar, v)
		}
		s.RedisDB = db
	}
	return nil
}

// parseTimeout accepts a Go duration ("30s") or a whole number of seconds
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
