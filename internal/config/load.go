package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// fileSettings is the layout of the YAML config file
type fileSettings struct {
	Env            string `yaml:"env"`
	LogLevel       string `yaml:"log_level"`
	Profile        string `yaml:"profile"`
	BaseURL        string `yaml:"api_base_url"`
	AuthScheme     string `yaml:"auth_scheme"`
	RequestTimeout string `yaml:"request_timeout"`
	Store          struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		SealKey string `yaml:"seal_key"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       *int   `yaml:"db"`
	} `yaml:"redis"`
}

var validate = validator.New()

// DefaultPath returns ~/.config/shopctl/config.yaml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "shopctl", "config.yaml"), nil
}

// New resolves the configuration from defaults, the default config file if
// present and the environment.
func New() (Config, error) {
	return Load("")
}

// Load resolves the configuration. Environment variables (seeded from a
// .env file in the working directory) override the YAML file at path, which
// overrides the defaults. An empty path reads the default file when it
// exists; an explicit path must exist.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Ignoring unreadable .env file")
	}

	s := defaults()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := applyFile(&s, path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := applyEnv(&s); err != nil {
		return nil, err
	}

	if err := validate.Struct(s); err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidConfig, "%s", err.Error())
	}
	return mainConfig{s: s}, nil
}

func applyFile(s *settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "[config.Load] read %s", path)
	}

	var fc fileSettings
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return autherrors.Wrapf(autherrors.ErrInvalidConfig, "[config.Load] parse %s: %s", path, err.Error())
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.Env, strings.ToUpper(fc.Env))
	set(&s.LogLevel, strings.ToLower(fc.LogLevel))
	set(&s.Profile, fc.Profile)
	set(&s.BaseURL, fc.BaseURL)
	set(&s.AuthScheme, fc.AuthScheme)
	set(&s.StoreBackend, strings.ToLower(fc.Store.Backend))
	set(&s.StorePath, fc.Store.Path)
	set(&s.StoreSealKey, fc.Store.SealKey)
	set(&s.RedisAddr, fc.Redis.Addr)
	set(&s.RedisPassword, fc.Redis.Password)
	if fc.Redis.DB != nil {
		s.RedisDB = *fc.Redis.DB
	}
	if fc.RequestTimeout != "" {
		d, err := parseTimeout(fc.RequestTimeout)
		if err != nil {
			return autherrors.Wrapf(autherrors.ErrInvalidConfig, "[config.Load] request_timeout %q", fc.RequestTimeout)
		}
		s.RequestTimeout = d
	}
	return nil
}
