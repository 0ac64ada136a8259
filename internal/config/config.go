// Package config loads playground settings from defaults, an optional config
// file, and PLAYGROUND_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oteto/gonkey-playground/platform/loader"
	"github.com/oteto/gonkey-playground/platform/loader/httpauth"
	"github.com/spf13/viper"
)

const EnvPrefix = "PLAYGROUND"

const (
	EngineExtism   = "extism"
	EngineRisor    = "risor"
	EngineStarlark = "starlark"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Engines lists the accepted values of runtime.engine.
func Engines() []string {
	return []string{EngineExtism, EngineRisor, EngineStarlark}
}

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RuntimeConfig struct {
	Engine       string        `mapstructure:"engine"`
	Module       string        `mapstructure:"module"`
	ModuleSHA256 string        `mapstructure:"module_sha256"`
	Glue         string        `mapstructure:"glue"`
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	// InsecureSkipVerify accepts any TLS certificate when fetching artifacts.
	InsecureSkipVerify bool       `mapstructure:"insecure_skip_verify"`
	Auth               AuthConfig `mapstructure:"auth"`
}

// AuthConfig holds credentials for fetching artifacts over HTTP.
// Type is one of none, basic, bearer or header.
type AuthConfig struct {
	Type     string            `mapstructure:"type"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Token    string            `mapstructure:"token"`
	Headers  map[string]string `mapstructure:"headers"`
}

// SetDefaults registers every key with its default so environment overrides
// are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "localhost:8000")
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("runtime.engine", EngineExtism)
	v.SetDefault("runtime.module", "")
	v.SetDefault("runtime.module_sha256", "")
	v.SetDefault("runtime.glue", "")
	v.SetDefault("runtime.call_timeout", time.Duration(0))
	v.SetDefault("runtime.max_attempts", 5)
	v.SetDefault("runtime.http_timeout", 30*time.Second)
	v.SetDefault("runtime.insecure_skip_verify", false)
	v.SetDefault("runtime.auth.type", "none")
	v.SetDefault("runtime.auth.username", "")
	v.SetDefault("runtime.auth.password", "")
	v.SetDefault("runtime.auth.token", "")
	v.SetDefault("runtime.auth.headers", map[string]string{})
}

// Load reads configuration into v and returns the validated result.
// configFile may be empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is empty"))
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if !slices.Contains(Engines(), c.Runtime.Engine) {
		errs = append(errs, fmt.Errorf("runtime.engine %q is not one of %s",
			c.Runtime.Engine, strings.Join(Engines(), ", ")))
	}
	if c.Runtime.CallTimeout < 0 {
		errs = append(errs, errors.New("runtime.call_timeout is negative"))
	}
	if c.Runtime.MaxAttempts < 0 {
		errs = append(errs, errors.New("runtime.max_attempts is negative"))
	}
	if c.Runtime.HTTPTimeout < 0 {
		errs = append(errs, errors.New("runtime.http_timeout is negative"))
	}
	if _, err := c.Runtime.Auth.Authenticator(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Authenticator builds the authenticator described by the auth settings.
func (a AuthConfig) Authenticator() (httpauth.Authenticator, error) {
	switch strings.ToLower(a.Type) {
	case "", "none":
		return httpauth.NewNoAuth(), nil
	case "basic":
		if a.Username == "" {
			return nil, errors.New("runtime.auth.username is required for basic auth")
		}
		return httpauth.NewBasicAuth(a.Username, a.Password), nil
	case "bearer":
		if a.Token == "" {
			return nil, errors.New("runtime.auth.token is required for bearer auth")
		}
		return httpauth.NewBearerAuth(a.Token), nil
	case "header":
		if len(a.Headers) == 0 {
			return nil, errors.New("runtime.auth.headers is required for header auth")
		}
		return httpauth.NewHeaderAuth(a.Headers), nil
	default:
		return nil, fmt.Errorf("runtime.auth.type %q is not supported", a.Type)
	}
}

// HTTPOptions returns the options used when artifacts are fetched over HTTP.
func (r RuntimeConfig) HTTPOptions() (*loader.HTTPOptions, error) {
	auth, err := r.Auth.Authenticator()
	if err != nil {
		return nil, err
	}
	opts := loader.DefaultHTTPOptions()
	opts.Timeout = r.HTTPTimeout
	opts.Authenticator = auth
	opts.InsecureSkipVerify = r.InsecureSkipVerify
	return opts, nil
}
