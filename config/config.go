package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"momo-collect/errs"
)

// Mode selects the credential path and the active endpoint.
type Mode string

const (
	ModeSandbox    Mode = "sandbox"
	ModeProduction Mode = "production"
)

// Endpoint is the per-mode provider surface.
type Endpoint struct {
	BaseURL           string `yaml:"base_url"`
	TargetEnvironment string `yaml:"target_environment"`
	SubscriptionKey   string `yaml:"subscription_key"`
	CallbackHost      string `yaml:"callback_host"`
}

type PollConfig struct {
	Retries  int           `yaml:"retries"`
	Interval time.Duration `yaml:"interval"`
}

type HTTPConfig struct {
	Port string `yaml:"port"`
	// Timeout bounds a single remote call.
	Timeout time.Duration `yaml:"timeout"`
	// PaymentTimeout bounds a whole transaction; zero disables it.
	PaymentTimeout time.Duration `yaml:"payment_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// Config is resolved once at startup and never mutated afterwards.
type Config struct {
	Env        string        `yaml:"env"`
	Mode       Mode          `yaml:"mode"`
	Currency   string        `yaml:"currency"`
	Sandbox    Endpoint      `yaml:"sandbox"`
	Production Endpoint      `yaml:"production"`
	APIUser    string        `yaml:"api_user"`
	APIKey     string        `yaml:"api_key"`
	Poll       PollConfig    `yaml:"poll"`
	HTTP       HTTPConfig    `yaml:"http"`
	Redis      RedisConfig   `yaml:"redis"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

// Default returns the built-in defaults, before any file or env overrides.
func Default() Config {
	return Config{
		Env:      "dev",
		Currency: "ZMW",
		Poll: PollConfig{
			Retries:  3,
			Interval: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Port:    "8080",
			Timeout: 30 * time.Second,
		},
		Breaker: BreakerConfig{
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
	}
}

// Load reads .env (if present), the optional YAML file named by
// MOMO_CONFIG_FILE, then the process environment, and validates the result.
func Load() (Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("MOMO_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errs.Wrap(err, errs.StageConfiguration, "read config file")
		}
		if cfg, err = Parse(data, cfg); err != nil {
			return Config{}, err
		}
	}
	cfg, err := FromEnv(cfg, os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse overlays YAML onto base.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errs.Wrap(err, errs.StageConfiguration, "parse config YAML")
	}
	return cfg, nil
}

// FromEnv overlays environment variables onto base.
func FromEnv(base Config, lookup func(string) (string, bool)) (Config, error) {
	cfg := base
	e := envReader{lookup: lookup}

	e.str("APP_ENV", &cfg.Env)
	if v, ok := lookup("MTN_MOMO_ENV"); ok && v != "" {
		cfg.Mode = Mode(v)
	}
	e.str("LOCAL_CURRENCY", &cfg.Currency)

	e.str("MOMO_API_BASE_URL_SANDBOX", &cfg.Sandbox.BaseURL)
	e.str("X_TARGET_ENVIRONMENT_SANDBOX", &cfg.Sandbox.TargetEnvironment)
	e.str("SUBSCRIPTION_KEY_SANDBOX", &cfg.Sandbox.SubscriptionKey)
	e.str("PROVIDER_CALLBACK_HOST_SANDBOX", &cfg.Sandbox.CallbackHost)

	e.str("MOMO_API_BASE_URL_PRODUCTION", &cfg.Production.BaseURL)
	e.str("X_TARGET_ENVIRONMENT_PRODUCTION", &cfg.Production.TargetEnvironment)
	e.str("SUBSCRIPTION_KEY_PRODUCTION", &cfg.Production.SubscriptionKey)
	e.str("PROVIDER_CALLBACK_HOST_PRODUCTION", &cfg.Production.CallbackHost)
	e.str("API_USER_PRODUCTION", &cfg.APIUser)
	e.str("API_KEY_PRODUCTION", &cfg.APIKey)

	e.integer("DEFAULT_POLL_RETRIES", &cfg.Poll.Retries)
	e.millis("DEFAULT_POLL_DELAY_MS", &cfg.Poll.Interval)

	e.str("HTTP_PORT", &cfg.HTTP.Port)
	e.millis("HTTP_TIMEOUT_MS", &cfg.HTTP.Timeout)
	e.millis("PAYMENT_TIMEOUT_MS", &cfg.HTTP.PaymentTimeout)

	e.str("REDIS_ADDR", &cfg.Redis.Addr)
	e.str("REDIS_PASSWORD", &cfg.Redis.Password)
	e.integer("REDIS_DB", &cfg.Redis.DB)

	var maxFailures int
	if e.integer("BREAKER_MAX_FAILURES", &maxFailures) {
		cfg.Breaker.MaxFailures = uint32(maxFailures)
	}
	e.millis("BREAKER_OPEN_TIMEOUT_MS", &cfg.Breaker.OpenTimeout)

	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// Active returns the endpoint for the configured mode.
func (c Config) Active() Endpoint {
	if c.Mode == ModeProduction {
		return c.Production
	}
	return c.Sandbox
}

// Validate reports misconfiguration that must stop the process before any
// transaction starts.
func (c Config) Validate() error {
	switch c.Mode {
	case "":
		return errs.Configuration(`MTN_MOMO_ENV is not set. Must be "sandbox" or "production"`)
	case ModeSandbox, ModeProduction:
	default:
		return errs.Configuration(fmt.Sprintf(`invalid MTN_MOMO_ENV %q. Must be "sandbox" or "production"`, c.Mode))
	}

	ep := c.Active()
	suffix := "SANDBOX"
	if c.Mode == ModeProduction {
		suffix = "PRODUCTION"
	}
	if ep.BaseURL == "" {
		return errs.Configuration("MOMO_API_BASE_URL_" + suffix + " is not set")
	}
	if ep.SubscriptionKey == "" {
		return errs.Configuration("SUBSCRIPTION_KEY_" + suffix + " is not set")
	}
	if ep.TargetEnvironment == "" {
		return errs.Configuration("X_TARGET_ENVIRONMENT_" + suffix + " is not set")
	}
	if c.Mode == ModeProduction && (c.APIUser == "" || c.APIKey == "") {
		return errs.Configuration("API_USER_PRODUCTION and API_KEY_PRODUCTION are required in production mode")
	}
	if c.Currency == "" {
		return errs.Configuration("LOCAL_CURRENCY must not be empty")
	}
	if c.Poll.Retries < 1 {
		return errs.Configuration("DEFAULT_POLL_RETRIES must be at least 1")
	}
	if c.Poll.Interval < 0 {
		return errs.Configuration("DEFAULT_POLL_DELAY_MS must not be negative")
	}
	return nil
}

// envReader records the first parse failure and skips the rest.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) bool {
	v, ok := e.get(key)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = errs.Wrap(err, errs.StageConfiguration, key+" must be an integer")
		return false
	}
	*dst = n
	return true
}

func (e *envReader) millis(key string, dst *time.Duration) {
	var n int
	if e.integer(key, &n) {
		*dst = time.Duration(n) * time.Millisecond
	}
}
