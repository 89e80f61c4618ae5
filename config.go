package github

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix is prepended to every variable read by LoadConfig.
const envPrefix = "github"

// Config is the environment-driven configuration of a Client. Variables are
// read with the GITHUB_ prefix, e.g. GITHUB_BASE_URL or GITHUB_TOKEN.
type Config struct {
	BaseURL       string        `envconfig:"BASE_URL" default:"https://api.github.com/"`
	APIVersion    string        `envconfig:"API_VERSION" default:"v3"`
	UserAgent     string        `envconfig:"USER_AGENT"`
	EnterpriseURL string        `envconfig:"ENTERPRISE_URL"`
	Token         string        `envconfig:"TOKEN"`
	Secret        string        `envconfig:"SECRET"`
	AuthMethod    string        `envconfig:"AUTH_METHOD"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"30s"`
	LogLevel      string        `envconfig:"LOG_LEVEL"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, &ClientError{
			Type:      ErrorTypeInvalidArgument,
			Message:   "invalid environment configuration",
			Cause:     err,
			Timestamp: time.Now(),
		}
	}
	return cfg, nil
}

// Options converts cfg into client options. A token without secret or
// method authenticates with AuthHTTPToken.
func (cfg Config) Options() []Option {
	var options []Option

	if cfg.BaseURL != "" {
		options = append(options, WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIVersion != "" {
		options = append(options, WithAPIVersion(cfg.APIVersion))
	}
	if cfg.UserAgent != "" {
		options = append(options, WithUserAgent(cfg.UserAgent))
	}
	if cfg.Timeout > 0 {
		options = append(options, WithTimeout(cfg.Timeout))
	}
	if cfg.EnterpriseURL != "" {
		options = append(options, WithEnterpriseURL(cfg.EnterpriseURL))
	}
	if cfg.Token != "" {
		method := cfg.AuthMethod
		if method == "" && cfg.Secret == "" {
			method = AuthHTTPToken
		}
		options = append(options, WithAuthentication(cfg.Token, cfg.Secret, method))
	}
	if cfg.CacheTTL > 0 {
		options = append(options, WithCache(cfg.CacheTTL))
	}
	if cfg.LogLevel != "" {
		options = append(options, WithLogger(NewConsoleLogger(os.Stderr, cfg.LogLevel)))
	}

	return options
}

// NewFromConfig creates a client from cfg; options are applied after the
// ones derived from cfg.
func NewFromConfig(cfg Config, options ...Option) *Client {
	return New(append(cfg.Options(), options...)...)
}
