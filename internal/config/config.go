// Package config resolves star-sizes settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sternrassler/star-sizes/pkg/client"
	"github.com/Sternrassler/star-sizes/pkg/pagination"
	"github.com/Sternrassler/star-sizes/pkg/stars"
)

// Environment variable names.
const (
	EnvToken      = "GITHUB_TOKEN"
	EnvTokenAlt   = "GH_TOKEN"
	EnvUser       = "GITHUB_USER"
	EnvPerPage    = "PER_PAGE"
	EnvAPIVersion = "GITHUB_API_VERSION"
	EnvUserAgent  = "USER_AGENT"
	EnvBaseURL    = "GITHUB_API_URL"
	EnvTimeout    = "HTTP_TIMEOUT"
	EnvLogLevel   = "LOG_LEVEL"
	EnvLogFormat  = "LOG_FORMAT"
)

// DefaultEnvFile is the .env file read when no other path is given.
const DefaultEnvFile = ".env"

// ErrMissingToken is returned when no credential is configured.
var ErrMissingToken = errors.New("GITHUB_TOKEN is not set")

// Error reports an invalid configuration field.
type Error struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds all configuration for a run.
type Config struct {
	Token      string
	User       string
	PerPage    int
	APIVersion string
	UserAgent  string
	BaseURL    string
	Timeout    time.Duration
	LogLevel   string
	LogFormat  string

	// envErrs holds malformed numeric or duration variables by name until
	// a flag replaces the value or Validate reports them.
	envErrs map[string]error
}

// LookupEnvFunc matches os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// FromEnv builds a Config from lookupEnv, falling back to defaults for unset
// variables. A malformed PER_PAGE or HTTP_TIMEOUT keeps the default and is
// reported by Validate unless SetPerPage or SetTimeout replaces it first.
func FromEnv(lookupEnv LookupEnvFunc, userAgent string) *Config {
	env := envReader{lookupEnv: lookupEnv}

	token := env.get(EnvToken, "")
	if token == "" {
		token = env.get(EnvTokenAlt, "")
	}

	cfg := &Config{
		Token:      token,
		User:       env.get(EnvUser, ""),
		PerPage:    pagination.MaxPerPage,
		APIVersion: env.get(EnvAPIVersion, client.DefaultAPIVersion),
		UserAgent:  env.get(EnvUserAgent, userAgent),
		BaseURL:    env.get(EnvBaseURL, client.DefaultBaseURL),
		Timeout:    client.DefaultTimeout,
		LogLevel:   env.get(EnvLogLevel, ""),
		LogFormat:  env.get(EnvLogFormat, ""),
	}

	if n, err := env.getInt(EnvPerPage, cfg.PerPage); err != nil {
		cfg.recordEnvError(EnvPerPage, err)
	} else {
		cfg.PerPage = n
	}

	if d, err := env.getDuration(EnvTimeout, cfg.Timeout); err != nil {
		cfg.recordEnvError(EnvTimeout, err)
	} else {
		cfg.Timeout = d
	}

	return cfg
}

// SetPerPage overrides the page size, discarding a malformed PER_PAGE.
func (c *Config) SetPerPage(n int) {
	c.PerPage = n
	delete(c.envErrs, EnvPerPage)
}

// SetTimeout overrides the request timeout, discarding a malformed
// HTTP_TIMEOUT.
func (c *Config) SetTimeout(d time.Duration) {
	c.Timeout = d
	delete(c.envErrs, EnvTimeout)
}

func (c *Config) recordEnvError(key string, err error) {
	if c.envErrs == nil {
		c.envErrs = make(map[string]error)
	}
	c.envErrs[key] = err
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate validates the configuration. The token check comes first so a
// missing credential is always the reported problem, followed by malformed
// environment values and then the range checks.
func (c *Config) Validate() error {
	if c.Token == "" {
		return &Error{Field: "token", Err: ErrMissingToken}
	}
	for _, key := range []string{EnvPerPage, EnvTimeout} {
		if err, ok := c.envErrs[key]; ok {
			return err
		}
	}
	if c.PerPage < 1 || c.PerPage > pagination.MaxPerPage {
		return &Error{
			Field: "per_page",
			Err:   fmt.Errorf("must be between 1 and %d (got %d)", pagination.MaxPerPage, c.PerPage),
		}
	}
	if c.APIVersion == "" {
		return &Error{Field: "api_version", Err: errors.New("must not be empty")}
	}
	if c.UserAgent == "" {
		return &Error{Field: "user_agent", Err: errors.New("must not be empty")}
	}
	if c.Timeout < 0 {
		return &Error{Field: "timeout", Err: fmt.Errorf("must be >= 0 (got %s)", c.Timeout)}
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &Error{Field: "api_url", Err: fmt.Errorf("must be an absolute http(s) URL (got %q)", c.BaseURL)}
	}
	return nil
}

// Endpoint returns the starred collection path for the configured user.
func (c *Config) Endpoint() string {
	return stars.Endpoint(c.User)
}

// ClientConfig converts c into the GitHub client configuration.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.Token, c.UserAgent)
	cfg.BaseURL = c.BaseURL
	cfg.APIVersion = c.APIVersion
	cfg.Timeout = c.Timeout
	return cfg
}

type envReader struct {
	lookupEnv LookupEnvFunc
}

// get returns the trimmed value of key, or fallback when unset or blank.
func (r envReader) get(key, fallback string) string {
	if value, ok := r.lookupEnv(key); ok {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return fallback
}

func (r envReader) getInt(key string, fallback int) (int, error) {
	value := r.get(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &Error{Field: key, Err: fmt.Errorf("not an integer: %q", value)}
	}
	return n, nil
}

func (r envReader) getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := r.get(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &Error{Field: key, Err: fmt.Errorf("not a duration: %q", value)}
	}
	return d, nil
}
