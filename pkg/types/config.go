package types

import (
	"errors"
	"net/url"
	"time"
)

// Config holds availability backend selection and transport parameters.
type Config struct {
	Backend    string        `json:"backend" yaml:"backend"`
	DataDir    string        `json:"data_dir" yaml:"data_dir"`
	SubmitURL  string        `json:"submit_url" yaml:"submit_url"`
	AutoSubmit bool          `json:"auto_submit" yaml:"auto_submit"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
}

// Supported availability backend names.
const (
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

// DefaultTimeout bounds a single submit or availability request.
const DefaultTimeout = 10 * time.Second

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown backend")
	ErrSubmitURLInvalid = errors.New("submit url must be an absolute http(s) url")
	ErrTimeoutInvalid   = errors.New("timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendHTTP:   true,
}

// Validate checks that the Config is well-formed. The http backend needs a
// SubmitURL because availability is fetched from the same host.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Timeout < 0 {
		return ErrTimeoutInvalid
	}
	if c.SubmitURL == "" {
		if c.Backend == BackendHTTP {
			return ErrSubmitURLInvalid
		}
		return nil
	}
	u, err := url.Parse(c.SubmitURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrSubmitURLInvalid
	}
	return nil
}

// RequestTimeout returns Timeout, or DefaultTimeout when unset.
func (c Config) RequestTimeout() time.Duration {
	if c.Timeout == 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
