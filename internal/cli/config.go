package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/staybook/internal/paths"
	"github.com/mesh-intelligence/staybook/internal/sqlite"
	"github.com/mesh-intelligence/staybook/internal/transport"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

// Config keys of config.yaml.
const (
	cfgKeyBackend    = "backend"
	cfgKeyDataDir    = "data_dir"
	cfgKeySubmitURL  = "submit_url"
	cfgKeyAutoSubmit = "auto_submit"
	cfgKeyTimeout    = "timeout"
)

// envPrefix scopes the environment overrides of config keys, for example
// STAYBOOK_SUBMIT_URL.
const envPrefix = "STAYBOOK"

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir,omitempty"`
	SubmitURL  string `yaml:"submit_url,omitempty"`
	AutoSubmit bool   `yaml:"auto_submit"`
	Timeout    string `yaml:"timeout"`
}

// loadConfig reads config.yaml from configDir. A missing directory or file
// leaves the defaults in place.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyAutoSubmit, true)
	v.SetDefault(cfgKeyTimeout, types.DefaultTimeout)
	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyBackend, cfgKeySubmitURL, cfgKeyTimeout} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// config assembles and validates the effective configuration. The data
// directory follows flag > config.yaml > environment > working directory.
func (a *app) config() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, sysError("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend:    a.v.GetString(cfgKeyBackend),
		DataDir:    dataDir,
		SubmitURL:  a.v.GetString(cfgKeySubmitURL),
		AutoSubmit: a.v.GetBool(cfgKeyAutoSubmit),
		Timeout:    a.v.GetDuration(cfgKeyTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, userError("invalid configuration in %s: %w", paths.ConfigFile(a.configDir), err)
	}
	return cfg, nil
}

// openStore attaches the SQLite availability store. The caller must call
// the returned close function.
func (a *app) openStore(cfg types.Config) (*sqlite.Backend, func(), error) {
	cfg.Backend = types.BackendSQLite
	store := sqlite.NewBackend(sqlite.WithLogger(a.logger))
	if err := store.Attach(cfg); err != nil {
		return nil, nil, sysError("attach availability store: %w", err)
	}
	return store, func() {
		if err := store.Detach(); err != nil {
			a.logger.Warn("detach availability store", zap.Error(err))
		}
	}, nil
}

// client returns the backend HTTP client, or nil when no submit_url is
// configured.
func (a *app) client(cfg types.Config) (*transport.Client, error) {
	if cfg.SubmitURL == "" {
		return nil, nil
	}
	c, err := transport.New(cfg.SubmitURL,
		transport.WithTimeout(cfg.RequestTimeout()),
		transport.WithLogger(a.logger))
	if err != nil {
		return nil, userError("%w", err)
	}
	return c, nil
}

// resolver returns the availability resolver of the configured backend and
// a function releasing it.
func (a *app) resolver(cfg types.Config) (types.AvailabilityResolver, func(), error) {
	if cfg.Backend == types.BackendHTTP {
		c, err := a.client(cfg)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	store, closeStore, err := a.openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store, closeStore, nil
}

// defaultConfigYAML renders the config.yaml written by init.
func defaultConfigYAML(dataDir string) ([]byte, error) {
	cfg := configFile{
		Backend:    types.BackendSQLite,
		DataDir:    dataDir,
		AutoSubmit: true,
		Timeout:    types.DefaultTimeout.String(),
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# staybook configuration\n# submit_url: https://booking.example.com\n")
	return append(header, data...), nil
}

// readConfigFile decodes config.yaml without viper, for init's idempotence
// check. A missing file returns ok=false.
func readConfigFile(path string) (configFile, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return configFile{}, false, nil
	}
	if err != nil {
		return configFile{}, false, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return configFile{}, true, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Timeout); err != nil {
			return configFile{}, true, fmt.Errorf("parse %s: timeout: %w", path, err)
		}
	}
	return cfg, true, nil
}
