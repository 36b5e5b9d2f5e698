package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/AmmannChristian/go-apiclient/apiclient"
	"github.com/AmmannChristian/go-apiclient/environment"
	"github.com/AmmannChristian/go-apiclient/httpclient"
	"github.com/AmmannChristian/go-apiclient/oauth2client"
	"github.com/AmmannChristian/go-apiclient/pool"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by the package.
const EnvPrefix = "APICLIENT_"

// Config is the complete client configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Client      ClientConfig      `yaml:"client"`
	HTTP        HTTPConfig        `yaml:"http"`
	TLS         TLSConfig         `yaml:"tls"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// EnvironmentConfig selects the API and authorization hosts.
type EnvironmentConfig struct {
	Name     string `yaml:"name"`
	APIHost  string `yaml:"api_host"`
	AuthHost string `yaml:"auth_host"`

	// PlainHTTP disables TLS for both hosts. Intended for local test servers.
	PlainHTTP bool `yaml:"plain_http"`
	Sandbox   bool `yaml:"sandbox"`
}

// ClientConfig is the registered application identity.
type ClientConfig struct {
	ID          string `yaml:"id"`
	Secret      string `yaml:"secret"`
	RedirectURI string `yaml:"redirect_uri"`
	TokenPath   string `yaml:"token_path"`
}

// HTTPConfig tunes request execution.
type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxConnections int           `yaml:"max_connections"`
	ContentType    string        `yaml:"content_type"`
	UserAgent      string        `yaml:"user_agent"`
}

// TLSConfig holds certificate settings.
type TLSConfig struct {
	CAFile             string `yaml:"ca_file"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// LoggingConfig enables log output.
type LoggingConfig struct {
	Enabled       bool `yaml:"enabled"`
	DebugRequests bool `yaml:"debug_requests"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Environment: EnvironmentConfig{
			Name: "live",
		},
		Client: ClientConfig{
			TokenPath: oauth2client.DefaultTokenPath,
		},
		HTTP: HTTPConfig{
			Timeout:        httpclient.DefaultTimeout,
			MaxConnections: pool.DefaultMaxTotal,
			ContentType:    httpclient.DefaultContentType,
			UserAgent:      httpclient.DefaultUserAgent,
		},
	}
}

// Load reads the YAML file at path on top of the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and applies environment overrides.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from variables found by lookup, e.g. os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ENV_NAME":      &c.Environment.Name,
		"API_HOST":      &c.Environment.APIHost,
		"AUTH_HOST":     &c.Environment.AuthHost,
		"CLIENT_ID":     &c.Client.ID,
		"CLIENT_SECRET": &c.Client.Secret,
		"REDIRECT_URI":  &c.Client.RedirectURI,
		"TOKEN_PATH":    &c.Client.TokenPath,
		"CONTENT_TYPE":  &c.HTTP.ContentType,
		"USER_AGENT":    &c.HTTP.UserAgent,
		"TLS_CA_FILE":   &c.TLS.CAFile,
		"TLS_CERT_FILE": &c.TLS.CertFile,
		"TLS_KEY_FILE":  &c.TLS.KeyFile,
	}
	for name, field := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = v
		}
	}

	bools := map[string]*bool{
		"PLAIN_HTTP":               &c.Environment.PlainHTTP,
		"SANDBOX":                  &c.Environment.Sandbox,
		"TLS_INSECURE_SKIP_VERIFY": &c.TLS.InsecureSkipVerify,
		"LOG":                      &c.Logging.Enabled,
		"DEBUG_REQUESTS":           &c.Logging.DebugRequests,
	}
	for name, field := range bools {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		*field = b
	}

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.HTTP.Timeout = d
	}

	if v, ok := lookup(EnvPrefix + "MAX_CONNECTIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sMAX_CONNECTIONS: %w", EnvPrefix, err)
		}
		c.HTTP.MaxConnections = n
	}

	return nil
}

// Validate checks that the configuration can build a client.
func (c Config) Validate() error {
	if c.Client.ID == "" {
		return errors.New("config: client.id is required")
	}
	if err := c.Env().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("config: http.timeout must not be negative, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.MaxConnections <= 0 {
		return fmt.Errorf("config: http.max_connections must be positive, got %d", c.HTTP.MaxConnections)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return errors.New("config: tls.cert_file and tls.key_file must be set together")
	}
	if c.TLS.InsecureSkipVerify && !c.Environment.Sandbox {
		return errors.New("config: tls.insecure_skip_verify requires environment.sandbox")
	}
	return nil
}

// Env returns the configured environment.
func (c Config) Env() environment.Environment {
	return environment.Environment{
		Name:       c.Environment.Name,
		APIHost:    c.Environment.APIHost,
		AuthHost:   c.Environment.AuthHost,
		SecureAPI:  !c.Environment.PlainHTTP,
		SecureAuth: !c.Environment.PlainHTTP,
		Sandbox:    c.Environment.Sandbox,
	}
}

// Identity returns the configured application identity.
func (c Config) Identity() oauth2client.Identity {
	return oauth2client.Identity{
		ClientID:     c.Client.ID,
		ClientSecret: c.Client.Secret,
		RedirectURI:  c.Client.RedirectURI,
	}
}

// ClientOptions translates the configuration into apiclient options.
func (c Config) ClientOptions() []apiclient.Option {
	opts := []apiclient.Option{
		apiclient.WithTimeout(c.HTTP.Timeout),
		apiclient.WithMaxTotalConnections(c.HTTP.MaxConnections),
	}
	if c.HTTP.ContentType != "" {
		opts = append(opts, apiclient.WithContentType(c.HTTP.ContentType))
	}
	if c.HTTP.UserAgent != "" {
		opts = append(opts, apiclient.WithUserAgent(c.HTTP.UserAgent))
	}
	if c.Client.TokenPath != "" {
		opts = append(opts, apiclient.WithTokenPath(c.Client.TokenPath))
	}
	if c.TLS.CAFile != "" || c.TLS.CertFile != "" {
		opts = append(opts, apiclient.WithTLS(c.TLS.CAFile, c.TLS.CertFile, c.TLS.KeyFile))
	}
	if c.TLS.InsecureSkipVerify {
		opts = append(opts, apiclient.WithInsecureSkipVerify())
	}
	if c.Logging.Enabled {
		opts = append(opts, apiclient.WithLoggingEnabled())
	}
	if c.Logging.DebugRequests {
		opts = append(opts, apiclient.WithDebugRequests())
	}
	return opts
}

// NewClient validates the configuration and builds a client from it.
func (c Config) NewClient(extra ...apiclient.Option) (*apiclient.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return apiclient.New(c.Identity(), c.Env(), append(c.ClientOptions(), extra...)...)
}
