package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AmmannChristian/go-apiclient/httpclient"
	"github.com/AmmannChristian/go-apiclient/internal/testutil"
	"github.com/AmmannChristian/go-apiclient/oauth2client"
	"github.com/AmmannChristian/go-apiclient/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
environment:
  name: staging
  api_host: api.staging.example.com
  auth_host: auth.staging.example.com
  sandbox: true
client:
  id: my-app
  secret: s3cret
  redirect_uri: https://app.example.com/callback
http:
  timeout: 5s
  max_connections: 4
  user_agent: my-app/2.0
logging:
  enabled: true
`

func envMap(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "live", cfg.Environment.Name)
	assert.Equal(t, oauth2client.DefaultTokenPath, cfg.Client.TokenPath)
	assert.Equal(t, httpclient.DefaultTimeout, cfg.HTTP.Timeout)
	assert.Equal(t, pool.DefaultMaxTotal, cfg.HTTP.MaxConnections)
	assert.Equal(t, httpclient.DefaultContentType, cfg.HTTP.ContentType)
	assert.Equal(t, httpclient.DefaultUserAgent, cfg.HTTP.UserAgent)
	assert.False(t, cfg.Logging.Enabled)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment.Name)
	assert.Equal(t, "api.staging.example.com", cfg.Environment.APIHost)
	assert.True(t, cfg.Environment.Sandbox)
	assert.Equal(t, "my-app", cfg.Client.ID)
	assert.Equal(t, "s3cret", cfg.Client.Secret)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 4, cfg.HTTP.MaxConnections)
	assert.Equal(t, "my-app/2.0", cfg.HTTP.UserAgent)
	assert.True(t, cfg.Logging.Enabled)

	// Unset fields keep their defaults.
	assert.Equal(t, oauth2client.DefaultTokenPath, cfg.Client.TokenPath)
	assert.Equal(t, httpclient.DefaultContentType, cfg.HTTP.ContentType)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("http: [not, a, map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parse")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apiclient.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-app", cfg.Client.ID)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client: [oops"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APICLIENT_CLIENT_ID", "from-env")
	t.Setenv("APICLIENT_CLIENT_SECRET", "env-secret")
	t.Setenv("APICLIENT_TIMEOUT", "90s")
	t.Setenv("APICLIENT_SANDBOX", "false")

	path := filepath.Join(t.TempDir(), "apiclient.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Client.ID)
	assert.Equal(t, "env-secret", cfg.Client.Secret)
	assert.Equal(t, 90*time.Second, cfg.HTTP.Timeout)
	assert.False(t, cfg.Environment.Sandbox)
	assert.Equal(t, "api.staging.example.com", cfg.Environment.APIHost)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"APICLIENT_API_HOST":                 "api.example.com",
		"APICLIENT_AUTH_HOST":                "auth.example.com",
		"APICLIENT_PLAIN_HTTP":               "true",
		"APICLIENT_MAX_CONNECTIONS":          "25",
		"APICLIENT_TLS_INSECURE_SKIP_VERIFY": "1",
		"APICLIENT_DEBUG_REQUESTS":           "true",
		"APICLIENT_TOKEN_PATH":               "/custom/token",
	}))
	require.NoError(t, err)

	assert.Equal(t, "api.example.com", cfg.Environment.APIHost)
	assert.Equal(t, "auth.example.com", cfg.Environment.AuthHost)
	assert.True(t, cfg.Environment.PlainHTTP)
	assert.Equal(t, 25, cfg.HTTP.MaxConnections)
	assert.True(t, cfg.TLS.InsecureSkipVerify)
	assert.True(t, cfg.Logging.DebugRequests)
	assert.Equal(t, "/custom/token", cfg.Client.TokenPath)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{name: "bool", vars: map[string]string{"APICLIENT_SANDBOX": "maybe"}, want: "APICLIENT_SANDBOX"},
		{name: "duration", vars: map[string]string{"APICLIENT_TIMEOUT": "soon"}, want: "APICLIENT_TIMEOUT"},
		{name: "int", vars: map[string]string{"APICLIENT_MAX_CONNECTIONS": "many"}, want: "APICLIENT_MAX_CONNECTIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(envMap(tt.vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func validConfig() Config {
	cfg := Default()
	cfg.Environment.APIHost = "api.example.com"
	cfg.Environment.AuthHost = "auth.example.com"
	cfg.Client.ID = "my-app"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing client id", mutate: func(c *Config) { c.Client.ID = "" }, wantErr: "client.id"},
		{name: "missing api host", mutate: func(c *Config) { c.Environment.APIHost = "" }, wantErr: "API host"},
		{name: "host with scheme", mutate: func(c *Config) { c.Environment.AuthHost = "https://auth.example.com" }, wantErr: "scheme or path"},
		{name: "negative timeout", mutate: func(c *Config) { c.HTTP.Timeout = -time.Second }, wantErr: "http.timeout"},
		{name: "zero connections", mutate: func(c *Config) { c.HTTP.MaxConnections = 0 }, wantErr: "http.max_connections"},
		{name: "cert without key", mutate: func(c *Config) { c.TLS.CertFile = "client.pem" }, wantErr: "set together"},
		{name: "insecure in production", mutate: func(c *Config) { c.TLS.InsecureSkipVerify = true }, wantErr: "sandbox"},
		{name: "insecure in sandbox", mutate: func(c *Config) {
			c.TLS.InsecureSkipVerify = true
			c.Environment.Sandbox = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvAndIdentity(t *testing.T) {
	cfg := validConfig()
	cfg.Client.Secret = "s3cret"
	cfg.Client.RedirectURI = "https://app.example.com/callback"

	env := cfg.Env()
	assert.Equal(t, "live", env.Name)
	assert.True(t, env.SecureAPI)
	assert.True(t, env.SecureAuth)
	assert.False(t, env.Sandbox)

	cfg.Environment.PlainHTTP = true
	env = cfg.Env()
	assert.False(t, env.SecureAPI)
	assert.False(t, env.SecureAuth)

	id := cfg.Identity()
	assert.Equal(t, oauth2client.Identity{
		ClientID:     "my-app",
		ClientSecret: "s3cret",
		RedirectURI:  "https://app.example.com/callback",
	}, id)
}

func TestClientOptions(t *testing.T) {
	cfg := validConfig()
	assert.Len(t, cfg.ClientOptions(), 5)

	cfg.TLS.CAFile = "ca.pem"
	cfg.Environment.Sandbox = true
	cfg.TLS.InsecureSkipVerify = true
	cfg.Logging.Enabled = true
	cfg.Logging.DebugRequests = true
	assert.Len(t, cfg.ClientOptions(), 9)
}

func TestNewClient_RejectsInvalidConfig(t *testing.T) {
	cfg := Default()
	_, err := cfg.NewClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client.id")
}

func TestNewClient_LogsIn(t *testing.T) {
	auth := testutil.NewTokenEndpoint(t, nil)
	api := testutil.NewLocalHTTPServer(t, nil)

	cfg := Default()
	cfg.Environment.APIHost = testutil.Host(api)
	cfg.Environment.AuthHost = auth.Host()
	cfg.Environment.PlainHTTP = true
	cfg.Environment.Sandbox = true
	cfg.Client.ID = "my-app"
	cfg.Client.Secret = "s3cret"

	client, err := cfg.NewClient()
	require.NoError(t, err)
	t.Cleanup(client.Close)

	cred, err := client.Login(context.Background(), "user", "pass", "")
	require.NoError(t, err)
	assert.NotEmpty(t, cred.Access)

	forms := auth.Requests()
	require.Len(t, forms, 1)
	assert.Equal(t, "password", forms[0].Get("grant_type"))
	assert.Equal(t, "my-app", forms[0].Get("client_id"))
}
