package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProperties(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "application.properties")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	src, err := newSource(filepath.Join(t.TempDir(), "missing.properties"))
	require.NoError(t, err)

	cfg, err := load(src)
	require.NoError(t, err)

	assert.False(t, cfg.Auth.Enabled())
	assert.Equal(t, 7200, cfg.Auth.SessionTimeoutSeconds)
	assert.Equal(t, "system", cfg.System.User)
	assert.Equal(t, []string{"user", "admin"}, cfg.System.Roles)
	assert.False(t, cfg.Security.Insecure)
	assert.Equal(t, "/auth/", cfg.Security.ForwardLogoutFinish)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.System.SelfCheckURL)
}

func TestLoad_PropertiesFile(t *testing.T) {
	path := writeProperties(t, `
jwt.password=from-file
server.session.timeout=60
system.user=robot
system.roles=user, ops
security.insecure=true
forward.logout.finish=/bye
`)
	src, err := newSource(path)
	require.NoError(t, err)

	cfg, err := load(src)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 60, cfg.Auth.SessionTimeoutSeconds)
	assert.Equal(t, "robot", cfg.System.User)
	assert.Equal(t, []string{"user", "ops"}, cfg.System.Roles)
	assert.True(t, cfg.Security.Insecure)
	assert.Equal(t, "/bye", cfg.Security.ForwardLogoutFinish)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeProperties(t, "jwt.password=from-file\nserver.session.timeout=60\n")
	t.Setenv("JWT_PASSWORD", "from-env")
	t.Setenv("SERVER_SESSION_TIMEOUT", "120")

	src, err := newSource(path)
	require.NoError(t, err)

	cfg, err := load(src)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 120, cfg.Auth.SessionTimeoutSeconds)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("SERVER_SESSION_TIMEOUT", "0")

	src, err := newSource(filepath.Join(t.TempDir(), "missing.properties"))
	require.NoError(t, err)

	_, err = load(src)
	assert.Error(t, err)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "JWT_PASSWORD", envName("jwt.password"))
	assert.Equal(t, "SERVER_SESSION_TIMEOUT", envName("server.session.timeout"))
	assert.Equal(t, "FORWARD_LOGOUT_FINISH", envName("forward.logout.finish"))
}
