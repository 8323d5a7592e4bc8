package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  port: "9090"
db:
  host: localhost
  port: 5432
  user: app
  password: secret
  name: pushdb
redis:
  addr: localhost:6379
jwt:
  secret: file-secret
vapid:
  subject: mailto:ops@example.com
dispatch:
  retry_max: 3
`

func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestLoadReadsBaseFileAndDefaults(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{"base.yaml": baseYAML})
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("CONFIG_ENV", "base")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "localhost", cfg.DB.Host)
	require.Equal(t, "pushdb", cfg.DB.Name)
	require.Equal(t, "file-secret", cfg.JWT.Secret)
	require.Equal(t, 3, cfg.Dispatch.RetryMax)

	require.Equal(t, "disable", cfg.DB.SSLMode)
	require.Equal(t, 300, cfg.Dispatch.RetryBaseDelayMS)
	require.Equal(t, 60, cfg.Dispatch.AdminCacheSeconds)
}

func TestLoadOverlaysEnvironmentFile(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"base.yaml": baseYAML,
		"prod.yaml": "db:\n  host: db.internal\n  sslmode: require\n",
	})
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("CONFIG_ENV", "prod")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "db.internal", cfg.DB.Host)
	require.Equal(t, "require", cfg.DB.SSLMode)
	require.Equal(t, "pushdb", cfg.DB.Name, "values absent from the overlay survive")
}

func TestLoadMissingOverlayIsNotAnError(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{"base.yaml": baseYAML})
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("CONFIG_ENV", "staging")

	_, err := Load()
	require.NoError(t, err)
}

func TestLoadEnvVarsWinOverFiles(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{"base.yaml": baseYAML})
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("CONFIG_ENV", "base")
	t.Setenv("DB_HOST", "override.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("FCM_SERVICE_ACCOUNT", `{"client_email":"svc@proj"}`)
	t.Setenv("VAPID_PUBLIC_KEY", "env-pub")
	t.Setenv("SERVER_PORT", "8087")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "override.internal", cfg.DB.Host)
	require.Equal(t, 6432, cfg.DB.Port)
	require.Equal(t, "env-secret", cfg.JWT.Secret)
	require.Equal(t, `{"client_email":"svc@proj"}`, cfg.FCM.ServiceAccountJSON)
	require.Equal(t, "env-pub", cfg.VAPID.PublicKey)
	require.Equal(t, "8087", cfg.Server.Port)
}

func TestLoadFailsWithoutBaseFile(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("CONFIG_ENV", "base")

	_, err := Load()
	require.Error(t, err)
}
