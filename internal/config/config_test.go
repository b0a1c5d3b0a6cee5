package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
port: 9000
public-base-url: https://files.example.com/
database:
  driver: postgres
  uri: postgres://file
auth:
  jwt-secret: from-file
  jwt-expire: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg := Default()
	require.NoError(t, cfg.readFile(path))

	env := map[string]string{
		"PORT":            "9100",
		"DB_URI":          "postgres://env",
		"ALLOWED_ORIGINS": "http://a.test, https://b.test ,",
		"JWT_EXPIRE":      "30m",
	}
	require.NoError(t, cfg.applyEnv(func(k string) string { return env[k] }))
	require.NoError(t, cfg.Validate())

	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, "https://files.example.com", cfg.PublicBaseURL)
	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	require.Equal(t, "postgres://env", cfg.Database.URI)
	require.Equal(t, "from-file", cfg.Auth.JWTSecret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWTExpire)
	require.Equal(t, []string{"http://a.test", "https://b.test"}, cfg.AllowedOrigins)
	require.Equal(t, ":9100", cfg.Addr())
}

func TestMissingFileIsNotAnError(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.readFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) string {
		if k == "PORT" {
			return "eighty"
		}
		return ""
	})
	require.ErrorContains(t, err, "invalid PORT")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg.Auth.JWTSecret = "s3cret"
	require.NoError(t, cfg.Validate())

	cfg.Database.Driver = DriverMySQL
	require.ErrorContains(t, cfg.Validate(), "DB_URI")

	cfg.Database.Driver = "sqlite"
	require.ErrorContains(t, cfg.Validate(), "unknown database driver")
}
