package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg := Load("")

	require.Equal(t, "mongo", cfg.StoreBackend)
	require.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	require.Equal(t, 5, cfg.LockoutMaxAttempts)
	require.Equal(t, 15*time.Minute, cfg.LockoutDuration)
	require.True(t, cfg.SocketClientBroadcast)
	require.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("LOCKOUT_MAX_ATTEMPTS", "3")
	t.Setenv("SOCKET_CLIENT_BROADCAST", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("BCRYPT_COST", "not-a-number")

	cfg := Load("")
	require.NoError(t, cfg.Validate())
	require.Equal(t, "memory", cfg.StoreBackend)
	require.Equal(t, time.Hour, cfg.JWTTTL)
	require.Equal(t, 3, cfg.LockoutMaxAttempts)
	require.False(t, cfg.SocketClientBroadcast)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.Equal(t, 12, cfg.BcryptCost)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "store_backend: postgres\nhttp_port: \"9000\"\njwt_secret: from-file\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("JWT_SECRET", "")
	t.Setenv("HTTP_PORT", "9100")

	cfg := Load(path)
	require.Equal(t, "postgres", cfg.StoreBackend)
	require.Equal(t, "from-file", cfg.JWTSecret)
	require.Equal(t, "9100", cfg.HTTPPort)
	require.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg := Defaults()
	cfg.JWTSecret = "x"
	cfg.StoreBackend = "cassandra"
	cfg.BrokerBackend = "kafka"
	err := cfg.Validate()
	require.ErrorContains(t, err, "STORE_BACKEND")
	require.ErrorContains(t, err, "BROKER_BACKEND")
}

func TestValidateRejectsNonPositiveLockout(t *testing.T) {
	cfg := Defaults()
	cfg.JWTSecret = "x"
	require.NoError(t, cfg.Validate())

	cfg.LockoutMaxAttempts = 0
	cfg.LockoutDuration = -time.Minute
	err := cfg.Validate()
	require.ErrorContains(t, err, "LOCKOUT_MAX_ATTEMPTS")
	require.ErrorContains(t, err, "LOCKOUT_DURATION")
}
