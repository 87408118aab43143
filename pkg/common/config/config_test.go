package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/common/test/assert"
)

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"server":{"address":":9000"},"redis":{"addr":"cache:6379"},"media":{"root":"/srv/media"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_CONFIG", path)
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("MEDIA_BASE_URL", "https://cdn.example.com/media/")
	t.Setenv("AVATAR_SIZE", "256")
	t.Setenv("JWT_ALGORITHM", " hs512 ")
	t.Setenv("CORS_TRUSTED_DOMAINS", ".example.com,.example.org")

	cfg := Load()

	assert.DeepEqual(t, ":9000", cfg.Server.Address)
	assert.DeepEqual(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.DeepEqual(t, "/srv/media", cfg.Media.Root)
	assert.DeepEqual(t, "https://cdn.example.com/media", cfg.Media.BaseURL)
	assert.DeepEqual(t, 256, cfg.Media.AvatarSize)
	assert.DeepEqual(t, "HS512", cfg.Middleware.JWT.SigningMethod)
	assert.DeepEqual(t, []string{".example.com", ".example.org"}, cfg.Middleware.CORS.TrustedDomains)
	assert.DeepEqual(t, 2*time.Hour, cfg.SessionLifetime())
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("APP_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("JWT_ALGORITHM", "RS256")
	t.Setenv("AVATAR_SIZE", "-3")
	t.Setenv("SESSION_TTL", "forever")

	cfg := Load()

	assert.DeepEqual(t, "HS256", cfg.Middleware.JWT.SigningMethod)
	assert.DeepEqual(t, 400, cfg.Media.AvatarSize)
	assert.DeepEqual(t, 7*24*time.Hour, cfg.Redis.SessionTTL)
}

func TestDefaultIsACopy(t *testing.T) {
	a := Default()
	a.Server.Address = ":1"
	a.Redis.SessionTTL = 0

	b := Default()
	assert.DeepEqual(t, ":8080", b.Server.Address)
	assert.DeepEqual(t, b.Middleware.JWT.ExpireDuration, a.SessionLifetime())
	assert.Assert(t, !b.IsProd())
}
