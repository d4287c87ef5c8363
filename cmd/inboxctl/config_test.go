package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mbeoliero/inbox/pkg/constant"
	"github.com/mbeoliero/inbox/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) {
	t.Cleanup(func() { flagServer, flagToken, flagUser = "", "", "" })
}

func TestLoadConfig_Layers(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
server = "http://file:8080"
user_id = "alice"
token = "from-file"
window = 20
`), 0o600))

	t.Setenv("INBOX_TOKEN", "from-env")
	flagServer = "http://flag:9090"

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://flag:9090", cfg.Server)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "alice", cfg.UserId)
	assert.Equal(t, 20, cfg.Window)
	assert.Equal(t, constant.PlatformIdCLI, cfg.PlatformId)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	resetFlags(t)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Server)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	resetFlags(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, saveConfig(path, &Config{Server: "http://s", UserId: "bob", Token: "tok", PlatformId: 6}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.UserId)
	assert.Equal(t, "tok", cfg.Token)
}

func TestResolveToken(t *testing.T) {
	_, err := resolveToken(&Config{Token: "x"})
	assert.Error(t, err)

	_, err = resolveToken(&Config{UserId: "alice"})
	assert.Error(t, err)

	minted, err := resolveToken(&Config{UserId: "alice", JWTSecret: "s", PlatformId: constant.PlatformIdCLI})
	require.NoError(t, err)
	claims, err := jwt.ParseToken(minted, "s")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserId)

	// a token issued to someone else is refused when the secret is known
	_, err = resolveToken(&Config{UserId: "bob", JWTSecret: "s", Token: minted, PlatformId: constant.PlatformIdCLI})
	assert.Error(t, err)

	got, err := resolveToken(&Config{UserId: "alice", JWTSecret: "s", Token: minted, PlatformId: constant.PlatformIdCLI})
	require.NoError(t, err)
	assert.Equal(t, minted, got)
}
