package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "app.yml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.NoError(t, err)

	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "data/budgetd.db", cfg.DatabasePath)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	assert.NotEqual(t, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
apiPort: 9090
env: production
databaseType: postgres
databaseHost: db.internal
databasePort: "5432"
databaseName: budgetd
databaseUser: budgetd
databasePassword: secret
jwtAccessSecret: prod-access
jwtRefreshSecret: prod-refresh
requireVerification: true
`)

	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "db.internal", cfg.DatabaseHost)
	assert.True(t, cfg.RequireVerification)
	assert.False(t, cfg.IsDevelopment())
}

func TestProductionRequiresSecrets(t *testing.T) {
	path := writeConfig(t, `
env: production
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSecretsMustDiffer(t *testing.T) {
	path := writeConfig(t, `
jwtAccessSecret: same-secret
jwtRefreshSecret: same-secret
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
