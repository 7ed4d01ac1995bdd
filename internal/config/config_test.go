package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Ledger.DecayAdvancesAnchor)
	assert.True(t, cfg.App.IsDevelopment())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_TYPE", "postgres")
	t.Setenv("STORE_HOST", "db")
	t.Setenv("STORE_PASS", "s3cr@t")
	t.Setenv("LEDGER_DECAY_ADVANCES_ANCHOR", "true")
	t.Setenv("LEDGER_DECAY_SCHEDULE", "@daily")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://postgres:s3cr%40t@db:5432/stellarpets?sslmode=disable", cfg.Store.PostgresDSN())
	assert.Equal(t, "@daily", cfg.Ledger.DecaySchedule)
}

func TestStoreDefaultsPerBackend(t *testing.T) {
	t.Setenv("STORE_TYPE", "mysql")
	t.Setenv("STORE_HOST", "mysql")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "root:@tcp(mysql:3306)/stellarpets?parseTime=true", cfg.Store.MySQLDSN())
	assert.Equal(t, "postgres://postgres:@mysql:5432/stellarpets?sslmode=disable", cfg.Store.PostgresDSN())

	t.Setenv("STORE_PORT", "3307")
	t.Setenv("STORE_USER", "pets")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "pets:@tcp(mysql:3307)/stellarpets?parseTime=true", cfg.Store.MySQLDSN())
}

func TestLoadRejectsSweepWithoutAnchor(t *testing.T) {
	t.Setenv("LEDGER_DECAY_SCHEDULE", "@daily")

	_, err := Load()
	assert.Error(t, err)
}

func TestAddresses(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 9000}
	c := CacheConfig{RedisHost: "redis", RedisPort: 6380}
	st := StoreConfig{User: "root", Password: "pw", Host: "mysql", Port: 3306, Name: "pets"}

	assert.Equal(t, "127.0.0.1:9000", s.Address())
	assert.Equal(t, "redis:6380", c.RedisAddress())
	assert.Equal(t, "root:pw@tcp(mysql:3306)/pets?parseTime=true", st.MySQLDSN())
}

func TestLoadListValues(t *testing.T) {
	t.Setenv("ADMIN_API_KEYS", "k1,k2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pets.example,https://admin.pets.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1", "k2"}, cfg.Auth.AdminKeys)
	assert.Equal(t, []string{"https://pets.example", "https://admin.pets.example"}, cfg.CORS.AllowedOrigins)
}
