package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaultsWhenUnset(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.KVBackend)
	assert.Equal(t, 30, cfg.Room.RetentionDays)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	t.Setenv("KV_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("ROOM_RETENTION_DAYS", "7")
	t.Setenv("MAINTENANCE_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.KVBackend)
	assert.Equal(t, "redis.internal:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 7, cfg.Room.RetentionDays)
	assert.True(t, cfg.Server.MaintenanceMode)
}

func TestValidate_RejectsRedisBackendWithoutAddr(t *testing.T) {
	cfg := &Config{Room: RoomConfig{RetentionDays: 30}, Storage: StorageConfig{KVBackend: "redis"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsMongoBackendWithoutURI(t *testing.T) {
	cfg := &Config{Room: RoomConfig{RetentionDays: 30}, Storage: StorageConfig{KVBackend: "mongo"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnrecognizedBackend(t *testing.T) {
	cfg := &Config{Room: RoomConfig{RetentionDays: 30}, Storage: StorageConfig{KVBackend: "sqlite"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveRetention(t *testing.T) {
	cfg := &Config{Room: RoomConfig{RetentionDays: 0}, Storage: StorageConfig{KVBackend: "memory"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsMemoryBackendWithPositiveRetention(t *testing.T) {
	cfg := &Config{Room: RoomConfig{RetentionDays: 30}, Storage: StorageConfig{KVBackend: "memory"}}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsProductionRedisWithoutSigningSecret(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Room:        RoomConfig{RetentionDays: 30},
		Storage:     StorageConfig{KVBackend: "redis", RedisAddr: "redis.internal:6379"},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsProductionRedisWithSigningSecret(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Room:        RoomConfig{RetentionDays: 30},
		Storage:     StorageConfig{KVBackend: "redis", RedisAddr: "redis.internal:6379"},
		Admin:       AdminConfig{TokenSigningSecret: "s3cr3t"},
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_AllowsProductionMemoryBackendWithoutSigningSecret(t *testing.T) {
	cfg := &Config{Environment: "production", Room: RoomConfig{RetentionDays: 30}, Storage: StorageConfig{KVBackend: "memory"}}
	assert.NoError(t, cfg.Validate(), "in-process memory backend has no cross-process reclaim surface to harden")
}
