package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PG_HOST", "localhost")
	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "quiz")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "quiz-delivery", cfg.Name)
	assert.Equal(t, 3, cfg.Dedup.HammingNear)
	assert.Equal(t, 12, cfg.Dedup.LSHPrefixBits)
	assert.Equal(t, 200, cfg.Dedup.CandidateCap)
	assert.Equal(t, "redis", cfg.AntiRepeat.Backend)
	assert.Equal(t, 400, cfg.AntiRepeat.RecentKeep)
	assert.Equal(t, time.Hour, cfg.AntiRepeat.SessionTTL())
	assert.Equal(t, 5*time.Second, cfg.AntiRepeat.LockTTL())
	assert.Equal(t, 35*24*time.Hour, cfg.AntiRepeat.ServeLogTTL())
	assert.Equal(t, 75, cfg.AntiRepeat.HotBucketThreshold)
	assert.Equal(t, 8, cfg.Picker.CandidateMultiplier)
	assert.InDelta(t, -0.2, cfg.Picker.HotBucketPenalty, 1e-9)
	assert.True(t, cfg.Picker.HotPenaltyEnabled)
	assert.False(t, cfg.Picker.BloomHint)
	assert.Equal(t, 2*time.Second, cfg.Picker.Timeout)
	assert.Equal(t, "host=localhost port=5432 user=quiz password=secret dbname=quiz sslmode=disable", cfg.Postgres.DSN())
}

func TestLoadClampsOutOfRange(t *testing.T) {
	setRequired(t)
	t.Setenv("SIMHASH_HAMMING_NEAR", "40")
	t.Setenv("LSH_PREFIX_BITS", "2")
	t.Setenv("DEDUP_CANDIDATE_CAP", "5000")
	t.Setenv("RECENT_KEEP", "10")
	t.Setenv("SESSION_TTL_SECONDS", "999999")
	t.Setenv("SERVE_LOCK_TTL_SECONDS", "0")
	t.Setenv("SERVE_LOG_TTL", "365")
	t.Setenv("HOT_BUCKET_THRESHOLD", "1")
	t.Setenv("CANDIDATE_MULTIPLIER", "100")
	t.Setenv("HOT_BUCKET_PENALTY", "0.5")
	t.Setenv("ANTIREPEAT_BACKEND", "etcd")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Dedup.HammingNear)
	assert.Equal(t, 4, cfg.Dedup.LSHPrefixBits)
	assert.Equal(t, 1000, cfg.Dedup.CandidateCap)
	assert.Equal(t, 50, cfg.AntiRepeat.RecentKeep)
	assert.Equal(t, 21600, cfg.AntiRepeat.SessionTTLSeconds)
	assert.Equal(t, 1, cfg.AntiRepeat.LockTTLSeconds)
	assert.Equal(t, 90, cfg.AntiRepeat.ServeLogTTLDays)
	assert.Equal(t, 10, cfg.AntiRepeat.HotBucketThreshold)
	assert.Equal(t, 20, cfg.Picker.CandidateMultiplier)
	assert.InDelta(t, -0.5, cfg.Picker.HotBucketPenalty, 1e-9)
	assert.Equal(t, "redis", cfg.AntiRepeat.Backend)
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoadPostgresIgnoresOtherGroups(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "quiz")

	pg, err := LoadPostgres()
	require.NoError(t, err)
	assert.Equal(t, "db", pg.Host)
	assert.Equal(t, 5432, pg.Port)
}

func TestLoadToolSkipsSecurity(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "quiz")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "quiz")
	t.Setenv("LSH_PREFIX_BITS", "64")

	cfg, err := LoadTool()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Dedup.LSHPrefixBits)
	assert.Equal(t, "https://opentdb.com", cfg.Import.OpenTDBBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Import.HTTPTimeout)
}
