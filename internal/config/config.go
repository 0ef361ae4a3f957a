package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quiz-delivery"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres   Postgres
	Redis      Redis
	Security   Security
	Dedup      Dedup
	AntiRepeat AntiRepeat
	Picker     Picker
	Import     Import
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the libpq keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Redis holds anti-repeat state configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	Prefix   string `env:"REDIS_KEY_PREFIX" envDefault:"ar"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	AccessTTL time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
}

// Dedup tunes the ingestion duplicate gate.
type Dedup struct {
	HammingNear   int `env:"SIMHASH_HAMMING_NEAR" envDefault:"3"`
	LSHPrefixBits int `env:"LSH_PREFIX_BITS" envDefault:"12"`
	CandidateCap  int `env:"DEDUP_CANDIDATE_CAP" envDefault:"200"`
}

// AntiRepeat governs per-user serving state.
type AntiRepeat struct {
	Backend            string        `env:"ANTIREPEAT_BACKEND" envDefault:"redis"`
	RecentKeep         int           `env:"RECENT_KEEP" envDefault:"400"`
	SessionTTLSeconds  int           `env:"SESSION_TTL_SECONDS" envDefault:"3600"`
	LockTTLSeconds     int           `env:"SERVE_LOCK_TTL_SECONDS" envDefault:"5"`
	ServeLogTTLDays    int           `env:"SERVE_LOG_TTL" envDefault:"35"`
	HotBucketThreshold int           `env:"HOT_BUCKET_THRESHOLD" envDefault:"75"`
	SweepInterval      time.Duration `env:"ANTIREPEAT_SWEEP_INTERVAL" envDefault:"1m"`
}

// SessionTTL returns the sliding session window.
func (a AntiRepeat) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLSeconds) * time.Second
}

// LockTTL returns the serve lock lease.
func (a AntiRepeat) LockTTL() time.Duration {
	return time.Duration(a.LockTTLSeconds) * time.Second
}

// ServeLogTTL returns the serve log retention.
func (a AntiRepeat) ServeLogTTL() time.Duration {
	return time.Duration(a.ServeLogTTLDays) * 24 * time.Hour
}

// Picker groups selection knobs and feature flags.
type Picker struct {
	CandidateMultiplier int           `env:"CANDIDATE_MULTIPLIER" envDefault:"8"`
	HotBucketPenalty    float64       `env:"HOT_BUCKET_PENALTY" envDefault:"-0.2"`
	HotPenaltyEnabled   bool          `env:"FEATURE_HOT_BUCKET_PENALTY" envDefault:"true"`
	BloomHint           bool          `env:"FEATURE_BLOOM_HINT" envDefault:"false"`
	Timeout             time.Duration `env:"PICK_TIMEOUT" envDefault:"2s"`
	RecorderQueue       int           `env:"SERVE_RECORDER_QUEUE" envDefault:"1024"`
}

// Import configures the external question providers.
type Import struct {
	OpenTDBBaseURL   string        `env:"OPENTDB_BASE_URL" envDefault:"https://opentdb.com"`
	TriviaAPIBaseURL string        `env:"TRIVIA_API_BASE_URL" envDefault:"https://the-trivia-api.com/v2"`
	TriviaAPIKey     string        `env:"TRIVIA_API_KEY" envDefault:""`
	HTTPTimeout      time.Duration `env:"IMPORT_HTTP_TIMEOUT" envDefault:"10s"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.clamp()
	return cfg, nil
}

// LoadPostgres parses only the database settings, for tools that need nothing else.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Postgres{}, fmt.Errorf("parse postgres config: %w", err)
	}
	return pg, nil
}

// Tool is the subset of settings the offline content tools read.
type Tool struct {
	Name     string `env:"APP_NAME" envDefault:"quiz-delivery"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	Postgres Postgres
	Dedup    Dedup
	Import   Import
}

// LoadTool parses the settings for cmd/importer and cmd/backfill. No JWT secret is needed.
func LoadTool() (*Tool, error) {
	cfg := &Tool{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse tool config: %w", err)
	}
	cfg.Dedup.clamp()
	return cfg, nil
}

func (d *Dedup) clamp() {
	d.HammingNear = clampInt(d.HammingNear, 1, 16)
	d.LSHPrefixBits = clampInt(d.LSHPrefixBits, 4, 32)
	d.CandidateCap = clampInt(d.CandidateCap, 10, 1000)
}

// clamp pulls tunables back into their supported ranges.
func (c *App) clamp() {
	c.Dedup.clamp()

	c.AntiRepeat.RecentKeep = clampInt(c.AntiRepeat.RecentKeep, 50, 2000)
	c.AntiRepeat.SessionTTLSeconds = clampInt(c.AntiRepeat.SessionTTLSeconds, 60, 21600)
	c.AntiRepeat.LockTTLSeconds = clampInt(c.AntiRepeat.LockTTLSeconds, 1, 60)
	c.AntiRepeat.ServeLogTTLDays = clampInt(c.AntiRepeat.ServeLogTTLDays, 1, 90)
	c.AntiRepeat.HotBucketThreshold = clampInt(c.AntiRepeat.HotBucketThreshold, 10, 1000)
	if c.AntiRepeat.Backend != "memory" {
		c.AntiRepeat.Backend = "redis"
	}

	c.Picker.CandidateMultiplier = clampInt(c.Picker.CandidateMultiplier, 2, 20)
	if c.Picker.HotBucketPenalty > 0 {
		c.Picker.HotBucketPenalty = -c.Picker.HotBucketPenalty
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
