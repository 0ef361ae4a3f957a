// Package antirepeat holds the short-lived state that keeps players from seeing the same
// question twice: recency rings, session sets, serve locks, daily bucket counters and serve logs.
//
// Every entity expires on its own (TTL or capacity eviction); nothing is deleted by business logic.
// Store carries the policy (limits, TTLs, hot threshold) and delegates storage to a Backend.
package antirepeat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultRecentKeep       = 400
	DefaultSessionTTL       = time.Hour
	DefaultLockTTL          = 5 * time.Second
	DefaultServeLogTTL      = 35 * 24 * time.Hour
	DefaultHotThreshold     = 75
	DefaultBucketRetainDays = 2

	defaultTopBuckets = 20
	maxTopBuckets     = 100
)

// DayEpoch counts whole UTC days since the Unix epoch.
type DayEpoch int64

// DayOf returns the UTC day containing t.
func DayOf(t time.Time) DayEpoch {
	return DayEpoch(t.UTC().Unix() / 86400)
}

// Start returns midnight UTC of the day.
func (d DayEpoch) Start() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// RecentKey addresses a recency ring.
type RecentKey struct {
	UserID     string
	CategoryID string
}

// SessionKey addresses a session set.
type SessionKey struct {
	UserID    string
	SessionID string
}

// LockKey addresses a serve lock.
type LockKey struct {
	UserID     string
	QuestionID string
}

// BucketKey addresses one day's serve counter for an LSH bucket.
type BucketKey struct {
	Bucket string
	Day    DayEpoch
}

// RecentEntry is one element of a recency ring.
type RecentEntry struct {
	QuestionID string    `json:"question_id"`
	At         time.Time `json:"at"`
}

// ServeLogEntry is one element of a user's serve log.
type ServeLogEntry struct {
	QuestionID string    `json:"question_id"`
	At         time.Time `json:"at"`
}

// ServedQuestion identifies a delivered question and its bucket.
type ServedQuestion struct {
	ID     string
	Bucket string
}

// ServeEvent describes one admitted batch.
type ServeEvent struct {
	UserID     string
	CategoryID string
	SessionID  string
	Questions  []ServedQuestion
	At         time.Time
}

// RepeatRate summarizes how often a user was re-served questions.
type RepeatRate struct {
	UserID     string  `json:"user_id"`
	Total      int     `json:"total"`
	Unique     int     `json:"unique"`
	RepeatRate float64 `json:"repeat_rate"`
}

// BucketCount is a bucket with today's serve count.
type BucketCount struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// Backend is the storage primitive set. Implementations must make SetLockIfAbsent atomic.
type Backend interface {
	PushRecent(ctx context.Context, key RecentKey, entry RecentEntry, keep int, idle time.Duration) error
	ListRecent(ctx context.Context, key RecentKey) ([]RecentEntry, error)
	AddSession(ctx context.Context, key SessionKey, questionID string, ttl time.Duration) error
	SessionHas(ctx context.Context, key SessionKey, questionID string) (bool, error)
	SetLockIfAbsent(ctx context.Context, key LockKey, ttl time.Duration) (bool, error)
	IncrBucket(ctx context.Context, key BucketKey, expiresAt time.Time) (int64, error)
	BucketCounts(ctx context.Context, day DayEpoch, buckets []string) (map[string]int64, error)
	TopBuckets(ctx context.Context, day DayEpoch, limit int) ([]BucketCount, error)
	AppendServeLog(ctx context.Context, userID string, entry ServeLogEntry, ttl time.Duration) error
	ServeLogsSince(ctx context.Context, since time.Time) (map[string][]ServeLogEntry, error)
}

// Options configures Store limits. Zero values fall back to defaults.
type Options struct {
	RecentKeep       int
	SessionTTL       time.Duration
	LockTTL          time.Duration
	ServeLogTTL      time.Duration
	HotThreshold     int64
	BucketRetainDays int
	Clock            func() time.Time
}

// Store applies anti-repeat policy on top of a Backend.
type Store struct {
	backend      Backend
	recentKeep   int
	sessionTTL   time.Duration
	lockTTL      time.Duration
	serveLogTTL  time.Duration
	hotThreshold int64
	retainDays   int
	now          func() time.Time
	logger       zerolog.Logger
}

// NewStore builds a Store over backend.
func NewStore(backend Backend, opts Options, logger zerolog.Logger) *Store {
	s := &Store{
		backend:      backend,
		recentKeep:   opts.RecentKeep,
		sessionTTL:   opts.SessionTTL,
		lockTTL:      opts.LockTTL,
		serveLogTTL:  opts.ServeLogTTL,
		hotThreshold: opts.HotThreshold,
		retainDays:   opts.BucketRetainDays,
		now:          opts.Clock,
		logger:       logger.With().Str("component", "antirepeat").Logger(),
	}
	if s.recentKeep <= 0 {
		s.recentKeep = DefaultRecentKeep
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = DefaultSessionTTL
	}
	if s.lockTTL <= 0 {
		s.lockTTL = DefaultLockTTL
	}
	if s.serveLogTTL <= 0 {
		s.serveLogTTL = DefaultServeLogTTL
	}
	if s.hotThreshold <= 0 {
		s.hotThreshold = DefaultHotThreshold
	}
	if s.retainDays <= 0 {
		s.retainDays = DefaultBucketRetainDays
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Recent returns the newest-first recency ring for (user, category).
func (s *Store) Recent(ctx context.Context, userID, categoryID string) ([]RecentEntry, error) {
	entries, err := s.backend.ListRecent(ctx, RecentKey{UserID: userID, CategoryID: categoryID})
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	return entries, nil
}

// RecentIDs returns the distinct question ids in the recency ring.
func (s *Store) RecentIDs(ctx context.Context, userID, categoryID string) ([]string, error) {
	entries, err := s.Recent(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.QuestionID]; ok {
			continue
		}
		seen[e.QuestionID] = struct{}{}
		ids = append(ids, e.QuestionID)
	}
	return ids, nil
}

// AddRecent pushes a question onto the ring, evicting the oldest entries beyond the cap.
func (s *Store) AddRecent(ctx context.Context, userID, categoryID, questionID string, at time.Time) error {
	entry := RecentEntry{QuestionID: questionID, At: at}
	key := RecentKey{UserID: userID, CategoryID: categoryID}
	if err := s.backend.PushRecent(ctx, key, entry, s.recentKeep, s.serveLogTTL); err != nil {
		return fmt.Errorf("push recent: %w", err)
	}
	return nil
}

// AddToSession records a question in the session set and resets its expiry.
// An empty sessionID is a no-op.
func (s *Store) AddToSession(ctx context.Context, userID, sessionID, questionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.backend.AddSession(ctx, SessionKey{UserID: userID, SessionID: sessionID}, questionID, s.sessionTTL); err != nil {
		return fmt.Errorf("add session: %w", err)
	}
	return nil
}

// InSession reports whether the question was already served in this session.
func (s *Store) InSession(ctx context.Context, userID, sessionID, questionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	ok, err := s.backend.SessionHas(ctx, SessionKey{UserID: userID, SessionID: sessionID}, questionID)
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return ok, nil
}

// AcquireServeLock takes a lease on (user, question). It returns false while another lease is live.
// Leases are never released; they expire after the lock TTL.
func (s *Store) AcquireServeLock(ctx context.Context, userID, questionID string) (bool, error) {
	ok, err := s.backend.SetLockIfAbsent(ctx, LockKey{UserID: userID, QuestionID: questionID}, s.lockTTL)
	if err != nil {
		return false, fmt.Errorf("acquire serve lock: %w", err)
	}
	return ok, nil
}

// IncrementBucket bumps the day counter for bucket and returns the new count.
func (s *Store) IncrementBucket(ctx context.Context, bucket string, at time.Time) (int64, error) {
	day := DayOf(at)
	n, err := s.backend.IncrBucket(ctx, BucketKey{Bucket: bucket, Day: day}, s.bucketExpiry(day))
	if err != nil {
		return 0, fmt.Errorf("increment bucket: %w", err)
	}
	return n, nil
}

// BucketCount returns the bucket's counter for the day containing at.
func (s *Store) BucketCount(ctx context.Context, bucket string, at time.Time) (int64, error) {
	counts, err := s.backend.BucketCounts(ctx, DayOf(at), []string{bucket})
	if err != nil {
		return 0, fmt.Errorf("bucket counts: %w", err)
	}
	return counts[bucket], nil
}

// HotBuckets resolves, in one round trip, which buckets reached the hot threshold today.
func (s *Store) HotBuckets(ctx context.Context, buckets []string) (map[string]bool, error) {
	hot := make(map[string]bool, len(buckets))
	if len(buckets) == 0 {
		return hot, nil
	}
	counts, err := s.backend.BucketCounts(ctx, DayOf(s.now()), buckets)
	if err != nil {
		return nil, fmt.Errorf("bucket counts: %w", err)
	}
	for _, b := range buckets {
		hot[b] = counts[b] >= s.hotThreshold
	}
	return hot, nil
}

// AppendServeLog appends to the user's analytics log.
func (s *Store) AppendServeLog(ctx context.Context, userID, questionID string, at time.Time) error {
	if err := s.backend.AppendServeLog(ctx, userID, ServeLogEntry{QuestionID: questionID, At: at}, s.serveLogTTL); err != nil {
		return fmt.Errorf("append serve log: %w", err)
	}
	return nil
}

// RecordServe fans a serve event out to every namespace. All writes are attempted;
// failures are joined so the caller can log them. It is not transactional.
func (s *Store) RecordServe(ctx context.Context, ev ServeEvent) error {
	at := ev.At
	if at.IsZero() {
		at = s.now()
	}

	var errs []error
	for _, q := range ev.Questions {
		if err := s.AddRecent(ctx, ev.UserID, ev.CategoryID, q.ID, at); err != nil {
			errs = append(errs, err)
		}
		if err := s.AddToSession(ctx, ev.UserID, ev.SessionID, q.ID); err != nil {
			errs = append(errs, err)
		}
		if q.Bucket != "" {
			if _, err := s.IncrementBucket(ctx, q.Bucket, at); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.AppendServeLog(ctx, ev.UserID, q.ID, at); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RepeatWindowDays clamps a requested window to [1, serve log retention in days].
func (s *Store) RepeatWindowDays(days int) int {
	maxDays := int(s.serveLogTTL / (24 * time.Hour))
	if maxDays < 1 {
		maxDays = 1
	}
	if days < 1 {
		return 1
	}
	if days > maxDays {
		return maxDays
	}
	return days
}

// RepeatRates reports per-user repeat ratios over the trailing window of days.
// days is clamped to [1, serve log retention].
func (s *Store) RepeatRates(ctx context.Context, days int) ([]RepeatRate, error) {
	days = s.RepeatWindowDays(days)

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	logs, err := s.backend.ServeLogsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("serve logs: %w", err)
	}

	rates := make([]RepeatRate, 0, len(logs))
	for userID, entries := range logs {
		if len(entries) == 0 {
			continue
		}
		unique := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			unique[e.QuestionID] = struct{}{}
		}
		total := len(entries)
		rates = append(rates, RepeatRate{
			UserID:     userID,
			Total:      total,
			Unique:     len(unique),
			RepeatRate: float64(total-len(unique)) / float64(total),
		})
	}
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].RepeatRate != rates[j].RepeatRate {
			return rates[i].RepeatRate > rates[j].RepeatRate
		}
		return rates[i].UserID < rates[j].UserID
	})
	return rates, nil
}

// TopBuckets returns today's most-served buckets, highest first.
func (s *Store) TopBuckets(ctx context.Context, limit int) ([]BucketCount, error) {
	if limit <= 0 {
		limit = defaultTopBuckets
	}
	if limit > maxTopBuckets {
		limit = maxTopBuckets
	}
	top, err := s.backend.TopBuckets(ctx, DayOf(s.now()), limit)
	if err != nil {
		return nil, fmt.Errorf("top buckets: %w", err)
	}
	return top, nil
}

// bucketExpiry keeps a day counter through the following retainDays days.
func (s *Store) bucketExpiry(day DayEpoch) time.Time {
	return (day + DayEpoch(s.retainDays) + 1).Start()
}
