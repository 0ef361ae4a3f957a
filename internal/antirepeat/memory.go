package antirepeat

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memRing struct {
	entries   []RecentEntry // newest first
	expiresAt time.Time
}

type memSession struct {
	members   map[string]struct{}
	expiresAt time.Time
}

type memBucketDay struct {
	counts    map[string]int64
	expiresAt time.Time
}

// MemoryBackend keeps anti-repeat state in process. Expiry is checked on read;
// Sweep reclaims expired entries and should be driven by a Sweeper.
type MemoryBackend struct {
	mu       sync.Mutex
	now      func() time.Time
	recent   map[RecentKey]*memRing
	sessions map[SessionKey]*memSession
	locks    map[LockKey]time.Time
	buckets  map[DayEpoch]*memBucketDay
	logs     map[string][]ServeLogEntry
	logTTL   time.Duration
}

// NewMemoryBackend creates an empty backend. A nil clock uses time.Now.
func NewMemoryBackend(clock func() time.Time) *MemoryBackend {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryBackend{
		now:      clock,
		recent:   make(map[RecentKey]*memRing),
		sessions: make(map[SessionKey]*memSession),
		locks:    make(map[LockKey]time.Time),
		buckets:  make(map[DayEpoch]*memBucketDay),
		logs:     make(map[string][]ServeLogEntry),
	}
}

func (m *MemoryBackend) PushRecent(_ context.Context, key RecentKey, entry RecentEntry, keep int, idle time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ring, ok := m.recent[key]
	if !ok || !now.Before(ring.expiresAt) {
		ring = &memRing{}
		m.recent[key] = ring
	}
	ring.entries = append([]RecentEntry{entry}, ring.entries...)
	if keep > 0 && len(ring.entries) > keep {
		ring.entries = ring.entries[:keep]
	}
	ring.expiresAt = now.Add(idle)
	return nil
}

func (m *MemoryBackend) ListRecent(_ context.Context, key RecentKey) ([]RecentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ring, ok := m.recent[key]
	if !ok || !m.now().Before(ring.expiresAt) {
		return nil, nil
	}
	out := make([]RecentEntry, len(ring.entries))
	copy(out, ring.entries)
	return out, nil
}

func (m *MemoryBackend) AddSession(_ context.Context, key SessionKey, questionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s, ok := m.sessions[key]
	if !ok || !now.Before(s.expiresAt) {
		s = &memSession{members: make(map[string]struct{})}
		m.sessions[key] = s
	}
	s.members[questionID] = struct{}{}
	s.expiresAt = now.Add(ttl)
	return nil
}

func (m *MemoryBackend) SessionHas(_ context.Context, key SessionKey, questionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok || !m.now().Before(s.expiresAt) {
		return false, nil
	}
	_, has := s.members[questionID]
	return has, nil
}

func (m *MemoryBackend) SetLockIfAbsent(_ context.Context, key LockKey, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.locks[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.locks[key] = now.Add(ttl)
	return true, nil
}

func (m *MemoryBackend) IncrBucket(_ context.Context, key BucketKey, expiresAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day, ok := m.buckets[key.Day]
	if !ok {
		day = &memBucketDay{counts: make(map[string]int64)}
		m.buckets[key.Day] = day
	}
	day.expiresAt = expiresAt
	day.counts[key.Bucket]++
	return day.counts[key.Bucket], nil
}

func (m *MemoryBackend) BucketCounts(_ context.Context, day DayEpoch, buckets []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64, len(buckets))
	d := m.liveDay(day)
	for _, b := range buckets {
		if d != nil {
			out[b] = d.counts[b]
		} else {
			out[b] = 0
		}
	}
	return out, nil
}

func (m *MemoryBackend) TopBuckets(_ context.Context, day DayEpoch, limit int) ([]BucketCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.liveDay(day)
	if d == nil {
		return []BucketCount{}, nil
	}
	top := make([]BucketCount, 0, len(d.counts))
	for b, n := range d.counts {
		top = append(top, BucketCount{Bucket: b, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Bucket > top[j].Bucket
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (m *MemoryBackend) AppendServeLog(_ context.Context, userID string, entry ServeLogEntry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs[userID] = append(m.logs[userID], entry)
	if ttl > m.logTTL {
		m.logTTL = ttl
	}
	return nil
}

func (m *MemoryBackend) ServeLogsSince(_ context.Context, since time.Time) (map[string][]ServeLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]ServeLogEntry)
	for user, entries := range m.logs {
		for _, e := range entries {
			if e.At.Before(since) {
				continue
			}
			out[user] = append(out[user], e)
		}
	}
	return out, nil
}

// Sweep drops every expired entry and returns how many keys were removed.
func (m *MemoryBackend) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for k, r := range m.recent {
		if !now.Before(r.expiresAt) {
			delete(m.recent, k)
			removed++
		}
	}
	for k, s := range m.sessions {
		if !now.Before(s.expiresAt) {
			delete(m.sessions, k)
			removed++
		}
	}
	for k, exp := range m.locks {
		if !now.Before(exp) {
			delete(m.locks, k)
			removed++
		}
	}
	for k, d := range m.buckets {
		if !now.Before(d.expiresAt) {
			delete(m.buckets, k)
			removed++
		}
	}
	if m.logTTL > 0 {
		cutoff := now.Add(-m.logTTL)
		for user, entries := range m.logs {
			kept := entries[:0]
			for _, e := range entries {
				if !e.At.Before(cutoff) {
					kept = append(kept, e)
				}
			}
			if len(kept) == 0 {
				delete(m.logs, user)
				removed++
				continue
			}
			m.logs[user] = kept
		}
	}
	return removed
}

func (m *MemoryBackend) liveDay(day DayEpoch) *memBucketDay {
	d, ok := m.buckets[day]
	if !ok || !m.now().Before(d.expiresAt) {
		return nil
	}
	return d
}
