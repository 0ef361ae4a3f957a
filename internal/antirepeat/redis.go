package antirepeat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const allCategories = "_all"

// RedisBackend stores anti-repeat state in Redis and relies on key TTLs for eviction.
type RedisBackend struct {
	redis  *redis.Client
	prefix string
}

// NewRedisBackend constructs a backend; an empty prefix defaults to "ar".
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "ar"
	}
	return &RedisBackend{redis: client, prefix: prefix}
}

func (b *RedisBackend) PushRecent(ctx context.Context, key RecentKey, entry RecentEntry, keep int, idle time.Duration) error {
	k := b.recentKey(key)
	pipe := b.redis.TxPipeline()
	pipe.LPush(ctx, k, encodeEntry(entry.QuestionID, entry.At))
	if keep > 0 {
		pipe.LTrim(ctx, k, 0, int64(keep-1))
	}
	if idle > 0 {
		pipe.Expire(ctx, k, idle)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push recent %s: %w", k, err)
	}
	return nil
}

func (b *RedisBackend) ListRecent(ctx context.Context, key RecentKey) ([]RecentEntry, error) {
	raw, err := b.redis.LRange(ctx, b.recentKey(key), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]RecentEntry, 0, len(raw))
	for _, item := range raw {
		id, at, ok := decodeEntry(item)
		if !ok {
			continue
		}
		entries = append(entries, RecentEntry{QuestionID: id, At: at})
	}
	return entries, nil
}

func (b *RedisBackend) AddSession(ctx context.Context, key SessionKey, questionID string, ttl time.Duration) error {
	k := b.sessionKey(key)
	pipe := b.redis.TxPipeline()
	pipe.SAdd(ctx, k, questionID)
	pipe.Expire(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add session %s: %w", k, err)
	}
	return nil
}

func (b *RedisBackend) SessionHas(ctx context.Context, key SessionKey, questionID string) (bool, error) {
	return b.redis.SIsMember(ctx, b.sessionKey(key), questionID).Result()
}

func (b *RedisBackend) SetLockIfAbsent(ctx context.Context, key LockKey, ttl time.Duration) (bool, error) {
	return b.redis.SetNX(ctx, b.lockKey(key), "1", ttl).Result()
}

func (b *RedisBackend) IncrBucket(ctx context.Context, key BucketKey, expiresAt time.Time) (int64, error) {
	k := b.bucketDayKey(key.Day)
	pipe := b.redis.TxPipeline()
	incr := pipe.ZIncrBy(ctx, k, 1, key.Bucket)
	pipe.ExpireAt(ctx, k, expiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment bucket %s: %w", key.Bucket, err)
	}
	return int64(incr.Val()), nil
}

func (b *RedisBackend) BucketCounts(ctx context.Context, day DayEpoch, buckets []string) (map[string]int64, error) {
	out := make(map[string]int64, len(buckets))
	if len(buckets) == 0 {
		return out, nil
	}
	scores, err := b.redis.ZMScore(ctx, b.bucketDayKey(day), buckets...).Result()
	if err != nil {
		return nil, err
	}
	for i, bucket := range buckets {
		if i < len(scores) {
			out[bucket] = int64(scores[i])
		}
	}
	return out, nil
}

func (b *RedisBackend) TopBuckets(ctx context.Context, day DayEpoch, limit int) ([]BucketCount, error) {
	results, err := b.redis.ZRevRangeWithScores(ctx, b.bucketDayKey(day), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	top := make([]BucketCount, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		top = append(top, BucketCount{Bucket: member, Count: int64(z.Score)})
	}
	return top, nil
}

func (b *RedisBackend) AppendServeLog(ctx context.Context, userID string, entry ServeLogEntry, ttl time.Duration) error {
	k := b.serveLogKey(userID)
	ms := entry.At.UnixMilli()
	cutoff := entry.At.Add(-ttl).UnixMilli()

	pipe := b.redis.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(ms), Member: encodeEntry(entry.QuestionID, entry.At)})
	pipe.ZRemRangeByScore(ctx, k, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.Expire(ctx, k, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append serve log %s: %w", k, err)
	}
	return nil
}

func (b *RedisBackend) ServeLogsSince(ctx context.Context, since time.Time) (map[string][]ServeLogEntry, error) {
	pattern := b.prefix + ":servelog:*"
	min := strconv.FormatInt(since.UnixMilli(), 10)
	out := make(map[string][]ServeLogEntry)

	iter := b.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		members, err := b.redis.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: min, Max: "+inf"}).Result()
		if err != nil {
			return nil, fmt.Errorf("read serve log %s: %w", key, err)
		}
		userID := strings.TrimPrefix(key, b.prefix+":servelog:")
		for _, m := range members {
			id, at, ok := decodeEntry(m)
			if !ok {
				continue
			}
			out[userID] = append(out[userID], ServeLogEntry{QuestionID: id, At: at})
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan serve logs: %w", err)
	}
	return out, nil
}

func (b *RedisBackend) recentKey(key RecentKey) string {
	category := key.CategoryID
	if category == "" {
		category = allCategories
	}
	return fmt.Sprintf("%s:recent:%s:%s", b.prefix, key.UserID, category)
}

func (b *RedisBackend) sessionKey(key SessionKey) string {
	return fmt.Sprintf("%s:session:%s:%s", b.prefix, key.UserID, key.SessionID)
}

func (b *RedisBackend) lockKey(key LockKey) string {
	return fmt.Sprintf("%s:lock:%s:%s", b.prefix, key.UserID, key.QuestionID)
}

func (b *RedisBackend) bucketDayKey(day DayEpoch) string {
	return fmt.Sprintf("%s:bucket:%d", b.prefix, int64(day))
}

func (b *RedisBackend) serveLogKey(userID string) string {
	return fmt.Sprintf("%s:servelog:%s", b.prefix, userID)
}

// encodeEntry renders "<unix-ms>:<question-id>".
func encodeEntry(questionID string, at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + ":" + questionID
}

func decodeEntry(raw string) (string, time.Time, bool) {
	msRaw, id, ok := strings.Cut(raw, ":")
	if !ok || id == "" {
		return "", time.Time{}, false
	}
	ms, err := strconv.ParseInt(msRaw, 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return id, time.UnixMilli(ms).UTC(), true
}
