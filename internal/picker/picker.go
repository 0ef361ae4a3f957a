// Package picker selects a diverse, non-repeating batch of questions for a player.
//
// Serving favours availability: anti-repeat storage failures are logged and treated as
// "not recent / not locked", and a failed candidate sample yields an empty batch.
package picker

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-delivery/internal/antirepeat"
	"github.com/gokatarajesh/quiz-delivery/internal/content"
	"github.com/gokatarajesh/quiz-delivery/internal/observability"
)

const (
	DefaultCount               = 10
	MaxCount                   = 50
	DefaultCandidateMultiplier = 8
	DefaultHotPenalty          = -0.2
	DefaultTimeout             = 2 * time.Second
)

// Source samples servable questions from the content store.
type Source interface {
	SampleCandidates(ctx context.Context, filter content.CandidateFilter, limit int) ([]content.Question, error)
}

// AntiRepeat is the read/lease side of the anti-repeat store used while selecting.
type AntiRepeat interface {
	RecentIDs(ctx context.Context, userID, categoryID string) ([]string, error)
	HotBuckets(ctx context.Context, buckets []string) (map[string]bool, error)
	InSession(ctx context.Context, userID, sessionID, questionID string) (bool, error)
	AcquireServeLock(ctx context.Context, userID, questionID string) (bool, error)
}

// Recorder accepts serve events. Record must not block the caller.
type Recorder interface {
	Record(ev antirepeat.ServeEvent)
}

// Request describes one pick call.
type Request struct {
	UserID     string
	CategoryID string
	Difficulty string
	Count      int
	SessionID  string
}

// Options tunes scoring and sampling. Zero values fall back to defaults.
type Options struct {
	CandidateMultiplier int
	HotPenalty          float64
	HotPenaltyEnabled   bool
	Timeout             time.Duration
	Clock               func() time.Time
}

// Picker implements the sampling, scoring, diversity and admission pipeline.
type Picker struct {
	source     Source
	repeat     AntiRepeat
	recorder   Recorder
	multiplier int
	penalty    float64
	penaltyOn  bool
	timeout    time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

func New(source Source, repeat AntiRepeat, recorder Recorder, opts Options, logger zerolog.Logger) *Picker {
	p := &Picker{
		source:     source,
		repeat:     repeat,
		recorder:   recorder,
		multiplier: opts.CandidateMultiplier,
		penalty:    opts.HotPenalty,
		penaltyOn:  opts.HotPenaltyEnabled,
		timeout:    opts.Timeout,
		now:        opts.Clock,
		logger:     logger.With().Str("component", "picker").Logger(),
	}
	if p.multiplier <= 0 {
		p.multiplier = DefaultCandidateMultiplier
	}
	if p.penalty == 0 {
		p.penalty = DefaultHotPenalty
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// ClampCount maps a requested count into [1, MaxCount]; non-positive means DefaultCount.
func ClampCount(n int) int {
	switch {
	case n <= 0:
		return DefaultCount
	case n > MaxCount:
		return MaxCount
	default:
		return n
	}
}

// Pick returns at most req.Count admitted questions. It never pads and never returns an error;
// an empty slice means nothing is currently available.
func (p *Picker) Pick(ctx context.Context, req Request) []content.Question {
	started := time.Now()
	defer func() { observability.PickDuration.Observe(time.Since(started).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	count := ClampCount(req.Count)
	log := p.logger.With().Str("user_id", req.UserID).Str("category_id", req.CategoryID).Logger()

	recent, err := p.repeat.RecentIDs(ctx, req.UserID, req.CategoryID)
	if err != nil {
		log.Warn().Err(err).Msg("recency lookup failed; serving without exclusions")
		observability.AntiRepeatFailOpen.WithLabelValues("recent").Inc()
		recent = nil
	}

	candidates, err := p.source.SampleCandidates(ctx, content.CandidateFilter{
		CategoryID: req.CategoryID,
		Difficulty: req.Difficulty,
		ExcludeIDs: recent,
	}, count*p.multiplier)
	if err != nil {
		log.Error().Err(err).Msg("candidate sampling failed")
		observability.PickRequests.WithLabelValues("source_error").Inc()
		observability.PickReturned.Observe(0)
		return []content.Question{}
	}
	candidates = eligible(candidates, recent)

	hot := p.hotBuckets(ctx, log, candidates)

	now := p.now()
	ordered := make([]scored, len(candidates))
	for i, q := range candidates {
		isHot := p.penaltyOn && q.LSHBucket != "" && hot[q.LSHBucket]
		ordered[i] = scored{question: q, score: Score(q, now, isHot, p.penalty)}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].score > ordered[j].score })

	primary, fallback := partition(ordered, count)

	chosen := make(map[string]struct{}, count)
	admitted := make([]content.Question, 0, count)
	admitted = p.admit(ctx, log, req, primary, chosen, admitted, count)
	admitted = p.admit(ctx, log, req, fallback, chosen, admitted, count)

	if len(admitted) > 0 && p.recorder != nil {
		served := make([]antirepeat.ServedQuestion, len(admitted))
		for i, q := range admitted {
			served[i] = antirepeat.ServedQuestion{ID: q.ID, Bucket: q.LSHBucket}
		}
		p.recorder.Record(antirepeat.ServeEvent{
			UserID:     req.UserID,
			CategoryID: req.CategoryID,
			SessionID:  req.SessionID,
			Questions:  served,
			At:         now,
		})
	}

	outcome := "ok"
	switch {
	case len(admitted) == 0:
		outcome = "empty"
	case len(admitted) < count:
		outcome = "short"
	}
	observability.PickRequests.WithLabelValues(outcome).Inc()
	observability.PickReturned.Observe(float64(len(admitted)))

	log.Debug().
		Int("requested", count).
		Int("candidates", len(candidates)).
		Int("returned", len(admitted)).
		Msg("pick completed")

	return admitted
}

func (p *Picker) hotBuckets(ctx context.Context, log zerolog.Logger, candidates []content.Question) map[string]bool {
	if !p.penaltyOn {
		return nil
	}
	seen := make(map[string]struct{})
	buckets := make([]string, 0, len(candidates))
	for _, q := range candidates {
		if q.LSHBucket == "" {
			continue
		}
		if _, ok := seen[q.LSHBucket]; ok {
			continue
		}
		seen[q.LSHBucket] = struct{}{}
		buckets = append(buckets, q.LSHBucket)
	}
	hot, err := p.repeat.HotBuckets(ctx, buckets)
	if err != nil {
		log.Warn().Err(err).Msg("hot bucket lookup failed; scoring without penalty")
		observability.AntiRepeatFailOpen.WithLabelValues("hot_bucket").Inc()
		return nil
	}
	return hot
}

func (p *Picker) admit(ctx context.Context, log zerolog.Logger, req Request, list []content.Question, chosen map[string]struct{}, admitted []content.Question, count int) []content.Question {
	for _, q := range list {
		if len(admitted) >= count {
			break
		}
		if _, ok := chosen[q.ID]; ok {
			continue
		}

		inSession, err := p.repeat.InSession(ctx, req.UserID, req.SessionID, q.ID)
		if err != nil {
			log.Warn().Err(err).Str("question_id", q.ID).Msg("session check failed; admitting")
			observability.AntiRepeatFailOpen.WithLabelValues("session").Inc()
			inSession = false
		}
		if inSession {
			continue
		}

		locked, err := p.repeat.AcquireServeLock(ctx, req.UserID, q.ID)
		if err != nil {
			log.Warn().Err(err).Str("question_id", q.ID).Msg("serve lock failed; admitting")
			observability.AntiRepeatFailOpen.WithLabelValues("lock").Inc()
			locked = true
		}
		if !locked {
			observability.ServeLockContention.Inc()
			continue
		}

		chosen[q.ID] = struct{}{}
		admitted = append(admitted, q)
	}
	return admitted
}

// eligible drops repeated ids and anything in the recency list the store failed to exclude.
func eligible(candidates []content.Question, recent []string) []content.Question {
	skip := make(map[string]struct{}, len(recent)+len(candidates))
	for _, id := range recent {
		skip[id] = struct{}{}
	}
	out := make([]content.Question, 0, len(candidates))
	for _, q := range candidates {
		if _, ok := skip[q.ID]; ok {
			continue
		}
		skip[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
