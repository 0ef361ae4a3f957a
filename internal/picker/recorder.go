package picker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-delivery/internal/antirepeat"
	"github.com/gokatarajesh/quiz-delivery/internal/observability"
)

// ServeStore applies a serve event to anti-repeat state.
type ServeStore interface {
	RecordServe(ctx context.Context, ev antirepeat.ServeEvent) error
}

// UsageMarker bumps usage_count and last_served_at in the content store.
type UsageMarker interface {
	MarkServed(ctx context.Context, ids []string, at time.Time) error
}

// AsyncRecorder drains serve events on a background goroutine so picks never wait on writes.
type AsyncRecorder struct {
	store     ServeStore
	marker    UsageMarker
	queue     chan antirepeat.ServeEvent
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
	doneC     chan struct{}
}

func NewAsyncRecorder(store ServeStore, marker UsageMarker, size int, timeout time.Duration, logger zerolog.Logger) *AsyncRecorder {
	if size <= 0 {
		size = 1024
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &AsyncRecorder{
		store:     store,
		marker:    marker,
		queue:     make(chan antirepeat.ServeEvent, size),
		logger:    logger.With().Str("component", "serve_recorder").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
		doneC:     make(chan struct{}),
	}
}

// Record enqueues ev, dropping it when the queue is full.
func (r *AsyncRecorder) Record(ev antirepeat.ServeEvent) {
	select {
	case r.queue <- ev:
	default:
		observability.ServeEventsDropped.Inc()
		r.logger.Warn().Str("user_id", ev.UserID).Int("questions", len(ev.Questions)).Msg("serve recorder queue full; event dropped")
	}
}

// Run processes events until Stop. Events still queued at Stop are applied before returning.
func (r *AsyncRecorder) Run() {
	defer close(r.doneC)
	for {
		select {
		case <-r.shutdownC:
			r.drain()
			r.logger.Info().Msg("serve recorder stopping")
			return
		case ev := <-r.queue:
			r.handle(ev)
		}
	}
}

// Stop signals Run to finish and waits for it.
func (r *AsyncRecorder) Stop() {
	close(r.shutdownC)
	<-r.doneC
}

func (r *AsyncRecorder) drain() {
	for {
		select {
		case ev := <-r.queue:
			r.handle(ev)
		default:
			return
		}
	}
}

func (r *AsyncRecorder) handle(ev antirepeat.ServeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.RecordServe(ctx, ev); err != nil {
		observability.ServeRecordErrors.Inc()
		r.logger.Warn().Err(err).Str("user_id", ev.UserID).Msg("serve event partially recorded")
	}

	if r.marker == nil || len(ev.Questions) == 0 {
		return
	}
	ids := make([]string, len(ev.Questions))
	for i, q := range ev.Questions {
		ids[i] = q.ID
	}
	if err := r.marker.MarkServed(ctx, ids, ev.At); err != nil {
		r.logger.Warn().Err(err).Int("questions", len(ids)).Msg("usage update failed")
	}
}
