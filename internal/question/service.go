// Package question ingests questions into the content store through the duplicate gate,
// from editors over HTTP, from external providers, and via fingerprint backfill.
package question

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-delivery/internal/content"
	"github.com/gokatarajesh/quiz-delivery/internal/db/repository"
	"github.com/gokatarajesh/quiz-delivery/internal/dedup"
	"github.com/gokatarajesh/quiz-delivery/internal/observability"
)

// Evaluator classifies text against the stored corpus.
type Evaluator interface {
	Evaluate(ctx context.Context, text string) (dedup.Decision, error)
}

// Writer persists accepted questions.
type Writer interface {
	Insert(ctx context.Context, p repository.InsertParams) (content.Question, error)
	FindByExactHash(ctx context.Context, sha1Canonical string) (*content.Question, error)
}

// Service runs drafts through validation and the duplicate gate, then stores accepted ones.
type Service struct {
	evaluator Evaluator
	writer    Writer
	logger    zerolog.Logger
}

func NewService(evaluator Evaluator, writer Writer, logger zerolog.Logger) *Service {
	return &Service{
		evaluator: evaluator,
		writer:    writer,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

// Evaluate runs the duplicate gate without persisting anything.
func (s *Service) Evaluate(ctx context.Context, text string) (dedup.Decision, error) {
	return s.evaluator.Evaluate(ctx, text)
}

// Ingest validates and gates d. Allowed drafts are stored approved, near-duplicates are stored
// pending review, rejected drafts are not stored. A returned error means the store was unavailable
// and nothing was accepted.
func (s *Service) Ingest(ctx context.Context, d Draft) (Outcome, error) {
	source := d.Source
	if source == "" {
		source = SourceManual
	}

	if err := d.Validate(); err != nil {
		observability.IngestOutcomes.WithLabelValues(source, CodeInvalidQuestion).Inc()
		return Outcome{Decision: dedup.Decision{
			Action:     dedup.ActionReject,
			StatusCode: http.StatusBadRequest,
			Code:       CodeInvalidQuestion,
			Message:    err.Error(),
		}}, nil
	}

	decision, err := s.evaluator.Evaluate(ctx, d.Text)
	if err != nil {
		return Outcome{}, err
	}
	if !decision.Accepted() {
		observability.IngestOutcomes.WithLabelValues(source, decision.Code).Inc()
		return Outcome{Decision: decision}, nil
	}

	status := content.StatusApproved
	if decision.Action == dedup.ActionReview {
		status = content.StatusPendingReview
	}

	choices := make([]string, len(d.Choices))
	for i, c := range d.Choices {
		choices[i] = strings.TrimSpace(c)
	}

	stored, err := s.writer.Insert(ctx, repository.InsertParams{
		Text:         strings.TrimSpace(d.Text),
		Choices:      choices,
		CorrectIndex: d.CorrectIndex,
		CategoryID:   d.CategoryID,
		Difficulty:   d.Difficulty,
		Status:       status,
		Source:       source,
		Fingerprints: decision.Fingerprints,
		DuplicateOf:  decision.DuplicateID,
	})
	if errors.Is(err, repository.ErrDuplicateHash) {
		// An identical draft was stored between evaluation and insert.
		outcome := Outcome{Decision: dedup.Decision{
			Action:       dedup.ActionReject,
			StatusCode:   http.StatusConflict,
			Code:         dedup.CodeDuplicateExact,
			Message:      "an identical question already exists",
			Fingerprints: decision.Fingerprints,
		}}
		if existing, lookupErr := s.writer.FindByExactHash(ctx, decision.Fingerprints.SHA1Canonical); lookupErr == nil && existing != nil {
			outcome.DuplicateID = existing.ID
		}
		observability.IngestOutcomes.WithLabelValues(source, outcome.Code).Inc()
		return outcome, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", dedup.ErrStoreUnavailable, err)
	}

	s.logger.Info().
		Str("question_id", stored.ID).
		Str("status", status).
		Str("source", source).
		Str("bucket", stored.LSHBucket).
		Msg("question ingested")
	observability.IngestOutcomes.WithLabelValues(source, decision.Code).Inc()

	return Outcome{Decision: decision, Question: &stored}, nil
}
