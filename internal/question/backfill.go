package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-delivery/internal/content"
	"github.com/gokatarajesh/quiz-delivery/internal/db/repository"
	"github.com/gokatarajesh/quiz-delivery/internal/fingerprint"
	"github.com/gokatarajesh/quiz-delivery/internal/textnorm"
)

const defaultBackfillPage = 500

type backfillStore interface {
	ListUnfingerprinted(ctx context.Context, afterID string, limit int) ([]content.Question, error)
	UpdateFingerprints(ctx context.Context, id string, fp fingerprint.Fingerprints) error
	FindByExactHash(ctx context.Context, sha1Canonical string) (*content.Question, error)
	MarkRejected(ctx context.Context, id, duplicateOf string) error
}

// RejectedRow is a row the backfill deactivated.
type RejectedRow struct {
	ID          string `json:"id"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
	Reason      string `json:"reason"`
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	Scanned  int           `json:"scanned"`
	Updated  int           `json:"updated"`
	Rejected []RejectedRow `json:"rejected"`
}

// Backfiller computes fingerprints for rows stored before fingerprinting existed.
type Backfiller struct {
	store     backfillStore
	generator *fingerprint.Generator
	pageSize  int
	logger    zerolog.Logger
}

func NewBackfiller(store backfillStore, generator *fingerprint.Generator, pageSize int, logger zerolog.Logger) *Backfiller {
	if pageSize <= 0 {
		pageSize = defaultBackfillPage
	}
	return &Backfiller{
		store:     store,
		generator: generator,
		pageSize:  pageSize,
		logger:    logger.With().Str("component", "fingerprint_backfill").Logger(),
	}
}

// Run walks unfingerprinted rows in id order until none remain.
func (b *Backfiller) Run(ctx context.Context) (BackfillReport, error) {
	report := BackfillReport{Rejected: []RejectedRow{}}
	after := ""

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		page, err := b.store.ListUnfingerprinted(ctx, after, b.pageSize)
		if err != nil {
			return report, err
		}
		if len(page) == 0 {
			break
		}

		for _, q := range page {
			report.Scanned++
			if err := b.fill(ctx, q, &report); err != nil {
				return report, err
			}
		}

		after = page[len(page)-1].ID
		b.logger.Debug().Str("cursor", after).Int("scanned", report.Scanned).Msg("backfill page done")
		if len(page) < b.pageSize {
			break
		}
	}

	b.logger.Info().
		Int("scanned", report.Scanned).
		Int("updated", report.Updated).
		Int("rejected", len(report.Rejected)).
		Msg("fingerprint backfill finished")
	return report, nil
}

func (b *Backfiller) fill(ctx context.Context, q content.Question, report *BackfillReport) error {
	if textnorm.Normalize(q.Text) == "" {
		if err := b.store.MarkRejected(ctx, q.ID, ""); err != nil {
			return err
		}
		report.Rejected = append(report.Rejected, RejectedRow{ID: q.ID, Reason: "empty_text"})
		return nil
	}

	fp := b.generator.Compute(q.Text)
	err := b.store.UpdateFingerprints(ctx, q.ID, fp)
	if err == nil {
		report.Updated++
		return nil
	}
	if !errors.Is(err, repository.ErrDuplicateHash) {
		return err
	}

	existing, err := b.store.FindByExactHash(ctx, fp.SHA1Canonical)
	if err != nil {
		return fmt.Errorf("resolve duplicate of %s: %w", q.ID, err)
	}
	dup := ""
	if existing != nil {
		dup = existing.ID
	}
	if err := b.store.MarkRejected(ctx, q.ID, dup); err != nil {
		return err
	}
	b.logger.Info().Str("question_id", q.ID).Str("duplicate_of", dup).Msg("exact duplicate rejected")
	report.Rejected = append(report.Rejected, RejectedRow{ID: q.ID, DuplicateOf: dup, Reason: "duplicate_exact"})
	return nil
}
