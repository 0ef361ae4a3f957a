package question

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-delivery/internal/content"
	"github.com/gokatarajesh/quiz-delivery/internal/db/repository"
	"github.com/gokatarajesh/quiz-delivery/internal/fingerprint"
)

// legacyTable holds rows without fingerprints, ordered by id.
type legacyTable struct {
	rows     []content.Question
	pages    []string
	rejected map[string]string
}

func (l *legacyTable) ListUnfingerprinted(_ context.Context, afterID string, limit int) ([]content.Question, error) {
	l.pages = append(l.pages, afterID)
	var out []content.Question
	for _, q := range l.rows {
		if q.ID <= afterID || q.SHA1Canonical != "" || q.Status == content.StatusRejected {
			continue
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (l *legacyTable) UpdateFingerprints(_ context.Context, id string, fp fingerprint.Fingerprints) error {
	for _, q := range l.rows {
		if q.ID != id && q.SHA1Canonical == fp.SHA1Canonical {
			return fmt.Errorf("update fingerprints: %w", repository.ErrDuplicateHash)
		}
	}
	for i := range l.rows {
		if l.rows[i].ID == id {
			l.rows[i].SHA1Canonical = fp.SHA1Canonical
			l.rows[i].SimHash64 = fp.SimHash64
			l.rows[i].LSHBucket = fp.LSHBucket
		}
	}
	return nil
}

func (l *legacyTable) FindByExactHash(_ context.Context, hash string) (*content.Question, error) {
	for i := range l.rows {
		if l.rows[i].SHA1Canonical == hash {
			q := l.rows[i]
			return &q, nil
		}
	}
	return nil, nil
}

func (l *legacyTable) MarkRejected(_ context.Context, id, duplicateOf string) error {
	if l.rejected == nil {
		l.rejected = map[string]string{}
	}
	l.rejected[id] = duplicateOf
	for i := range l.rows {
		if l.rows[i].ID == id {
			l.rows[i].Status = content.StatusRejected
		}
	}
	return nil
}

func TestBackfillFingerprintsAndRejectsCollisions(t *testing.T) {
	table := &legacyTable{rows: []content.Question{
		{ID: "01", Text: "What is the capital of France?", Status: content.StatusApproved},
		{ID: "02", Text: "Who wrote Hamlet?", Status: content.StatusApproved},
		{ID: "03", Text: "  What is the CAPITAL of France?  ", Status: content.StatusApproved},
		{ID: "04", Text: "<br/>", Status: content.StatusApproved},
		{ID: "05", Text: "How many legs does a spider have?", Status: content.StatusApproved},
	}}

	report, err := NewBackfiller(table, fingerprint.NewGenerator(12), 2, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, 3, report.Updated)
	assert.Equal(t, []RejectedRow{
		{ID: "03", DuplicateOf: "01", Reason: "duplicate_exact"},
		{ID: "04", Reason: "empty_text"},
	}, report.Rejected)
	assert.Equal(t, map[string]string{"03": "01", "04": ""}, table.rejected)

	// Three pages of two, the last one short.
	assert.Equal(t, []string{"", "02", "04"}, table.pages)

	want := fingerprint.NewGenerator(12).Compute("Who wrote Hamlet?")
	assert.Equal(t, want.SHA1Canonical, table.rows[1].SHA1Canonical)
	assert.Equal(t, want.LSHBucket, table.rows[1].LSHBucket)
}

func TestBackfillRerunIsNoop(t *testing.T) {
	table := &legacyTable{rows: []content.Question{
		{ID: "01", Text: "Who wrote Hamlet?", Status: content.StatusApproved},
	}}
	b := NewBackfiller(table, fingerprint.NewGenerator(12), 0, zerolog.Nop())

	_, err := b.Run(context.Background())
	require.NoError(t, err)

	report, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
	assert.Empty(t, report.Rejected)
}
