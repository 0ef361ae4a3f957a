package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/quiz-delivery/internal/content"
	sqlcgen "github.com/gokatarajesh/quiz-delivery/internal/db/sqlc"
	"github.com/gokatarajesh/quiz-delivery/internal/fingerprint"
)

// ErrDuplicateHash is returned when a write collides with an existing sha1_canonical.
var ErrDuplicateHash = errors.New("question with identical canonical hash exists")

const uniqueViolation = "23505"

type questionStore interface {
	GetQuestionByHash(ctx context.Context, sha1Canonical pgtype.Text) (sqlcgen.Question, error)
	ListQuestionsByBucket(ctx context.Context, arg sqlcgen.ListQuestionsByBucketParams) ([]sqlcgen.Question, error)
	SampleQuestions(ctx context.Context, arg sqlcgen.SampleQuestionsParams) ([]sqlcgen.Question, error)
	InsertQuestion(ctx context.Context, arg sqlcgen.InsertQuestionParams) (sqlcgen.Question, error)
	MarkQuestionsServed(ctx context.Context, arg sqlcgen.MarkQuestionsServedParams) error
	ListUnfingerprintedQuestions(ctx context.Context, arg sqlcgen.ListUnfingerprintedQuestionsParams) ([]sqlcgen.Question, error)
	UpdateQuestionFingerprints(ctx context.Context, arg sqlcgen.UpdateQuestionFingerprintsParams) error
	RejectQuestion(ctx context.Context, arg sqlcgen.RejectQuestionParams) error
}

// QuestionRepository wraps sqlc queries for the question content store.
type QuestionRepository struct {
	store questionStore
}

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// InsertParams describes a question about to be persisted.
type InsertParams struct {
	Text         string
	Choices      []string
	CorrectIndex int
	CategoryID   string
	Difficulty   string
	Status       string
	Source       string
	Fingerprints fingerprint.Fingerprints
	DuplicateOf  string
}

// FindByExactHash returns the question with the given canonical hash, or nil when absent.
func (r *QuestionRepository) FindByExactHash(ctx context.Context, sha1Canonical string) (*content.Question, error) {
	row, err := r.store.GetQuestionByHash(ctx, text(sha1Canonical))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question by hash: %w", err)
	}
	q := toQuestion(row)
	return &q, nil
}

// FindByBucketPrefix lists up to limit non-rejected questions in the bucket, newest first.
func (r *QuestionRepository) FindByBucketPrefix(ctx context.Context, bucket string, limit int) ([]content.Question, error) {
	rows, err := r.store.ListQuestionsByBucket(ctx, sqlcgen.ListQuestionsByBucketParams{
		LshBucket: text(bucket),
		Limit:     int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list questions by bucket: %w", err)
	}
	return toQuestions(rows), nil
}

// SampleCandidates returns a random sample of servable questions matching filter.
func (r *QuestionRepository) SampleCandidates(ctx context.Context, filter content.CandidateFilter, limit int) ([]content.Question, error) {
	rows, err := r.store.SampleQuestions(ctx, sqlcgen.SampleQuestionsParams{
		CategoryID:  optionalText(filter.CategoryID),
		Difficulty:  optionalText(filter.Difficulty),
		Excluded:    uuidList(filter.ExcludeIDs),
		SampleLimit: int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	return toQuestions(rows), nil
}

// Insert persists a new question with a fresh id.
func (r *QuestionRepository) Insert(ctx context.Context, p InsertParams) (content.Question, error) {
	var dup pgtype.UUID
	if p.DuplicateOf != "" {
		dup = pgUUIDFromString(p.DuplicateOf)
	}
	source := p.Source
	if source == "" {
		source = "manual"
	}

	row, err := r.store.InsertQuestion(ctx, sqlcgen.InsertQuestionParams{
		QuestionID:    pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Prompt:        p.Text,
		Choices:       p.Choices,
		CorrectIndex:  int16(p.CorrectIndex),
		CategoryID:    p.CategoryID,
		Difficulty:    p.Difficulty,
		Status:        p.Status,
		Active:        p.Status != content.StatusRejected,
		Sha1Canonical: text(p.Fingerprints.SHA1Canonical),
		Simhash64:     text(p.Fingerprints.SimHash64),
		LshBucket:     text(p.Fingerprints.LSHBucket),
		Source:        source,
		DuplicateOf:   dup,
	})
	if err != nil {
		return content.Question{}, mapWriteError("insert question", err)
	}
	return toQuestion(row), nil
}

// MarkServed increments usage_count and stamps last_served_at for ids.
func (r *QuestionRepository) MarkServed(ctx context.Context, ids []string, at time.Time) error {
	list := uuidList(ids)
	if len(list) == 0 {
		return nil
	}
	err := r.store.MarkQuestionsServed(ctx, sqlcgen.MarkQuestionsServedParams{
		ServedAt:    pgtype.Timestamptz{Time: at.UTC(), Valid: true},
		QuestionIds: list,
	})
	if err != nil {
		return fmt.Errorf("mark questions served: %w", err)
	}
	return nil
}

// ListUnfingerprinted pages through questions without fingerprints in id order.
// An empty afterID starts from the beginning.
func (r *QuestionRepository) ListUnfingerprinted(ctx context.Context, afterID string, limit int) ([]content.Question, error) {
	after := pgtype.UUID{Valid: true}
	if afterID != "" {
		after = pgUUIDFromString(afterID)
		if !after.Valid {
			return nil, fmt.Errorf("list unfingerprinted: invalid cursor %q", afterID)
		}
	}
	rows, err := r.store.ListUnfingerprintedQuestions(ctx, sqlcgen.ListUnfingerprintedQuestionsParams{
		AfterID:  after,
		PageSize: int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list unfingerprinted: %w", err)
	}
	return toQuestions(rows), nil
}

// UpdateFingerprints stores computed fingerprints. A hash collision yields ErrDuplicateHash.
func (r *QuestionRepository) UpdateFingerprints(ctx context.Context, id string, fp fingerprint.Fingerprints) error {
	err := r.store.UpdateQuestionFingerprints(ctx, sqlcgen.UpdateQuestionFingerprintsParams{
		QuestionID:    pgUUIDFromString(id),
		Sha1Canonical: text(fp.SHA1Canonical),
		Simhash64:     text(fp.SimHash64),
		LshBucket:     text(fp.LSHBucket),
	})
	if err != nil {
		return mapWriteError("update fingerprints", err)
	}
	return nil
}

// MarkRejected deactivates a question, optionally recording the row it duplicates.
func (r *QuestionRepository) MarkRejected(ctx context.Context, id, duplicateOf string) error {
	var dup pgtype.UUID
	if duplicateOf != "" {
		dup = pgUUIDFromString(duplicateOf)
	}
	if err := r.store.RejectQuestion(ctx, sqlcgen.RejectQuestionParams{
		QuestionID:  pgUUIDFromString(id),
		DuplicateOf: dup,
	}); err != nil {
		return fmt.Errorf("reject question: %w", err)
	}
	return nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.TrimSpace(pgErr.Code) == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicateHash)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toQuestions(rows []sqlcgen.Question) []content.Question {
	out := make([]content.Question, len(rows))
	for i, row := range rows {
		out[i] = toQuestion(row)
	}
	return out
}

func toQuestion(row sqlcgen.Question) content.Question {
	q := content.Question{
		ID:            uuidString(row.QuestionID),
		Text:          row.Prompt,
		Choices:       row.Choices,
		CorrectIndex:  int(row.CorrectIndex),
		CategoryID:    row.CategoryID,
		Difficulty:    row.Difficulty,
		Status:        row.Status,
		Active:        row.Active,
		UsageCount:    row.UsageCount,
		SHA1Canonical: row.Sha1Canonical.String,
		SimHash64:     row.Simhash64.String,
		LSHBucket:     row.LshBucket.String,
		Source:        row.Source,
		DuplicateOf:   uuidString(row.DuplicateOf),
	}
	if row.LastServedAt.Valid {
		t := row.LastServedAt.Time
		q.LastServedAt = &t
	}
	if row.CreatedAt.Valid {
		q.CreatedAt = row.CreatedAt.Time
	}
	return q
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

// optionalText maps "" to SQL NULL, meaning "any".
func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return text(s)
}

func pgUUIDFromString(s string) pgtype.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

// uuidList parses ids, skipping malformed ones. The result is never nil: a NULL array
// would make "NOT (id = ANY($n))" filter every row.
func uuidList(ids []string) []pgtype.UUID {
	out := make([]pgtype.UUID, 0, len(ids))
	for _, s := range ids {
		if id := pgUUIDFromString(s); id.Valid {
			out = append(out, id)
		}
	}
	return out
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}
