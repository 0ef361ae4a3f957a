package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-delivery/internal/content"
	sqlcgen "github.com/gokatarajesh/quiz-delivery/internal/db/sqlc"
	"github.com/gokatarajesh/quiz-delivery/internal/fingerprint"
)

const firstID = "00000000-0000-0000-0000-000000000001"

type mockQuestionStore struct {
	mock.Mock
}

func (m *mockQuestionStore) GetQuestionByHash(ctx context.Context, sha1Canonical pgtype.Text) (sqlcgen.Question, error) {
	args := m.Called(ctx, sha1Canonical)
	return args.Get(0).(sqlcgen.Question), args.Error(1)
}

func (m *mockQuestionStore) ListQuestionsByBucket(ctx context.Context, arg sqlcgen.ListQuestionsByBucketParams) ([]sqlcgen.Question, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]sqlcgen.Question), args.Error(1)
}

func (m *mockQuestionStore) SampleQuestions(ctx context.Context, arg sqlcgen.SampleQuestionsParams) ([]sqlcgen.Question, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]sqlcgen.Question), args.Error(1)
}

func (m *mockQuestionStore) InsertQuestion(ctx context.Context, arg sqlcgen.InsertQuestionParams) (sqlcgen.Question, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(sqlcgen.Question), args.Error(1)
}

func (m *mockQuestionStore) MarkQuestionsServed(ctx context.Context, arg sqlcgen.MarkQuestionsServedParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockQuestionStore) ListUnfingerprintedQuestions(ctx context.Context, arg sqlcgen.ListUnfingerprintedQuestionsParams) ([]sqlcgen.Question, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]sqlcgen.Question), args.Error(1)
}

func (m *mockQuestionStore) UpdateQuestionFingerprints(ctx context.Context, arg sqlcgen.UpdateQuestionFingerprintsParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockQuestionStore) RejectQuestion(ctx context.Context, arg sqlcgen.RejectQuestionParams) error {
	return m.Called(ctx, arg).Error(0)
}

func TestQuestionRepository_FindByExactHash(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	store.On("GetQuestionByHash", mock.Anything, pgtype.Text{String: "abc", Valid: true}).Return(sampleRow(1, "c3c"), nil)
	store.On("GetQuestionByHash", mock.Anything, pgtype.Text{String: "missing", Valid: true}).Return(sqlcgen.Question{}, pgx.ErrNoRows)

	got, err := repo.FindByExactHash(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, firstID, got.ID)
	assert.Equal(t, "c3c", got.LSHBucket)
	assert.Equal(t, []string{"Paris", "Rome", "Madrid", "Berlin"}, got.Choices)
	assert.Nil(t, got.LastServedAt)
	assert.Empty(t, got.DuplicateOf)

	missing, err := repo.FindByExactHash(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
	store.AssertExpectations(t)
}

func TestQuestionRepository_FindByExactHashError(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)
	boom := errors.New("connection reset")

	store.On("GetQuestionByHash", mock.Anything, mock.Anything).Return(sqlcgen.Question{}, boom)

	_, err := repo.FindByExactHash(context.Background(), "abc")
	assert.ErrorIs(t, err, boom)
}

func TestQuestionRepository_FindByBucketPrefix(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	params := sqlcgen.ListQuestionsByBucketParams{LshBucket: pgtype.Text{String: "c3c", Valid: true}, Limit: 200}
	store.On("ListQuestionsByBucket", mock.Anything, params).Return([]sqlcgen.Question{sampleRow(1, "c3c"), sampleRow(2, "c3c")}, nil)

	got, err := repo.FindByBucketPrefix(context.Background(), "c3c", 200)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	store.AssertExpectations(t)
}

func TestQuestionRepository_SampleCandidates(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	params := sqlcgen.SampleQuestionsParams{
		CategoryID:  pgtype.Text{String: "geography", Valid: true},
		Difficulty:  pgtype.Text{},
		Excluded:    []pgtype.UUID{uuidFromByte(1)},
		SampleLimit: 80,
	}
	store.On("SampleQuestions", mock.Anything, params).Return([]sqlcgen.Question{sampleRow(2, "85b")}, nil)

	got, err := repo.SampleCandidates(context.Background(), content.CandidateFilter{
		CategoryID: "geography",
		ExcludeIDs: []string{firstID, "not-a-uuid"},
	}, 80)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "85b", got[0].LSHBucket)
	store.AssertExpectations(t)
}

func TestQuestionRepository_SampleCandidatesNeverSendsNullExclusions(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	store.On("SampleQuestions", mock.Anything, mock.MatchedBy(func(p sqlcgen.SampleQuestionsParams) bool {
		return p.Excluded != nil && len(p.Excluded) == 0 && !p.CategoryID.Valid && !p.Difficulty.Valid
	})).Return([]sqlcgen.Question{}, nil)

	_, err := repo.SampleCandidates(context.Background(), content.CandidateFilter{}, 10)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestQuestionRepository_InsertMapsUniqueViolation(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	store.On("InsertQuestion", mock.Anything, mock.Anything).
		Return(sqlcgen.Question{}, &pgconn.PgError{Code: "23505", ConstraintName: "questions_sha1_canonical_key"})

	_, err := repo.Insert(context.Background(), InsertParams{
		Text:       "What is the capital of France?",
		Choices:    []string{"Paris", "Rome", "Madrid", "Berlin"},
		Difficulty: "easy",
		Status:     content.StatusApproved,
	})
	assert.ErrorIs(t, err, ErrDuplicateHash)
}

func TestQuestionRepository_Insert(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)
	fp := fingerprint.NewGenerator(12).Compute("What is the capital of France?")

	store.On("InsertQuestion", mock.Anything, mock.MatchedBy(func(p sqlcgen.InsertQuestionParams) bool {
		return p.QuestionID.Valid &&
			p.Status == content.StatusPendingReview &&
			p.Active &&
			p.Source == "manual" &&
			p.Sha1Canonical.String == fp.SHA1Canonical &&
			p.LshBucket.String == fp.LSHBucket &&
			p.DuplicateOf == uuidFromByte(1)
	})).Return(sampleRow(2, fp.LSHBucket), nil)

	got, err := repo.Insert(context.Background(), InsertParams{
		Text:         "What is the capital of France?",
		Choices:      []string{"Paris", "Rome", "Madrid", "Berlin"},
		Difficulty:   "easy",
		Status:       content.StatusPendingReview,
		Fingerprints: fp,
		DuplicateOf:  firstID,
	})
	require.NoError(t, err)
	assert.Equal(t, fp.LSHBucket, got.LSHBucket)
	store.AssertExpectations(t)
}

func TestQuestionRepository_MarkServed(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store.On("MarkQuestionsServed", mock.Anything, sqlcgen.MarkQuestionsServedParams{
		ServedAt:    pgtype.Timestamptz{Time: at, Valid: true},
		QuestionIds: []pgtype.UUID{uuidFromByte(1)},
	}).Return(nil)

	require.NoError(t, repo.MarkServed(context.Background(), []string{firstID}, at))
	require.NoError(t, repo.MarkServed(context.Background(), []string{"bogus"}, at))
	store.AssertNumberOfCalls(t, "MarkQuestionsServed", 1)
}

func TestQuestionRepository_ListUnfingerprinted(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	store.On("ListUnfingerprintedQuestions", mock.Anything, sqlcgen.ListUnfingerprintedQuestionsParams{
		AfterID:  pgtype.UUID{Valid: true},
		PageSize: 100,
	}).Return([]sqlcgen.Question{sampleRow(1, "")}, nil)
	store.On("ListUnfingerprintedQuestions", mock.Anything, sqlcgen.ListUnfingerprintedQuestionsParams{
		AfterID:  uuidFromByte(1),
		PageSize: 100,
	}).Return([]sqlcgen.Question{}, nil)

	page, err := repo.ListUnfingerprinted(context.Background(), "", 100)
	require.NoError(t, err)
	require.Len(t, page, 1)

	page, err = repo.ListUnfingerprinted(context.Background(), page[0].ID, 100)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = repo.ListUnfingerprinted(context.Background(), "bad-cursor", 100)
	assert.Error(t, err)
	store.AssertExpectations(t)
}

func TestQuestionRepository_UpdateFingerprintsCollision(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	store.On("UpdateQuestionFingerprints", mock.Anything, mock.Anything).Return(&pgconn.PgError{Code: "23505"})

	err := repo.UpdateFingerprints(context.Background(), firstID, fingerprint.Fingerprints{SHA1Canonical: "abc"})
	assert.ErrorIs(t, err, ErrDuplicateHash)
}

func TestQuestionRepository_MarkRejected(t *testing.T) {
	store := new(mockQuestionStore)
	repo := NewQuestionRepository(store)

	store.On("RejectQuestion", mock.Anything, sqlcgen.RejectQuestionParams{
		QuestionID:  uuidFromByte(2),
		DuplicateOf: uuidFromByte(1),
	}).Return(nil)

	require.NoError(t, repo.MarkRejected(context.Background(), "00000000-0000-0000-0000-000000000002", firstID))
	store.AssertExpectations(t)
}
