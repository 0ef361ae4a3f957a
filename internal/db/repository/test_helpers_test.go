package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/quiz-delivery/internal/db/sqlc"
)

func uuidFromByte(b byte) pgtype.UUID {
	var arr [16]byte
	arr[15] = b
	return pgtype.UUID{Bytes: arr, Valid: true}
}

func sampleRow(b byte, bucket string) sqlcgen.Question {
	return sqlcgen.Question{
		QuestionID:    uuidFromByte(b),
		Prompt:        "What is the capital of France?",
		Choices:       []string{"Paris", "Rome", "Madrid", "Berlin"},
		CorrectIndex:  0,
		CategoryID:    "geography",
		Difficulty:    "easy",
		Status:        "approved",
		Active:        true,
		UsageCount:    3,
		Sha1Canonical: pgtype.Text{String: "abc", Valid: true},
		Simhash64:     pgtype.Text{String: "c3c3c8194dfb7752", Valid: true},
		LshBucket:     pgtype.Text{String: bucket, Valid: true},
		Source:        "manual",
		CreatedAt:     pgtype.Timestamptz{Time: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Valid: true},
	}
}
