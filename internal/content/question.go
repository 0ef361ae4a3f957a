// Package content holds the question entity shared by the content store, the ingestion gate
// and the picker.
package content

import "time"

// Difficulty constants for readability.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Moderation states. Only approved questions are served.
const (
	StatusApproved      = "approved"
	StatusPendingReview = "pending_review"
	StatusRejected      = "rejected"
)

// ChoiceCount is the fixed number of answer choices per question.
const ChoiceCount = 4

// Question is a stored trivia question together with its fingerprints and serve stats.
type Question struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Choices       []string   `json:"choices"`
	CorrectIndex  int        `json:"correct_index"`
	CategoryID    string     `json:"category_id"`
	Difficulty    string     `json:"difficulty"`
	Status        string     `json:"status"`
	Active        bool       `json:"active"`
	UsageCount    int64      `json:"usage_count"`
	LastServedAt  *time.Time `json:"last_served_at,omitempty"`
	SHA1Canonical string     `json:"sha1_canonical"`
	SimHash64     string     `json:"simhash64"`
	LSHBucket     string     `json:"lsh_bucket"`
	Source        string     `json:"source"`
	DuplicateOf   string     `json:"duplicate_of,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CandidateFilter narrows random sampling to servable questions.
// Empty CategoryID or Difficulty means "any".
type CandidateFilter struct {
	CategoryID string
	Difficulty string
	ExcludeIDs []string
}

// ValidDifficulty reports whether d is one of the known difficulty levels.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}
