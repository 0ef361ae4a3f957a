package question

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gokatarajesh/quiz-delivery/internal/content"
	"github.com/gokatarajesh/quiz-delivery/internal/dedup"
)

// Sources recorded on ingested questions.
const (
	SourceManual    = "manual"
	SourceOpenTDB   = "opentdb"
	SourceTriviaAPI = "triviaapi"
)

// CodeInvalidQuestion is returned for drafts that fail structural validation.
const CodeInvalidQuestion = "INVALID_QUESTION"

var ErrInvalidQuestion = errors.New("invalid question")

// Draft is a question submitted for ingestion.
type Draft struct {
	Text         string   `json:"text"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	CategoryID   string   `json:"category"`
	Difficulty   string   `json:"difficulty"`
	Source       string   `json:"-"`
}

// Validate checks the structural rules; text content is judged by the duplicate gate.
func (d Draft) Validate() error {
	if len(d.Choices) != content.ChoiceCount {
		return fmt.Errorf("%w: expected %d choices, got %d", ErrInvalidQuestion, content.ChoiceCount, len(d.Choices))
	}
	seen := make(map[string]struct{}, len(d.Choices))
	for i, c := range d.Choices {
		c = strings.TrimSpace(c)
		if c == "" {
			return fmt.Errorf("%w: choice %d is empty", ErrInvalidQuestion, i)
		}
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: choice %q repeated", ErrInvalidQuestion, c)
		}
		seen[key] = struct{}{}
	}
	if d.CorrectIndex < 0 || d.CorrectIndex >= content.ChoiceCount {
		return fmt.Errorf("%w: correct_index %d out of range", ErrInvalidQuestion, d.CorrectIndex)
	}
	if !content.ValidDifficulty(d.Difficulty) {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidQuestion, d.Difficulty)
	}
	return nil
}

// Outcome is the result of ingesting a draft: the gate's decision plus the stored row, if any.
type Outcome struct {
	dedup.Decision
	Question *content.Question `json:"question,omitempty"`
}

// Stored reports whether the draft was persisted.
func (o Outcome) Stored() bool {
	return o.Question != nil
}
