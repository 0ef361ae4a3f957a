package question

import (
	"context"
	"fmt"
	"html"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/quiz-delivery/internal/question/external"
)

// OpenTDBSource fetches from the Open Trivia Database.
type OpenTDBSource interface {
	Fetch(ctx context.Context, amount int, category, difficulty string) ([]external.OpenTDBQuestion, error)
}

// TriviaSource fetches from The Trivia API.
type TriviaSource interface {
	Fetch(ctx context.Context, amount int, category, difficulty string) ([]external.TriviaAPIQuestion, error)
}

// Ingester is the slice of Service the importer drives.
type Ingester interface {
	Ingest(ctx context.Context, d Draft) (Outcome, error)
}

// ImportRequest selects what to pull from each provider.
type ImportRequest struct {
	Amount          int
	Difficulty      string
	OpenTDBCategory string
	TriviaCategory  string
}

// ImportReport summarizes an import run.
type ImportReport struct {
	Fetched        map[string]int    `json:"fetched"`
	Skipped        int               `json:"skipped"`
	Codes          map[string]int    `json:"codes"`
	ProviderErrors map[string]string `json:"provider_errors,omitempty"`
}

// Importer seeds the corpus from OpenTDB and The Trivia API. A nil source is skipped.
type Importer struct {
	ingester Ingester
	opentdb  OpenTDBSource
	trivia   TriviaSource
	place    func(n int) int
	logger   zerolog.Logger
}

func NewImporter(ingester Ingester, opentdb OpenTDBSource, trivia TriviaSource, logger zerolog.Logger) *Importer {
	return &Importer{
		ingester: ingester,
		opentdb:  opentdb,
		trivia:   trivia,
		place:    rand.IntN,
		logger:   logger.With().Str("component", "question_importer").Logger(),
	}
}

// Run fetches from both providers concurrently and ingests every usable question.
// Provider failures are reported and skipped; a store failure aborts the run.
func (i *Importer) Run(ctx context.Context, req ImportRequest) (ImportReport, error) {
	report := ImportReport{
		Fetched:        map[string]int{},
		Codes:          map[string]int{},
		ProviderErrors: map[string]string{},
	}

	var (
		mu     sync.Mutex
		drafts []Draft
	)
	collect := func(source string, batch []Draft, skipped int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			i.logger.Warn().Err(err).Str("source", source).Msg("provider fetch failed")
			report.ProviderErrors[source] = err.Error()
			return
		}
		report.Fetched[source] = len(batch) + skipped
		report.Skipped += skipped
		drafts = append(drafts, batch...)
	}

	g, gctx := errgroup.WithContext(ctx)
	if i.opentdb != nil {
		g.Go(func() error {
			items, err := i.opentdb.Fetch(gctx, req.Amount, req.OpenTDBCategory, req.Difficulty)
			batch, skipped := i.fromOpenTDB(items)
			collect(SourceOpenTDB, batch, skipped, err)
			return ctx.Err()
		})
	}
	if i.trivia != nil {
		g.Go(func() error {
			items, err := i.trivia.Fetch(gctx, req.Amount, req.TriviaCategory, req.Difficulty)
			batch, skipped := i.fromTriviaAPI(items)
			collect(SourceTriviaAPI, batch, skipped, err)
			return ctx.Err()
		})
	}
	// Provider failures land in the report; only cancellation stops the run.
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("fetch providers: %w", err)
	}

	for _, d := range drafts {
		outcome, err := i.ingester.Ingest(ctx, d)
		if err != nil {
			return report, err
		}
		report.Codes[outcome.Code]++
	}

	i.logger.Info().
		Interface("fetched", report.Fetched).
		Interface("codes", report.Codes).
		Int("skipped", report.Skipped).
		Msg("import finished")
	return report, nil
}

func (i *Importer) fromOpenTDB(items []external.OpenTDBQuestion) ([]Draft, int) {
	drafts := make([]Draft, 0, len(items))
	skipped := 0
	for _, it := range items {
		d, ok := i.toDraft(SourceOpenTDB, it.Question, it.CorrectAnswer, it.IncorrectAnswer, it.Category, it.Difficulty)
		if !ok {
			skipped++
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, skipped
}

func (i *Importer) fromTriviaAPI(items []external.TriviaAPIQuestion) ([]Draft, int) {
	drafts := make([]Draft, 0, len(items))
	skipped := 0
	for _, it := range items {
		d, ok := i.toDraft(SourceTriviaAPI, it.Question.Text, it.Correct, it.Incorrect, it.Category, it.Difficulty)
		if !ok {
			skipped++
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, skipped
}

// toDraft unescapes provider text and places the correct answer at a random position.
// Anything other than one correct and three incorrect answers is skipped.
func (i *Importer) toDraft(source, text, correct string, incorrect []string, category, difficulty string) (Draft, bool) {
	if len(incorrect) != 3 {
		return Draft{}, false
	}
	pos := i.place(4)
	choices := make([]string, 0, 4)
	for _, wrong := range incorrect {
		choices = append(choices, html.UnescapeString(wrong))
	}
	choices = append(choices, "")
	copy(choices[pos+1:], choices[pos:])
	choices[pos] = html.UnescapeString(correct)

	return Draft{
		Text:         html.UnescapeString(text),
		Choices:      choices,
		CorrectIndex: pos,
		CategoryID:   categorySlug(html.UnescapeString(category)),
		Difficulty:   strings.ToLower(difficulty),
		Source:       source,
	}, true
}

// categorySlug maps provider labels like "Science & Nature" to "science_nature".
func categorySlug(label string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
