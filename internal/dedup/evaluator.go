package dedup

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-delivery/internal/content"
	"github.com/gokatarajesh/quiz-delivery/internal/fingerprint"
	"github.com/gokatarajesh/quiz-delivery/internal/observability"
)

// Actions returned by the ingestion gate.
const (
	ActionAllow  = "allow"
	ActionReview = "review"
	ActionReject = "reject"
)

// Machine codes returned by the ingestion gate.
const (
	CodeOK             = "OK"
	CodeInvalidText    = "INVALID_TEXT"
	CodeDuplicateExact = "DUPLICATE_EXACT"
	CodeDuplicateNear  = "DUPLICATE_NEAR"
)

const (
	DefaultHammingNear  = 3
	DefaultCandidateCap = 200
)

// ErrStoreUnavailable wraps content-store failures. Callers must not accept content when it is returned.
var ErrStoreUnavailable = errors.New("duplicate check unavailable")

// Store is the read-only slice of the content store the gate needs.
// Lookups that find nothing return (nil, nil) / an empty slice.
type Store interface {
	FindByExactHash(ctx context.Context, sha1Canonical string) (*content.Question, error)
	FindByBucketPrefix(ctx context.Context, bucket string, limit int) ([]content.Question, error)
}

// Decision is the outcome of evaluating one piece of text.
type Decision struct {
	Action       string                   `json:"action"`
	StatusCode   int                      `json:"status_code"`
	Code         string                   `json:"code"`
	Message      string                   `json:"message"`
	Fingerprints fingerprint.Fingerprints `json:"fingerprints"`
	DuplicateID  string                   `json:"duplicate_id,omitempty"`
	Distance     *int                     `json:"distance,omitempty"`
}

// Accepted reports whether the content may be persisted (allow or review).
func (d Decision) Accepted() bool {
	return d.Action == ActionAllow || d.Action == ActionReview
}

// Options tunes the near-duplicate scan.
type Options struct {
	HammingNear  int
	CandidateCap int
}

// Evaluator classifies new text as allow, review or reject.
type Evaluator struct {
	store        Store
	generator    *fingerprint.Generator
	hammingNear  int
	candidateCap int
	logger       zerolog.Logger
}

// NewEvaluator builds an evaluator; zero options fall back to defaults.
func NewEvaluator(store Store, generator *fingerprint.Generator, opts Options, logger zerolog.Logger) *Evaluator {
	near := opts.HammingNear
	if near <= 0 {
		near = DefaultHammingNear
	}
	capN := opts.CandidateCap
	if capN <= 0 {
		capN = DefaultCandidateCap
	}
	return &Evaluator{
		store:        store,
		generator:    generator,
		hammingNear:  near,
		candidateCap: capN,
		logger:       logger.With().Str("component", "dedup").Logger(),
	}
}

// Evaluate runs the gate. Any store error is returned wrapped in ErrStoreUnavailable.
func (e *Evaluator) Evaluate(ctx context.Context, text string) (Decision, error) {
	fp := e.generator.Compute(text)

	decision, err := e.evaluate(ctx, fp)
	if err != nil {
		observability.DuplicateDecisions.WithLabelValues("error", "STORE_UNAVAILABLE").Inc()
		return Decision{}, err
	}
	decision.Fingerprints = fp
	observability.DuplicateDecisions.WithLabelValues(decision.Action, decision.Code).Inc()
	return decision, nil
}

func (e *Evaluator) evaluate(ctx context.Context, fp fingerprint.Fingerprints) (Decision, error) {
	if fp.SHA1Canonical == emptySHA1 {
		return Decision{
			Action:     ActionReject,
			StatusCode: http.StatusBadRequest,
			Code:       CodeInvalidText,
			Message:    "question text is empty after normalization",
		}, nil
	}

	existing, err := e.store.FindByExactHash(ctx, fp.SHA1Canonical)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: exact lookup: %v", ErrStoreUnavailable, err)
	}
	if existing != nil {
		return Decision{
			Action:      ActionReject,
			StatusCode:  http.StatusConflict,
			Code:        CodeDuplicateExact,
			Message:     "an identical question already exists",
			DuplicateID: existing.ID,
		}, nil
	}

	sig, err := fingerprint.ParseSignature(fp.SimHash64)
	if err != nil {
		return Decision{}, err
	}

	candidates, err := e.store.FindByBucketPrefix(ctx, fp.LSHBucket, e.candidateCap)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: bucket lookup: %v", ErrStoreUnavailable, err)
	}
	if len(candidates) > e.candidateCap {
		candidates = candidates[:e.candidateCap]
	}
	observability.DuplicateCandidatesScanned.Observe(float64(len(candidates)))

	bestID := ""
	bestDistance := e.hammingNear + 1
	for _, c := range candidates {
		other, err := fingerprint.ParseSignature(c.SimHash64)
		if err != nil {
			e.logger.Warn().Err(err).Str("question_id", c.ID).Msg("skip candidate with malformed signature")
			continue
		}
		if d := fingerprint.Distance(sig, other); d < bestDistance {
			bestID, bestDistance = c.ID, d
		}
	}

	if bestID != "" {
		distance := bestDistance
		return Decision{
			Action:      ActionReview,
			StatusCode:  http.StatusAccepted,
			Code:        CodeDuplicateNear,
			Message:     "a similar question exists; accepted for moderation review",
			DuplicateID: bestID,
			Distance:    &distance,
		}, nil
	}

	return Decision{
		Action:     ActionAllow,
		StatusCode: http.StatusCreated,
		Code:       CodeOK,
		Message:    "question accepted",
	}, nil
}

// emptySHA1 is the SHA-1 of the empty string.
const emptySHA1 = "da39a3ee5e6b4b0d3255bfef95601890afd80709"
