package question

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-delivery/internal/dedup"
	httperrors "github.com/gokatarajesh/quiz-delivery/pkg/http/errors"
)

// maxBodyBytes caps question payloads.
const maxBodyBytes = 64 << 10

// HTTPHandler exposes the ingestion gate to editors.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "question_http").Logger(),
	}
}

type evaluateRequest struct {
	Text string `json:"text"`
}

// HandleEvaluate dry-runs the duplicate gate.
// Route: POST /v1/questions/evaluate {"text": "..."}
func (h *HTTPHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	decision, err := h.svc.Evaluate(r.Context(), req.Text)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	httperrors.RespondJSON(w, decision.StatusCode, decision)
}

// HandleCreate ingests a question.
// Route: POST /v1/questions {"text", "choices", "correct_index", "category", "difficulty"}
func (h *HTTPHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	var draft Draft
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&draft); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	draft.Source = SourceManual

	outcome, err := h.svc.Ingest(r.Context(), draft)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	httperrors.RespondJSON(w, outcome.StatusCode, outcome)
}

func (h *HTTPHandler) respondStoreError(w http.ResponseWriter, err error) {
	h.logger.Error().Err(err).Msg("duplicate gate unavailable")
	if errors.Is(err, dedup.ErrStoreUnavailable) {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "duplicate check unavailable; question not accepted")
		return
	}
	httperrors.RespondInternalError(w, "question evaluation failed")
}
