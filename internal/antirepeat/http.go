package antirepeat

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/quiz-delivery/pkg/http/errors"
)

// HTTPHandler exposes serve analytics.
type HTTPHandler struct {
	store  *Store
	logger zerolog.Logger
}

func NewHTTPHandler(store *Store, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		store:  store,
		logger: logger.With().Str("component", "antirepeat_http").Logger(),
	}
}

// HandleRepeatRates responds with per-user repeat ratios.
// Route: GET /v1/analytics/repeat-rates?days=7
func (h *HTTPHandler) HandleRepeatRates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "days must be an integer", "days")
			return
		}
		days = parsed
	}
	days = h.store.RepeatWindowDays(days)

	rates, err := h.store.RepeatRates(r.Context(), days)
	if err != nil {
		h.logger.Error().Err(err).Int("days", days).Msg("repeat rates failed")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeAnalyticsFailed, "repeat rates unavailable")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"days":        days,
		"users":       rates,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleHotBuckets responds with today's most-served buckets.
// Route: GET /v1/analytics/hot-buckets?limit=20
func (h *HTTPHandler) HandleHotBuckets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	limit := defaultTopBuckets
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= maxTopBuckets {
			limit = parsed
		}
	}

	top, err := h.store.TopBuckets(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("top buckets failed")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeAnalyticsFailed, "bucket counters unavailable")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"buckets":     top,
		"threshold":   h.store.hotThreshold,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}
