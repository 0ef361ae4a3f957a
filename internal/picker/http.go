package picker

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-delivery/internal/auth"
	"github.com/gokatarajesh/quiz-delivery/internal/content"
	httperrors "github.com/gokatarajesh/quiz-delivery/pkg/http/errors"
)

// PublicQuestion is the player-facing view of a question; it never carries the answer.
type PublicQuestion struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Choices    []string `json:"choices"`
	CategoryID string   `json:"category_id"`
	Difficulty string   `json:"difficulty"`
}

// HTTPHandler exposes the picker to authenticated players.
type HTTPHandler struct {
	picker *Picker
	logger zerolog.Logger
}

func NewHTTPHandler(picker *Picker, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		picker: picker,
		logger: logger.With().Str("component", "picker_http").Logger(),
	}
}

// HandlePick responds with a batch of questions for the calling player.
// Route: GET /v1/questions/pick?category=&difficulty=&count=10&session=
func (h *HTTPHandler) HandlePick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w)
		return
	}

	playerID, ok := auth.PlayerIDFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	q := r.URL.Query()
	difficulty := q.Get("difficulty")
	if difficulty != "" && !content.ValidDifficulty(difficulty) {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "unknown difficulty", "difficulty")
		return
	}

	count := 0
	if raw := q.Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "count must be an integer", "count")
			return
		}
		count = parsed
	}

	picked := h.picker.Pick(r.Context(), Request{
		UserID:     playerID,
		CategoryID: q.Get("category"),
		Difficulty: difficulty,
		Count:      count,
		SessionID:  q.Get("session"),
	})

	out := make([]PublicQuestion, len(picked))
	for i, p := range picked {
		out[i] = PublicQuestion{
			ID:         p.ID,
			Text:       p.Text,
			Choices:    p.Choices,
			CategoryID: p.CategoryID,
			Difficulty: p.Difficulty,
		}
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"questions":   out,
		"requested":   ClampCount(count),
		"returned":    len(out),
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}
