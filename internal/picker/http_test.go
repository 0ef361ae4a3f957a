package picker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quiz-delivery/internal/auth"
	"github.com/gokatarajesh/quiz-delivery/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-delivery/internal/content"
)

func authedRequest(target string) (*http.Request, uuid.UUID) {
	player := uuid.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := auth.WithClaims(req.Context(), &jwt.Claims{PlayerID: player, Role: jwt.RolePlayer})
	return req.WithContext(ctx), player
}

func TestHandlePickHidesAnswers(t *testing.T) {
	withAnswer := q("q1", "a00", 0)
	withAnswer.Text = "Who wrote Hamlet?"
	withAnswer.Choices = []string{"Kyd", "Shakespeare", "Marlowe", "Jonson"}
	withAnswer.CorrectIndex = 1
	source := &fakeSource{questions: []content.Question{withAnswer, q("q2", "b00", 0)}}
	rec := &captureRecorder{}
	h := NewHTTPHandler(newPicker(source, newStore(75), rec, Options{}), zerolog.Nop())

	req, player := authedRequest("/v1/questions/pick?count=5&category=literature&difficulty=easy&session=s1")
	w := httptest.NewRecorder()
	h.HandlePick(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "correct_index")

	var body struct {
		Questions []PublicQuestion `json:"questions"`
		Requested int              `json:"requested"`
		Returned  int              `json:"returned"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Requested)
	assert.Equal(t, 2, body.Returned)
	assert.Equal(t, "Who wrote Hamlet?", body.Questions[0].Text)

	assert.Equal(t, content.CandidateFilter{CategoryID: "literature", Difficulty: "easy"}, stripExcluded(source.lastFilter))
	require.Len(t, rec.events, 1)
	assert.Equal(t, player.String(), rec.events[0].UserID)
	assert.Equal(t, "s1", rec.events[0].SessionID)
}

func TestHandlePickValidation(t *testing.T) {
	h := NewHTTPHandler(newPicker(&fakeSource{}, newStore(75), &captureRecorder{}, Options{}), zerolog.Nop())

	w := httptest.NewRecorder()
	h.HandlePick(w, httptest.NewRequest(http.MethodGet, "/v1/questions/pick", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req, _ := authedRequest("/v1/questions/pick?difficulty=extreme")
	w = httptest.NewRecorder()
	h.HandlePick(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req, _ = authedRequest("/v1/questions/pick?count=ten")
	w = httptest.NewRecorder()
	h.HandlePick(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req, _ = authedRequest("/v1/questions/pick")
	w = httptest.NewRecorder()
	h.HandlePick(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"questions":[]`)
}

func stripExcluded(f content.CandidateFilter) content.CandidateFilter {
	f.ExcludeIDs = nil
	return f
}
