// Package external holds clients for third-party trivia providers used to seed the corpus.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OpenTDBClient fetches multiple-choice questions from the Open Trivia DB (no API key).
// Text is returned HTML-entity encoded, as the provider sends it.
type OpenTDBClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenTDBClient(baseURL string, httpClient *http.Client) *OpenTDBClient {
	if baseURL == "" {
		baseURL = "https://opentdb.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &OpenTDBClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

type OpenTDBQuestion struct {
	Category        string   `json:"category"`
	Type            string   `json:"type"`
	Difficulty      string   `json:"difficulty"`
	Question        string   `json:"question"`
	CorrectAnswer   string   `json:"correct_answer"`
	IncorrectAnswer []string `json:"incorrect_answers"`
}

type openTDBResponse struct {
	ResponseCode int               `json:"response_code"`
	Results      []OpenTDBQuestion `json:"results"`
}

// openTDBMaxAmount is the provider's per-request cap.
const openTDBMaxAmount = 50

// Fetch requests up to amount multiple-choice questions. category is the provider's
// numeric category id; empty means any.
func (c *OpenTDBClient) Fetch(ctx context.Context, amount int, category, difficulty string) ([]OpenTDBQuestion, error) {
	if amount <= 0 {
		return nil, nil
	}
	if amount > openTDBMaxAmount {
		amount = openTDBMaxAmount
	}

	values := url.Values{}
	values.Set("amount", fmt.Sprint(amount))
	values.Set("type", "multiple")
	if category != "" {
		values.Set("category", category)
	}
	if difficulty != "" {
		values.Set("difficulty", difficulty)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api.php?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("opentdb non-200: %d", resp.StatusCode)
	}

	var payload openTDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode opentdb response: %w", err)
	}
	switch payload.ResponseCode {
	case 0:
		return payload.Results, nil
	case 1:
		// Not enough questions for the query; the provider returns none at all.
		return nil, nil
	default:
		return nil, fmt.Errorf("opentdb response code %d", payload.ResponseCode)
	}
}
