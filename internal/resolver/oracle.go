package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kdev89/feudline/internal/question"
)

// HTTPOracle calls the external answer-matching service over HTTP JSON.
type HTTPOracle struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

type oracleRequest struct {
	Question string            `json:"question"`
	Answers  []question.Answer `json:"answers"`
	Guess    string            `json:"guess"`
}

type oracleResponse struct {
	Index       int    `json:"index"`
	MatchedText string `json:"matchedText"`
	Points      int    `json:"points"`
}

func NewHTTPOracle(url string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (o *HTTPOracle) Validate(ctx context.Context, questionText string, answers []question.Answer, rawGuess string) (Match, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	body, err := json.Marshal(oracleRequest{Question: questionText, Answers: answers, Guess: rawGuess})
	if err != nil {
		return NoMatch, fmt.Errorf("marshal oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return NoMatch, fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return NoMatch, fmt.Errorf("call answer oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NoMatch, fmt.Errorf("answer oracle returned status %d", resp.StatusCode)
	}

	var out oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return NoMatch, fmt.Errorf("decode oracle response: %w", err)
	}
	return Match{Index: out.Index, MatchedText: out.MatchedText, Points: out.Points}, nil
}
