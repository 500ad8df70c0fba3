package resolver

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/question"
)

// Match is the normalized outcome of validating a guess against a board.
// Index is the 0-based answer rank, -1 when nothing matched.
type Match struct {
	Index       int    `json:"index"`
	MatchedText string `json:"matchedText"`
	Points      int    `json:"points"`
}

// NoMatch is the canonical miss result.
var NoMatch = Match{Index: -1}

// Oracle validates a raw guess against a question's answer list. Implemented
// by the external answer-matching service client; tests inject fakes.
type Oracle interface {
	Validate(ctx context.Context, questionText string, answers []question.Answer, rawGuess string) (Match, error)
}

// Resolver wraps the oracle and guarantees a result: when the oracle times
// out or fails, it falls back to local heuristic matching. Resolve never
// returns an error to callers.
type Resolver struct {
	oracle Oracle
}

func New(oracle Oracle) *Resolver {
	return &Resolver{oracle: oracle}
}

// Resolve matches rawGuess against answers. The oracle is consulted first;
// any oracle failure degrades to the local fallback matcher.
func (r *Resolver) Resolve(ctx context.Context, questionText string, answers []question.Answer, rawGuess string) Match {
	guess := strings.TrimSpace(rawGuess)
	if guess == "" {
		return NoMatch
	}

	if r.oracle != nil {
		m, err := r.oracle.Validate(ctx, questionText, answers, guess)
		if err == nil {
			if m.Index >= 0 && m.Index < len(answers) {
				return m
			}
			return NoMatch
		}
		log.Warn().Err(err).Str("guess", guess).Msg("answer oracle failed, using fallback matcher")
	}

	return FallbackMatch(answers, guess)
}

// FallbackMatch applies the local heuristics in order: exact normalized
// match, substring either way, then a >=2 shared-significant-word overlap.
func FallbackMatch(answers []question.Answer, rawGuess string) Match {
	guess := normalize(rawGuess)
	if guess == "" {
		return NoMatch
	}

	for i, a := range answers {
		if normalize(a.Text) == guess {
			return Match{Index: i, MatchedText: a.Text, Points: a.Points}
		}
	}

	for i, a := range answers {
		norm := normalize(a.Text)
		if len(guess) >= 3 && (strings.Contains(norm, guess) || strings.Contains(guess, norm)) {
			return Match{Index: i, MatchedText: a.Text, Points: a.Points}
		}
	}

	guessWords := significantWords(guess)
	for i, a := range answers {
		shared := 0
		for w := range significantWords(normalize(a.Text)) {
			if guessWords[w] {
				shared++
			}
		}
		if shared >= 2 {
			return Match{Index: i, MatchedText: a.Text, Points: a.Points}
		}
	}

	return NoMatch
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "to": true, "in": true,
	"on": true, "at": true, "my": true, "your": true, "and": true, "or": true,
	"for": true, "with": true, "some": true, "it": true, "its": true,
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func significantWords(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if len(w) < 2 || stopWords[w] {
			continue
		}
		words[w] = true
	}
	return words
}
