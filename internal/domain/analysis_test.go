package domain

import (
	"errors"
	"slices"
	"testing"
	"time"
)

const completeBody = `{
	"_id": "665f0c",
	"call_id": "call-1",
	"timestamp": "2024-05-01T10:09:00Z",
	"user_avg_words_per_turn": 21.5,
	"agent_avg_words_per_turn": 12,
	"summary": "Strong opening, weak on market size.",
	"agent_interest_score": 0.72,
	"improvements": ["quantify TAM"]
}`

func TestParseAnalysisResultComplete(t *testing.T) {
	t.Parallel()

	res, err := ParseAnalysisResult([]byte(completeBody))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "665f0c" || res.CallID != "call-1" {
		t.Fatalf("unexpected ids: %+v", res)
	}
	if res.InterestScore() != 0.72 {
		t.Fatalf("unexpected score: %v", res.InterestScore())
	}
	if res.InterestLevel() != InterestHigh {
		t.Fatalf("unexpected level: %s", res.InterestLevel())
	}
	if len(res.Improvements) != 1 {
		t.Fatalf("expected improvements to be decoded")
	}
	want := time.Date(2024, time.May, 1, 10, 9, 0, 0, time.UTC)
	if !res.AnalyzedAt().Equal(want) {
		t.Fatalf("unexpected timestamp: %v", res.AnalyzedAt())
	}
}

func TestParseAnalysisResultMissingScoreIsNotReady(t *testing.T) {
	t.Parallel()

	body := `{"_id":"a","call_id":"c","timestamp":"t","user_avg_words_per_turn":1,"agent_avg_words_per_turn":2,"summary":"s"}`
	_, err := ParseAnalysisResult([]byte(body))
	if !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("expected ErrMalformedResult, got %v", err)
	}
	var incomplete *IncompleteResultError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResultError, got %T", err)
	}
	if !slices.Equal(incomplete.Missing, []string{"agent_interest_score"}) {
		t.Fatalf("unexpected missing fields: %v", incomplete.Missing)
	}
}

func TestParseAnalysisResultZeroScoreIsReady(t *testing.T) {
	t.Parallel()

	body := `{"_id":"a","call_id":"c","timestamp":"t","user_avg_words_per_turn":1,"agent_avg_words_per_turn":2,"summary":"s","agent_interest_score":0}`
	res, err := ParseAnalysisResult([]byte(body))
	if err != nil {
		t.Fatalf("score 0 must be accepted: %v", err)
	}
	if res.AgentInterestScore == nil || *res.AgentInterestScore != 0 {
		t.Fatalf("expected explicit zero score")
	}
	if res.InterestLevel() != InterestVeryLow {
		t.Fatalf("unexpected level: %s", res.InterestLevel())
	}
}

func TestParseAnalysisResultFalsyFieldsAreMissing(t *testing.T) {
	t.Parallel()

	body := `{"_id":"a","call_id":"","timestamp":"t","user_avg_words_per_turn":0,"agent_avg_words_per_turn":2,"summary":"","agent_interest_score":0.5}`
	_, err := ParseAnalysisResult([]byte(body))
	var incomplete *IncompleteResultError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResultError, got %v", err)
	}
	for _, field := range []string{"call_id", "user_avg_words_per_turn", "summary"} {
		if !slices.Contains(incomplete.Missing, field) {
			t.Fatalf("expected %s in %v", field, incomplete.Missing)
		}
	}
}

func TestParseAnalysisResultAcceptsPlainID(t *testing.T) {
	t.Parallel()

	body := `{"id":"a","call_id":"c","timestamp":"t","user_avg_words_per_turn":1,"agent_avg_words_per_turn":2,"summary":"s","agent_interest_score":1}`
	res, err := ParseAnalysisResult([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ID != "a" {
		t.Fatalf("unexpected id: %q", res.ID)
	}
}

func TestParseAnalysisResultNonStringIdentityFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		body     string
		callID   string
		analyzed time.Time
	}{
		{
			name:     "numeric",
			body:     `{"_id":"a","call_id":42,"timestamp":1714557000000,"user_avg_words_per_turn":1,"agent_avg_words_per_turn":2,"summary":"s","agent_interest_score":0.5}`,
			callID:   "42",
			analyzed: time.UnixMilli(1714557000000).UTC(),
		},
		{
			name:     "extended json",
			body:     `{"_id":{"$oid":"665f0c"},"call_id":"c","timestamp":{"$date":"2024-05-01T10:09:00Z"},"user_avg_words_per_turn":1,"agent_avg_words_per_turn":2,"summary":"s","agent_interest_score":0.5}`,
			callID:   "c",
			analyzed: time.Date(2024, time.May, 1, 10, 9, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res, err := ParseAnalysisResult([]byte(tc.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.ID == "" || res.CallID != tc.callID {
				t.Fatalf("unexpected ids: %q %q", res.ID, res.CallID)
			}
			if !res.AnalyzedAt().Equal(tc.analyzed) {
				t.Fatalf("unexpected timestamp: %v", res.AnalyzedAt())
			}
		})
	}
}

func TestParseAnalysisResultFalsyScalarsAreMissing(t *testing.T) {
	t.Parallel()

	body := `{"_id":"a","call_id":0,"timestamp":false,"user_avg_words_per_turn":1,"agent_avg_words_per_turn":2,"summary":"s","agent_interest_score":0.5}`
	_, err := ParseAnalysisResult([]byte(body))
	var incomplete *IncompleteResultError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteResultError, got %v", err)
	}
	if !slices.Equal(incomplete.Missing, []string{"call_id", "timestamp"}) {
		t.Fatalf("unexpected missing fields: %v", incomplete.Missing)
	}
}

func TestParseAnalysisResultBadJSON(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "not json", "null", "[]"} {
		_, err := ParseAnalysisResult([]byte(body))
		if !errors.Is(err, ErrMalformedResult) {
			t.Fatalf("body %q: expected ErrMalformedResult, got %v", body, err)
		}
	}
}

func TestLevelOfBands(t *testing.T) {
	t.Parallel()

	cases := map[float64]InterestLevel{
		1:    InterestVeryHigh,
		0.8:  InterestVeryHigh,
		0.79: InterestHigh,
		0.6:  InterestHigh,
		0.4:  InterestModerate,
		0.2:  InterestLow,
		0.19: InterestVeryLow,
		0:    InterestVeryLow,
	}
	for score, want := range cases {
		if got := LevelOf(score); got != want {
			t.Fatalf("LevelOf(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestPollBudgetWindow(t *testing.T) {
	t.Parallel()

	b := PollBudget{MaxAttempts: 24, Interval: 5 * time.Second}
	if b.Window() != 2*time.Minute {
		t.Fatalf("unexpected window: %v", b.Window())
	}
	b.Attempts = 24
	if !b.Exhausted() {
		t.Fatalf("expected exhausted budget")
	}
}
