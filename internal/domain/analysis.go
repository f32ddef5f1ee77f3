package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// AnalysisResult is produced by the backend once a call has been analyzed.
// Numeric averages must be non-zero to count as present; the interest score
// is a pointer because 0 is a meaningful score.
type AnalysisResult struct {
	ID                   string   `json:"_id" validate:"required"`
	CallID               string   `json:"call_id" validate:"required"`
	Timestamp            string   `json:"timestamp" validate:"required"`
	UserAvgWordsPerTurn  float64  `json:"user_avg_words_per_turn" validate:"required"`
	AgentAvgWordsPerTurn float64  `json:"agent_avg_words_per_turn" validate:"required"`
	Summary              string   `json:"summary" validate:"required"`
	AgentInterestScore   *float64 `json:"agent_interest_score" validate:"required"`
	Improvements         []string `json:"improvements,omitempty"`
}

var resultValidate = newResultValidator()

func newResultValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// resultWire shadows the identity fields of AnalysisResult. The backend does
// not pin their JSON types, so any present, truthy value is accepted.
type resultWire struct {
	AnalysisResult
	ID        json.RawMessage `json:"_id"`
	AltID     json.RawMessage `json:"id"`
	CallID    json.RawMessage `json:"call_id"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// ParseAnalysisResult turns a success body into a typed result or an
// *IncompleteResultError listing the fields that are not there yet.
func ParseAnalysisResult(body []byte) (AnalysisResult, error) {
	var wire resultWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	res := wire.AnalysisResult
	res.ID = scalarText(wire.ID)
	if res.ID == "" {
		res.ID = scalarText(wire.AltID)
	}
	res.CallID = scalarText(wire.CallID)
	res.Timestamp = scalarText(wire.Timestamp)
	if err := res.Validate(); err != nil {
		return AnalysisResult{}, err
	}
	return res, nil
}

// scalarText renders a JSON value as text, or "" when it is absent or falsy.
// Extended-JSON wrappers such as {"$date": ...} and {"$oid": ...} are unwrapped.
func scalarText(raw json.RawMessage) string {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return ""
	}
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if !x {
			return ""
		}
		return "true"
	case float64:
		if x == 0 {
			return ""
		}
		return string(bytes.TrimSpace(raw))
	case map[string]any:
		var ext map[string]json.RawMessage
		if err := json.Unmarshal(raw, &ext); err == nil {
			for _, key := range []string{"$date", "$oid", "$numberLong"} {
				if inner, ok := ext[key]; ok {
					return scalarText(inner)
				}
			}
		}
	}
	return string(bytes.TrimSpace(raw))
}

// Validate reports whether every required field is present.
func (r AnalysisResult) Validate() error {
	err := resultValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return &IncompleteResultError{Missing: missing}
}

// InterestScore returns the score, or 0 when absent.
func (r AnalysisResult) InterestScore() float64 {
	if r.AgentInterestScore == nil {
		return 0
	}
	return *r.AgentInterestScore
}

// AnalyzedAt parses the backend timestamp, either text or Unix milliseconds;
// the zero time when it cannot.
func (r AnalysisResult) AnalyzedAt() time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, r.Timestamp); err == nil {
			return t
		}
	}
	if ms, err := strconv.ParseInt(r.Timestamp, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

type InterestLevel string

const (
	InterestVeryHigh InterestLevel = "Very High"
	InterestHigh     InterestLevel = "High"
	InterestModerate InterestLevel = "Moderate"
	InterestLow      InterestLevel = "Low"
	InterestVeryLow  InterestLevel = "Very Low"
)

func LevelOf(score float64) InterestLevel {
	switch {
	case score >= 0.8:
		return InterestVeryHigh
	case score >= 0.6:
		return InterestHigh
	case score >= 0.4:
		return InterestModerate
	case score >= 0.2:
		return InterestLow
	default:
		return InterestVeryLow
	}
}

func (r AnalysisResult) InterestLevel() InterestLevel { return LevelOf(r.InterestScore()) }

// PollBudget is scoped to one poller run.
type PollBudget struct {
	Attempts    int           `json:"attempts"`
	MaxAttempts int           `json:"max_attempts"`
	Interval    time.Duration `json:"interval"`
}

// Window is the hard bound on how long polling may take.
func (b PollBudget) Window() time.Duration {
	return time.Duration(b.MaxAttempts) * b.Interval
}

func (b PollBudget) Exhausted() bool { return b.Attempts >= b.MaxAttempts }
