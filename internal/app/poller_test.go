package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/pitchcall/internal/domain"
)

type scriptedSource struct {
	mu      sync.Mutex
	replies []func() (domain.AnalysisResult, error)
	calls   int
	rooms   []domain.RoomID
}

func (s *scriptedSource) FetchAnalysis(ctx context.Context, room domain.RoomID) (domain.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, room)
	idx := s.calls
	s.calls++
	if idx < len(s.replies) {
		return s.replies[idx]()
	}
	return domain.AnalysisResult{}, domain.ErrAnalysisNotReady
}

func (s *scriptedSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func notReady() (domain.AnalysisResult, error) {
	return domain.AnalysisResult{}, domain.ErrAnalysisNotReady
}

func incomplete() (domain.AnalysisResult, error) {
	return domain.AnalysisResult{}, &domain.IncompleteResultError{Missing: []string{"summary"}}
}

func networkDown() (domain.AnalysisResult, error) {
	return domain.AnalysisResult{}, errors.Join(domain.ErrPollRequest, errors.New("connection refused"))
}

func sampleResult() domain.AnalysisResult {
	score := 0.0
	return domain.AnalysisResult{
		ID:                   "res-1",
		CallID:               "call-1",
		Timestamp:            "2024-05-01T10:09:00Z",
		UserAvgWordsPerTurn:  20,
		AgentAvgWordsPerTurn: 10,
		Summary:              "ok",
		AgentInterestScore:   &score,
	}
}

func TestPollResolvesOnFourthAttempt(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{replies: []func() (domain.AnalysisResult, error){
		notReady, notReady, notReady,
		func() (domain.AnalysisResult, error) { return sampleResult(), nil },
	}}
	p := NewAnalysisPoller(src, PollerConfig{Interval: time.Millisecond, MaxAttempts: 24}, nil)

	out := p.Poll(context.Background(), "room-1")
	if out.Status != PollResolved {
		t.Fatalf("expected resolved, got %s", out.Status)
	}
	if out.Result.ID != "res-1" {
		t.Fatalf("unexpected result: %+v", out.Result)
	}
	if out.Budget.Attempts != 4 || src.count() != 4 {
		t.Fatalf("expected exactly 4 requests, got attempts=%d calls=%d", out.Budget.Attempts, src.count())
	}

	time.Sleep(10 * time.Millisecond)
	if src.count() != 4 {
		t.Fatalf("no request may follow resolution, got %d", src.count())
	}
}

func TestPollTimesOutAfterBudget(t *testing.T) {
	t.Parallel()

	replies := make([]func() (domain.AnalysisResult, error), 30)
	for i := range replies {
		replies[i] = incomplete
	}
	src := &scriptedSource{replies: replies}
	p := NewAnalysisPoller(src, PollerConfig{Interval: time.Millisecond, MaxAttempts: 24}, nil)

	out := p.Poll(context.Background(), "room-1")
	if out.Status != PollTimedOut {
		t.Fatalf("expected timed out, got %s", out.Status)
	}
	if src.count() != 24 {
		t.Fatalf("expected exactly 24 requests, got %d", src.count())
	}
	if !errors.Is(out.LastErr, domain.ErrMalformedResult) {
		t.Fatalf("expected last error to be the incomplete body, got %v", out.LastErr)
	}
}

func TestPollNetworkErrorsShareTheBudget(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{replies: []func() (domain.AnalysisResult, error){
		networkDown, networkDown,
		func() (domain.AnalysisResult, error) { return sampleResult(), nil },
	}}
	p := NewAnalysisPoller(src, PollerConfig{Interval: time.Millisecond, MaxAttempts: 5}, nil)

	out := p.Poll(context.Background(), "room-1")
	if out.Status != PollResolved {
		t.Fatalf("transient network errors must not abort polling, got %s", out.Status)
	}
	if src.count() != 3 {
		t.Fatalf("expected 3 requests, got %d", src.count())
	}
}

func TestPollExhaustedByRequestErrorsFails(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{replies: []func() (domain.AnalysisResult, error){
		networkDown, networkDown, networkDown,
	}}
	p := NewAnalysisPoller(src, PollerConfig{Interval: time.Millisecond, MaxAttempts: 3}, nil)

	out := p.Poll(context.Background(), "room-1")
	if out.Status != PollFailed {
		t.Fatalf("expected failed, got %s", out.Status)
	}
	if src.count() != 3 {
		t.Fatalf("expected 3 requests, got %d", src.count())
	}
}

func TestPollStopsOnCancel(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{}
	p := NewAnalysisPoller(src, PollerConfig{Interval: time.Hour, MaxAttempts: 24}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan PollOutcome, 1)
	go func() { done <- p.Poll(ctx, "room-1") }()

	deadline := time.Now().Add(time.Second)
	for src.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case out := <-done:
		if out.Status != PollCanceled {
			t.Fatalf("expected canceled, got %s", out.Status)
		}
	case <-time.After(time.Second):
		t.Fatalf("poll did not stop after cancel")
	}
	if src.count() != 1 {
		t.Fatalf("no attempt may run after cancel, got %d", src.count())
	}
}

func TestPollTerminatesWithinWindow(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{}
	cfg := PollerConfig{Interval: 5 * time.Millisecond, MaxAttempts: 24}
	var attempts []int
	p := NewAnalysisPoller(src, cfg, func(b domain.PollBudget) { attempts = append(attempts, b.Attempts) })

	start := time.Now()
	out := p.Poll(context.Background(), "room-1")
	elapsed := time.Since(start)

	if out.Status != PollTimedOut {
		t.Fatalf("expected timed out, got %s", out.Status)
	}
	if elapsed > out.Budget.Window()+time.Second {
		t.Fatalf("poll exceeded its window: %v", elapsed)
	}
	if elapsed < 23*cfg.Interval {
		t.Fatalf("attempts were not spaced by the interval: %v", elapsed)
	}
	if len(attempts) != 24 || attempts[23] != 24 {
		t.Fatalf("unexpected attempt reports: %v", attempts)
	}
}

func TestNewAnalysisPollerDefaults(t *testing.T) {
	t.Parallel()

	p := NewAnalysisPoller(&scriptedSource{}, PollerConfig{}, nil)
	b := p.Budget()
	if b.Interval != DefaultPollInterval || b.MaxAttempts != DefaultPollMaxAttempts {
		t.Fatalf("unexpected defaults: %+v", b)
	}
	if b.Window() != 2*time.Minute {
		t.Fatalf("unexpected window: %v", b.Window())
	}
}
