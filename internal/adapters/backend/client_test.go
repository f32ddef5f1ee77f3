package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/pitchcall/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/", RequestTimeout: time.Second, TunnelBypass: true})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestIssueTokenSendsIdentityAndRoom(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get-token" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("identity"); got != "user-42" {
			t.Errorf("identity = %q", got)
		}
		if got := r.URL.Query().Get("room"); got != "room-user-42-20240501-1005" {
			t.Errorf("room = %q", got)
		}
		if r.Header.Get("ngrok-skip-browser-warning") != "true" {
			t.Error("tunnel bypass header missing")
		}
		_, _ = w.Write([]byte(`{"token":"tok","url":"wss://rtc.example"}`))
	})

	cred, err := c.IssueToken(context.Background(), "user-42", "room-user-42-20240501-1005")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if cred.Token != "tok" || cred.EndpointURL != "wss://rtc.example" || cred.IssuedFor != "room-user-42-20240501-1005" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
}

func TestIssueTokenFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"missing url": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"token":"tok"}`))
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, h)
			_, err := c.IssueToken(context.Background(), "user-42", "room-x")
			if !errors.Is(err, domain.ErrCredentialRequestFailed) {
				t.Fatalf("expected ErrCredentialRequestFailed, got %v", err)
			}
		})
	}
}

func TestFetchAnalysisClassifiesResponses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{"detail":"pending"}`, domain.ErrAnalysisNotReady},
		{"incomplete", http.StatusOK, `{"_id":"a1","call_id":"c1"}`, domain.ErrMalformedResult},
		{"ready", http.StatusOK, `{"_id":"a1","call_id":"c1","timestamp":"2024-05-01T10:09:00Z",
			"user_avg_words_per_turn":12.5,"agent_avg_words_per_turn":9,"summary":"ok","agent_interest_score":0}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/analysis-result" || r.URL.Query().Get("room") != "room-1" {
					t.Errorf("unexpected request %s", r.URL)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			res, err := c.FetchAnalysis(context.Background(), "room-1")
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if res.ID != "a1" || res.InterestScore() != 0 {
					t.Fatalf("unexpected result: %+v", res)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFetchAnalysisNetworkErrorIsRequestFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base, RequestTimeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.FetchAnalysis(context.Background(), "room-1")
	if !errors.Is(err, domain.ErrPollRequest) {
		t.Fatalf("expected ErrPollRequest, got %v", err)
	}
}

func TestFetchAnalysisOversizedBodyIsReported(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary":"` + strings.Repeat("x", maxBodyBytes) + `"}`))
	})
	_, err := c.FetchAnalysis(context.Background(), "room-1")
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
	if !errors.Is(err, domain.ErrPollRequest) {
		t.Fatalf("oversized body must count as a request failure, got %v", err)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "  ", "ftp://x", "://bad"} {
		if _, err := New(Options{BaseURL: raw}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
