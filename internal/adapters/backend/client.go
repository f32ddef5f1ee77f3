// Package backend talks to the token service and the analysis service over HTTP.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	tokenPath    = "/get-token"
	analysisPath = "/analysis-result"

	tunnelBypassHeader = "ngrok-skip-browser-warning"
	maxBodyBytes       = 1 << 20
)

var ErrBodyTooLarge = errors.New("response body too large")

type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	// TunnelBypass adds the header that skips the tunnel's browser interstitial.
	TunnelBypass bool
	HTTPClient   *http.Client
}

// Client implements core.CredentialIssuer and core.AnalysisSource.
type Client struct {
	base   *url.URL
	http   *http.Client
	bypass bool
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if raw == "" {
		return nil, errors.New("backend url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http(s), got %q", base.Scheme)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, http: hc, bypass: opts.TunnelBypass}, nil
}

type tokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

func (c *Client) IssueToken(ctx context.Context, identity domain.UserID, room domain.RoomID) (domain.JoinCredential, error) {
	q := url.Values{"identity": {string(identity)}, "room": {string(room)}}
	body, status, err := c.get(ctx, tokenPath, q)
	if err != nil {
		return domain.JoinCredential{}, fmt.Errorf("%w: %w", domain.ErrCredentialRequestFailed, err)
	}
	if status < 200 || status > 299 {
		return domain.JoinCredential{}, fmt.Errorf("%w: status %d", domain.ErrCredentialRequestFailed, status)
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.JoinCredential{}, fmt.Errorf("%w: decode: %v", domain.ErrCredentialRequestFailed, err)
	}
	if resp.Token == "" || resp.URL == "" {
		return domain.JoinCredential{}, fmt.Errorf("%w: response missing token or url", domain.ErrCredentialRequestFailed)
	}
	return domain.JoinCredential{Token: resp.Token, EndpointURL: resp.URL, IssuedFor: room}, nil
}

// FetchAnalysis treats any non-2xx answer as "not ready yet". Transport failures wrap ErrPollRequest.
func (c *Client) FetchAnalysis(ctx context.Context, room domain.RoomID) (domain.AnalysisResult, error) {
	body, status, err := c.get(ctx, analysisPath, url.Values{"room": {string(room)}})
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("%w: %w", domain.ErrPollRequest, err)
	}
	if status < 200 || status > 299 {
		log.Debug().Str("module", "adapters.backend").Str("room", string(room)).Int("status", status).Msg("analysis not ready")
		return domain.AnalysisResult{}, domain.ErrAnalysisNotReady
	}
	return domain.ParseAnalysisResult(body)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, int, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if c.bypass {
		req.Header.Set(tunnelBypassHeader, "true")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if len(body) > maxBodyBytes {
		return nil, resp.StatusCode, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, maxBodyBytes)
	}
	return body, resp.StatusCode, nil
}
