package cli

import (
	"context"
	"fmt"

	"github.com/dkeye/pitchcall/internal/adapters/backend"
	"github.com/dkeye/pitchcall/internal/adapters/rtc"
	"github.com/dkeye/pitchcall/internal/adapters/signal"
	"github.com/dkeye/pitchcall/internal/app"
	"github.com/dkeye/pitchcall/internal/app/orch"
	"github.com/dkeye/pitchcall/internal/config"
	"github.com/dkeye/pitchcall/internal/core"
)

func newController(ctx context.Context, cfg *config.Config, events core.EventSink) (*orch.Orchestrator, error) {
	client, err := backend.New(backend.Options{
		BaseURL:        cfg.BackendURL,
		RequestTimeout: cfg.RequestTimeout,
		TunnelBypass:   cfg.TunnelBypass,
	})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	media := rtc.NewFactory(rtc.Options{ICEServers: cfg.Media.ICEServers, Video: cfg.Media.Video})
	transport := signal.NewTransport(media, signal.Options{
		PingPeriod: cfg.PingPeriod,
		ReadLimit:  cfg.ReadLimit,
		Audio:      signal.DefaultAudioCapture(),
	})

	return orch.New(ctx, orch.Deps{
		Issuer:    client,
		Transport: transport,
		Analysis:  client,
		Events:    events,
	}, orch.Config{
		Poll:           app.PollerConfig{Interval: cfg.Poll.Interval, MaxAttempts: cfg.Poll.MaxAttempts},
		ConnectTimeout: cfg.ConnectTimeout,
	}), nil
}
