package app

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultPollMaxAttempts = 24
)

type PollerConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

type PollStatus string

const (
	PollResolved PollStatus = "resolved"
	PollTimedOut PollStatus = "timed_out"
	PollFailed   PollStatus = "failed"
	PollCanceled PollStatus = "canceled"
)

// PollOutcome is always returned; the poller never raises to its caller.
type PollOutcome struct {
	Status  PollStatus
	Result  domain.AnalysisResult
	Budget  domain.PollBudget
	LastErr error
}

// AnalysisPoller checks for the analysis result on a fixed interval.
// Attempts are strictly sequential: the next one is scheduled after the previous settles.
type AnalysisPoller struct {
	source    core.AnalysisSource
	cfg       PollerConfig
	onAttempt func(domain.PollBudget)
}

func NewAnalysisPoller(source core.AnalysisSource, cfg PollerConfig, onAttempt func(domain.PollBudget)) *AnalysisPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultPollMaxAttempts
	}
	return &AnalysisPoller{source: source, cfg: cfg, onAttempt: onAttempt}
}

func (p *AnalysisPoller) Budget() domain.PollBudget {
	return domain.PollBudget{MaxAttempts: p.cfg.MaxAttempts, Interval: p.cfg.Interval}
}

// Poll issues the first request immediately. Cancel ctx to stop any scheduled attempt.
func (p *AnalysisPoller) Poll(ctx context.Context, room domain.RoomID) PollOutcome {
	budget := p.Budget()
	logger := log.With().Str("module", "app.poller").Str("room", string(room)).Logger()

	var (
		result  domain.AnalysisResult
		lastErr error
	)
	backoff := retry.WithMaxRetries(uint64(budget.MaxAttempts-1), retry.NewConstant(budget.Interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		budget.Attempts++
		res, err := p.source.FetchAnalysis(ctx, room)
		if p.onAttempt != nil {
			p.onAttempt(budget)
		}
		if err == nil {
			result = res
			return nil
		}
		lastErr = err
		logger.Debug().Err(err).Int("attempt", budget.Attempts).Int("max_attempts", budget.MaxAttempts).Msg("analysis not ready")
		return retry.RetryableError(err)
	})

	out := PollOutcome{Budget: budget, LastErr: lastErr}
	switch {
	case err == nil:
		out.Status = PollResolved
		out.Result = result
		out.LastErr = nil
		logger.Info().Int("attempt", budget.Attempts).Str("result_id", result.ID).Msg("analysis ready")
	case ctx.Err() != nil && !budget.Exhausted():
		out.Status = PollCanceled
		logger.Info().Int("attempt", budget.Attempts).Msg("polling canceled")
	case errors.Is(lastErr, domain.ErrPollRequest):
		out.Status = PollFailed
		logger.Warn().Err(lastErr).Int("attempt", budget.Attempts).Msg("analysis unreachable, budget exhausted")
	default:
		out.Status = PollTimedOut
		logger.Warn().Int("attempt", budget.Attempts).Msg("analysis timed out")
	}
	return out
}
