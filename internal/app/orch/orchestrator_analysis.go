package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/pitchcall/internal/app"
	"github.com/dkeye/pitchcall/internal/domain"
)

func (o *Orchestrator) startAnalysisLocked(gen uint64) {
	ctx, cancel := context.WithCancel(o.ctx)
	o.pollCancel = cancel

	poller := app.NewAnalysisPoller(o.analysis, o.cfg.Poll, func(b domain.PollBudget) {
		o.mu.Lock()
		if gen == o.attempt && o.state == domain.CallStateAnalyzing {
			o.budget = &b
		}
		o.mu.Unlock()
	})
	budget := poller.Budget()
	o.budget = &budget
	o.setStateLocked(domain.CallStateAnalyzing, domain.CallReasonAnalysisStarted)

	go o.runAnalysis(ctx, gen, poller, o.identity.RoomID)
}

func (o *Orchestrator) runAnalysis(ctx context.Context, gen uint64, poller *app.AnalysisPoller, room domain.RoomID) {
	out := poller.Poll(ctx, room)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.attempt || o.state != domain.CallStateAnalyzing {
		return
	}
	o.pollCancel = nil
	o.budget = &out.Budget

	switch out.Status {
	case app.PollResolved:
		res := out.Result
		route := app.ResolvedRoute(room, res)
		o.result = &res
		o.route = &route
		o.setStateLocked(domain.CallStateResolved, domain.CallReasonAnalysisReady)
		o.settleLocked()
	case app.PollTimedOut:
		o.failLocked(domain.CallStateTimedOut, domain.CallReasonAnalysisTimedOut,
			fmt.Errorf("%w after %d attempts", domain.ErrPollTimedOut, out.Budget.Attempts))
	case app.PollFailed:
		o.failLocked(domain.CallStateFailed, domain.CallReasonAnalysisUnreachable, out.LastErr)
	}
	// canceled polls belong to an aborted attempt and are settled by the abort
}
