package orch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/pitchcall/internal/app"
	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed           = errors.New("call controller closed")
	ErrAttemptAbandoned = errors.New("call attempt abandoned")
)

const defaultConnectTimeout = 15 * time.Second

type Deps struct {
	Issuer    core.CredentialIssuer
	Transport core.Transport
	Analysis  core.AnalysisSource
	// Events must not block and must not call back into the orchestrator.
	Events core.EventSink
	Clock  func() time.Time
}

type Config struct {
	Poll           app.PollerConfig
	ConnectTimeout time.Duration
}

// Orchestrator is the call lifecycle state machine. One instance serves one call screen;
// each Start is a fresh attempt and invalidates anything left from the previous one.
type Orchestrator struct {
	provisioner *app.CredentialProvisioner
	transport   core.Transport
	analysis    core.AnalysisSource
	events      core.EventSink
	members     *app.MembershipTracker
	media       *app.MediaControl
	cfg         Config

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	attempt    uint64
	state      domain.CallState
	reason     domain.CallStateReason
	identity   domain.SessionIdentity
	session    core.Session
	budget     *domain.PollBudget
	result     *domain.AnalysisResult
	route      *domain.Route
	pollCancel context.CancelFunc
	settled    chan struct{}
	isSettled  bool
}

func New(parent context.Context, deps Deps, cfg Config) *Orchestrator {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	events := deps.Events
	if events == nil {
		events = nopSink{}
	}
	ctx, cancel := context.WithCancel(parent)

	o := &Orchestrator{
		provisioner: app.NewCredentialProvisioner(deps.Issuer, deps.Clock),
		transport:   deps.Transport,
		analysis:    deps.Analysis,
		events:      events,
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
		state:       domain.CallStateIdle,
		reason:      domain.CallReasonReady,
	}
	o.members = app.NewMembershipTracker(events.ParticipantsChanged)
	o.media = app.NewMediaControl(events.MuteChanged)
	return o
}

// Status returns a snapshot for the UI. Participants and mute state are only
// reported while connected, the poll budget only while analyzing.
func (o *Orchestrator) Status() domain.Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := domain.Status{
		State:     o.state,
		Reason:    o.reason,
		Room:      o.identity.RoomID,
		AttemptID: o.identity.AttemptID,
		Result:    o.result,
		Route:     o.route,
	}
	switch o.state {
	case domain.CallStateConnected:
		st.Participants = o.members.Snapshot()
		if cp, ok := o.members.Counterpart(); ok {
			st.Counterpart = &cp
		}
		st.CounterpartSpeaking = o.members.CounterpartSpeaking()
		st.LocalSpeaking = o.members.LocalSpeaking()
		st.Assistant = o.members.AssistantState()
		st.Waiting = o.members.Waiting()
		st.Mute = o.media.State()
	case domain.CallStateAnalyzing:
		if o.budget != nil {
			b := *o.budget
			st.Poll = &b
		}
	}
	return st
}

func (o *Orchestrator) State() domain.CallState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Wait blocks until the current attempt settles into a terminal state.
func (o *Orchestrator) Wait(ctx context.Context) (domain.Status, error) {
	o.mu.Lock()
	ch := o.settled
	o.mu.Unlock()
	if ch == nil {
		return o.Status(), nil
	}
	select {
	case <-ch:
		return o.Status(), nil
	case <-ctx.Done():
		return o.Status(), ctx.Err()
	}
}

func (o *Orchestrator) setStateLocked(state domain.CallState, reason domain.CallStateReason) {
	prev := o.state
	o.state = state
	o.reason = reason
	log.Info().
		Str("module", "app.orch").
		Str("room", string(o.identity.RoomID)).
		Uint64("attempt", o.attempt).
		Str("from", string(prev)).
		Str("to", string(state)).
		Str("reason", string(reason)).
		Msg("call state changed")
	o.events.CallStateChanged(state, reason)
}

// failLocked moves the attempt into a terminal failure that carries a message and recovery actions.
func (o *Orchestrator) failLocked(state domain.CallState, reason domain.CallStateReason, err error) {
	route := app.FailureRoute(reason)
	o.route = &route
	if err != nil {
		o.events.CallError(domain.CodeOf(err), err.Error())
	}
	o.setStateLocked(state, reason)
	o.settleLocked()
}

func (o *Orchestrator) settleLocked() {
	if o.settled != nil && !o.isSettled {
		close(o.settled)
		o.isSettled = true
	}
}

type nopSink struct{}

func (nopSink) CallStateChanged(domain.CallState, domain.CallStateReason) {}
func (nopSink) ParticipantsChanged([]domain.Participant, bool)            {}
func (nopSink) MuteChanged(domain.MuteState)                              {}
func (nopSink) CallError(domain.ErrorCode, string)                        {}
