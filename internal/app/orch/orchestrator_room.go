package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/pitchcall/internal/app"
	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/rs/zerolog/log"
)

// Start provisions a credential for user and connects the transport.
// It returns once the call is connected or the attempt has failed.
func (o *Orchestrator) Start(ctx context.Context, user domain.UserID) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if !o.state.Terminal() {
		o.mu.Unlock()
		return domain.ErrCallInProgress
	}
	o.attempt++
	gen := o.attempt
	o.identity = domain.SessionIdentity{}
	o.session = nil
	o.budget = nil
	o.result = nil
	o.route = nil
	o.settled = make(chan struct{})
	o.isSettled = false
	o.members.Reset()

	if user == "" {
		o.failLocked(domain.CallStateFailed, domain.CallReasonIdentityMissing, domain.ErrIdentityMissing)
		o.mu.Unlock()
		return domain.ErrIdentityMissing
	}
	o.setStateLocked(domain.CallStateProvisioning, domain.CallReasonIdentityResolved)
	o.mu.Unlock()

	sid, cred, err := o.provisioner.Provision(ctx, user)

	o.mu.Lock()
	if gen != o.attempt {
		o.mu.Unlock()
		return ErrAttemptAbandoned
	}
	if err != nil {
		reason := domain.CallReasonProvisioningFailed
		if errors.Is(err, domain.ErrIdentityMissing) {
			reason = domain.CallReasonIdentityMissing
		}
		o.failLocked(domain.CallStateFailed, reason, err)
		o.mu.Unlock()
		return err
	}
	o.identity = sid
	o.setStateLocked(domain.CallStateConnecting, domain.CallReasonCredentialIssued)
	o.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, o.cfg.ConnectTimeout)
	sess, err := o.transport.Connect(connectCtx, cred, &eventBridge{o: o, gen: gen})
	cancel()

	o.mu.Lock()
	if gen != o.attempt || o.state != domain.CallStateConnecting {
		o.mu.Unlock()
		if sess != nil {
			sess.Disconnect()
		}
		if err == nil {
			err = ErrAttemptAbandoned
		}
		return fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err)
		o.failLocked(domain.CallStateFailed, domain.CallReasonConnectFailed, err)
		o.mu.Unlock()
		return err
	}
	o.session = sess
	local := sess.LocalParticipant()
	o.members.SetLocalIdentity(local.Identity())
	o.media.Attach(local)
	o.setStateLocked(domain.CallStateConnected, domain.CallReasonTransportConnected)
	o.mu.Unlock()
	return nil
}

// End is the user's "end call". The transport is torn down before analysis begins;
// this is the only path into Analyzing.
func (o *Orchestrator) End(ctx context.Context) error {
	o.mu.Lock()
	if o.state != domain.CallStateConnected {
		o.mu.Unlock()
		return domain.ErrNotConnected
	}
	gen := o.attempt
	sess := o.session
	o.session = nil
	o.media.Detach()
	o.setStateLocked(domain.CallStateEnding, domain.CallReasonUserEnded)
	o.mu.Unlock()

	if sess != nil {
		sess.Disconnect()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.attempt || o.state != domain.CallStateEnding {
		return ErrAttemptAbandoned
	}
	o.startAnalysisLocked(gen)
	return nil
}

// Abort drops the current attempt: polling is canceled, the transport released,
// and the controller returns to its entry state.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	sess := o.abortLocked()
	o.mu.Unlock()
	if sess != nil {
		sess.Disconnect()
	}
}

// Close tears the controller down for good. No timer or request outlives it.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	sess := o.abortLocked()
	o.closed = true
	o.mu.Unlock()
	o.cancel()
	if sess != nil {
		sess.Disconnect()
	}
}

func (o *Orchestrator) abortLocked() core.Session {
	o.attempt++
	if o.pollCancel != nil {
		o.pollCancel()
		o.pollCancel = nil
	}
	sess := o.session
	o.session = nil
	o.media.Detach()
	o.members.Reset()
	if o.state != domain.CallStateIdle {
		route := app.FailureRoute(domain.CallReasonTornDown)
		o.route = &route
		o.budget = nil
		o.setStateLocked(domain.CallStateIdle, domain.CallReasonTornDown)
	}
	o.settleLocked()
	return sess
}

// onDisconnected handles a transport drop. It is a failure only when it is the cause
// of leaving Connected; once the user has ended the call it is ignored.
func (o *Orchestrator) onDisconnected(gen uint64) {
	o.mu.Lock()
	if gen != o.attempt {
		o.mu.Unlock()
		return
	}
	switch o.state {
	case domain.CallStateConnecting, domain.CallStateConnected:
	default:
		state := o.state
		o.mu.Unlock()
		log.Debug().Str("module", "app.orch").Str("state", string(state)).Msg("disconnect ignored")
		return
	}
	sess := o.session
	o.session = nil
	o.media.Detach()
	o.members.Reset()
	o.events.CallError(domain.ErrorCodeConnection, "transport disconnected")
	o.failLocked(domain.CallStateIdle, domain.CallReasonUnexpectedDisconnect, nil)
	o.mu.Unlock()

	if sess != nil {
		sess.Disconnect()
	}
}
