package orch

import (
	"context"
	"errors"

	"github.com/dkeye/pitchcall/internal/domain"
)

// ToggleMute flips the outbound microphone. Only valid while connected.
func (o *Orchestrator) ToggleMute(ctx context.Context) (domain.MuteState, error) {
	o.mu.Lock()
	if o.state != domain.CallStateConnected {
		st := o.media.State()
		o.mu.Unlock()
		return st, domain.ErrNotConnected
	}
	o.mu.Unlock()

	st, err := o.media.ToggleMute(ctx)
	if err != nil && !errors.Is(err, domain.ErrTogglePending) {
		o.events.CallError(domain.CodeOf(err), err.Error())
	}
	return st, err
}

// eventBridge routes transport callbacks of one attempt into the tracker.
// Events from a superseded attempt or after the call left the room are dropped.
type eventBridge struct {
	o   *Orchestrator
	gen uint64
}

func (b *eventBridge) live(fn func()) {
	b.o.mu.Lock()
	defer b.o.mu.Unlock()
	if b.gen != b.o.attempt {
		return
	}
	switch b.o.state {
	case domain.CallStateConnecting, domain.CallStateConnected:
		fn()
	}
}

func (b *eventBridge) OnParticipantJoined(identity, name string) {
	b.live(func() { b.o.members.OnParticipantJoined(identity, name) })
}

func (b *eventBridge) OnParticipantLeft(identity string) {
	b.live(func() { b.o.members.OnParticipantLeft(identity) })
}

func (b *eventBridge) OnTrackPublished(identity string, kind domain.TrackKind, muted bool) {
	b.live(func() { b.o.members.OnTrackPublished(identity, kind, muted) })
}

func (b *eventBridge) OnTrackUnpublished(identity string, kind domain.TrackKind) {
	b.live(func() { b.o.members.OnTrackUnpublished(identity, kind) })
}

func (b *eventBridge) OnSpeakingChanged(identity string, speaking bool) {
	b.live(func() { b.o.members.OnSpeakingChanged(identity, speaking) })
}

func (b *eventBridge) OnAssistantStateChanged(state domain.AssistantState) {
	b.live(func() { b.o.members.OnAssistantStateChanged(state) })
}

func (b *eventBridge) OnConnectionStateChanged(state domain.ConnectionState) {
	if state == domain.ConnectionDisconnected {
		b.o.onDisconnected(b.gen)
	}
}
