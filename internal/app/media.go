package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/rs/zerolog/log"
)

// MediaControl is the only component allowed to enable or disable the outbound microphone.
// Toggles never queue: a toggle issued while one is pending is rejected.
type MediaControl struct {
	mu     sync.Mutex
	local  core.LocalParticipant
	state  domain.MuteState
	notify func(domain.MuteState)
}

func NewMediaControl(notify func(domain.MuteState)) *MediaControl {
	return &MediaControl{notify: notify}
}

// Attach binds the surface to the local participant of a connected session.
func (m *MediaControl) Attach(local core.LocalParticipant) {
	m.mu.Lock()
	m.local = local
	m.state = domain.MuteState{}
	m.mu.Unlock()
}

// Detach drops the local participant; further toggles are no-ops.
func (m *MediaControl) Detach() {
	m.mu.Lock()
	m.local = nil
	m.state.Pending = false
	m.mu.Unlock()
}

func (m *MediaControl) State() domain.MuteState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MediaControl) ToggleMute(ctx context.Context) (domain.MuteState, error) {
	m.mu.Lock()
	local := m.local
	if local == nil || !local.HasMicrophone() {
		st := m.state
		m.mu.Unlock()
		return st, nil
	}
	if m.state.Pending {
		st := m.state
		m.mu.Unlock()
		return st, domain.ErrTogglePending
	}
	m.state.Pending = true
	target := !m.state.Muted
	pending := m.state
	m.mu.Unlock()
	m.emit(pending)

	err := local.SetMicrophoneEnabled(ctx, !target)

	m.mu.Lock()
	m.state.Pending = false
	if err == nil {
		m.state.Muted = target
	}
	settled := m.state
	m.mu.Unlock()
	m.emit(settled)

	if err != nil {
		log.Error().Err(err).Str("module", "app.media").Bool("target_muted", target).Msg("mute toggle failed")
		return settled, fmt.Errorf("%w: %v", domain.ErrToggle, err)
	}
	log.Info().Str("module", "app.media").Bool("muted", settled.Muted).Msg("mute toggled")
	return settled, nil
}

func (m *MediaControl) emit(st domain.MuteState) {
	if m.notify != nil {
		m.notify(st)
	}
}
