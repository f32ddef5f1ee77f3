package app

import (
	"sort"
	"sync"

	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/rs/zerolog/log"
)

// MembershipTracker is the only writer of the participant map.
// It never fails on partial data; unknown identities are created on first sight.
type MembershipTracker struct {
	mu        sync.RWMutex
	local     string
	members   map[string]*domain.Participant
	seq       uint64
	assistant domain.AssistantState
	notify    func(participants []domain.Participant, waiting bool)
}

func NewMembershipTracker(notify func(participants []domain.Participant, waiting bool)) *MembershipTracker {
	return &MembershipTracker{
		members:   make(map[string]*domain.Participant),
		assistant: domain.AssistantIdle,
		notify:    notify,
	}
}

// SetLocalIdentity marks which identity is this client. Records seen earlier are re-tagged
// and the local record is created if the room never listed it.
func (t *MembershipTracker) SetLocalIdentity(identity string) {
	t.mu.Lock()
	t.local = identity
	for id, p := range t.members {
		p.IsLocal = id == identity
	}
	if identity != "" {
		t.getOrCreateLocked(identity)
	}
	t.mu.Unlock()
	log.Info().Str("module", "app.membership").Str("local", identity).Msg("local identity bound")
	t.changed()
}

func (t *MembershipTracker) OnParticipantJoined(identity, name string) {
	if identity == "" {
		return
	}
	t.mu.Lock()
	p := t.getOrCreateLocked(identity)
	if name != "" {
		p.DisplayName = name
	}
	t.seq++
	p.JoinSeq = t.seq
	t.mu.Unlock()
	log.Info().Str("module", "app.membership").Str("identity", identity).Msg("participant joined")
	t.changed()
}

// OnParticipantLeft ignores the local identity; the local record lives until Reset.
func (t *MembershipTracker) OnParticipantLeft(identity string) {
	t.mu.Lock()
	_, ok := t.members[identity]
	ok = ok && identity != t.local
	if ok {
		delete(t.members, identity)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	log.Info().Str("module", "app.membership").Str("identity", identity).Msg("participant left")
	t.changed()
}

// OnTrackPublished treats a muted video publication as no video.
func (t *MembershipTracker) OnTrackPublished(identity string, kind domain.TrackKind, muted bool) {
	if identity == "" {
		return
	}
	t.mu.Lock()
	p := t.getOrCreateLocked(identity)
	switch kind {
	case domain.TrackKindVideo:
		p.HasVideo = !muted
	case domain.TrackKindAudio:
		p.AudioMuted = muted
	}
	t.mu.Unlock()
	log.Debug().Str("module", "app.membership").Str("identity", identity).Str("kind", string(kind)).Bool("muted", muted).Msg("track published")
	t.changed()
}

func (t *MembershipTracker) OnTrackUnpublished(identity string, kind domain.TrackKind) {
	t.mu.Lock()
	p, ok := t.members[identity]
	if ok {
		switch kind {
		case domain.TrackKindVideo:
			p.HasVideo = false
		case domain.TrackKindAudio:
			p.AudioMuted = true
			p.IsSpeaking = false
		}
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	log.Debug().Str("module", "app.membership").Str("identity", identity).Str("kind", string(kind)).Msg("track unpublished")
	t.changed()
}

func (t *MembershipTracker) OnSpeakingChanged(identity string, speaking bool) {
	t.mu.Lock()
	p, ok := t.members[identity]
	if ok {
		p.IsSpeaking = speaking
	}
	t.mu.Unlock()
	if ok {
		t.changed()
	}
}

func (t *MembershipTracker) OnAssistantStateChanged(state domain.AssistantState) {
	t.mu.Lock()
	t.assistant = state
	t.mu.Unlock()
	t.changed()
}

// Counterpart is the most recently joined non-local participant.
func (t *MembershipTracker) Counterpart() (domain.Participant, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := t.counterpartLocked()
	if p == nil {
		return domain.Participant{}, false
	}
	out := *p
	out.Role = domain.RoleCounterpart
	if out.DisplayName == "" {
		out.DisplayName = out.Label()
	}
	return out, true
}

// CounterpartSpeaking ORs the counterpart's own activity with the aggregate assistant state.
func (t *MembershipTracker) CounterpartSpeaking() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.assistant == domain.AssistantSpeaking {
		return true
	}
	p := t.counterpartLocked()
	return p != nil && p.IsSpeaking
}

func (t *MembershipTracker) LocalSpeaking() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.members[t.local]
	return ok && p.IsSpeaking
}

// Waiting is true while no counterpart is present.
func (t *MembershipTracker) Waiting() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counterpartLocked() == nil
}

func (t *MembershipTracker) AssistantState() domain.AssistantState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.assistant
}

// Snapshot returns records in join order with roles assigned.
func (t *MembershipTracker) Snapshot() []domain.Participant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *MembershipTracker) Reset() {
	t.mu.Lock()
	t.local = ""
	t.members = make(map[string]*domain.Participant)
	t.seq = 0
	t.assistant = domain.AssistantIdle
	t.mu.Unlock()
}

func (t *MembershipTracker) getOrCreateLocked(identity string) *domain.Participant {
	if p, ok := t.members[identity]; ok {
		return p
	}
	t.seq++
	p := &domain.Participant{
		Identity: identity,
		IsLocal:  identity == t.local,
		JoinSeq:  t.seq,
	}
	t.members[identity] = p
	return p
}

func (t *MembershipTracker) counterpartLocked() *domain.Participant {
	var best *domain.Participant
	for _, p := range t.members {
		if p.IsLocal {
			continue
		}
		if best == nil || p.JoinSeq > best.JoinSeq {
			best = p
		}
	}
	return best
}

func (t *MembershipTracker) snapshotLocked() []domain.Participant {
	cp := t.counterpartLocked()
	out := make([]domain.Participant, 0, len(t.members))
	for _, p := range t.members {
		rec := *p
		switch {
		case rec.IsLocal:
			rec.Role = domain.RoleLocal
		case p == cp:
			rec.Role = domain.RoleCounterpart
		default:
			rec.Role = domain.RoleObserver
		}
		if rec.DisplayName == "" {
			rec.DisplayName = rec.Label()
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinSeq < out[j].JoinSeq })
	return out
}

func (t *MembershipTracker) changed() {
	if t.notify == nil {
		return
	}
	t.mu.RLock()
	snap := t.snapshotLocked()
	waiting := t.counterpartLocked() == nil
	t.mu.RUnlock()
	t.notify(snap, waiting)
}
