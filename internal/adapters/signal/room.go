package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/pitchcall/internal/domain"
)

type publishOptions struct {
	Audio   bool         `json:"audio"`
	Video   bool         `json:"video"`
	Capture AudioCapture `json:"capture"`
}

type joinMessage struct {
	Type    string         `json:"type"`
	Token   string         `json:"token"`
	Room    string         `json:"room"`
	Publish publishOptions `json:"publish"`
}

type wireUser struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type wireTrack struct {
	Kind  domain.TrackKind `json:"kind"`
	Muted bool             `json:"muted"`
}

type wireMember struct {
	wireUser
	Tracks []wireTrack `json:"tracks,omitempty"`
}

func (s *session) handleRoomState(data []byte) {
	var p struct {
		Self    wireUser     `json:"self"`
		Members []wireMember `json:"members"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Error().Err(err).Msg("bad room_state payload")
		return
	}

	s.mu.Lock()
	if s.isJoined {
		s.mu.Unlock()
		s.logger.Warn().Msg("duplicate room_state ignored")
		return
	}
	s.local = p.Self.ID
	s.mu.Unlock()

	for _, m := range p.Members {
		s.events.OnParticipantJoined(m.ID, m.Name)
		for _, tr := range m.Tracks {
			s.events.OnTrackPublished(m.ID, tr.Kind, tr.Muted)
		}
	}

	s.mu.Lock()
	s.isJoined = true
	s.mu.Unlock()
	close(s.joined)

	s.logger.Info().Str("self", p.Self.ID).Int("count", len(p.Members)).Msg("room state")
	s.events.OnConnectionStateChanged(domain.ConnectionConnected)
}

func (s *session) handleMemberJoined(data []byte) {
	var p struct {
		User wireUser `json:"user"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Error().Err(err).Msg("bad member_joined payload")
		return
	}
	s.logger.Info().Str("identity", p.User.ID).Msg("member joined")
	s.events.OnParticipantJoined(p.User.ID, p.User.Name)
}

func (s *session) handleMemberLeft(data []byte) {
	var p struct {
		User wireUser `json:"user"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Error().Err(err).Msg("bad member_left payload")
		return
	}
	s.logger.Info().Str("identity", p.User.ID).Msg("member left")
	s.events.OnParticipantLeft(p.User.ID)
}

type trackPayload struct {
	UserID string           `json:"user_id"`
	Kind   domain.TrackKind `json:"kind"`
	Muted  bool             `json:"muted"`
}

func (s *session) handleTrackPublished(data []byte) {
	var p trackPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Error().Err(err).Msg("bad track_published payload")
		return
	}
	s.events.OnTrackPublished(p.UserID, p.Kind, p.Muted)
}

func (s *session) handleTrackUnpublished(data []byte) {
	var p trackPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Error().Err(err).Msg("bad track_unpublished payload")
		return
	}
	s.events.OnTrackUnpublished(p.UserID, p.Kind)
}

func (s *session) handleSpeaking(data []byte) {
	var p struct {
		UserID   string `json:"user_id"`
		Speaking bool   `json:"speaking"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Error().Err(err).Msg("bad speaking payload")
		return
	}
	s.events.OnSpeakingChanged(p.UserID, p.Speaking)
}

func (s *session) handleAgentState(data []byte) {
	var p struct {
		State domain.AssistantState `json:"state"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Error().Err(err).Msg("bad agent_state payload")
		return
	}
	s.events.OnAssistantStateChanged(p.State)
}

// handleError rejects the join when it arrives first, otherwise it ends the session.
func (s *session) handleError(data []byte) {
	var p struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(data, &p)

	s.mu.Lock()
	joined := s.isJoined
	s.mu.Unlock()
	if !joined {
		s.shutdown(fmt.Errorf("%w: %s", ErrJoinRejected, p.Error), false)
		return
	}
	s.shutdown(fmt.Errorf("server error: %s", p.Error), false)
}
