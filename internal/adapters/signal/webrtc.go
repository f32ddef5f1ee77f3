package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"
)

var errMediaClosed = errors.New("media connection closed")

type candidatePayload struct {
	Type          string  `json:"type"`
	Candidate     string  `json:"candidate"`
	SDPMid        string  `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// negotiate publishes local media: the client offers, the room answers.
func (s *session) negotiate(ctx context.Context) error {
	s.media.OnICECandidate(s.sendCandidate)
	s.media.OnClosed(func() { s.shutdown(errMediaClosed, false) })
	if err := s.media.Start(ctx); err != nil {
		return err
	}

	offer, err := s.media.CreateAndSetOffer()
	if err != nil {
		return err
	}
	s.sendJSON(map[string]string{
		"type": "offer",
		"sdp":  offer.SDP,
	})
	return nil
}

func (s *session) sendCandidate(ci webrtc.ICECandidateInit) {
	msg := candidatePayload{
		Type:          "candidate",
		Candidate:     ci.Candidate,
		SDPMLineIndex: ci.SDPMLineIndex,
	}
	if ci.SDPMid != nil {
		msg.SDPMid = *ci.SDPMid
	}
	s.sendJSON(msg)
}

func (s *session) handleAnswer(data []byte) {
	var p struct {
		SDP string `json:"sdp"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Error().Err(err).Msg("bad answer payload")
		return
	}
	if s.media == nil {
		s.logger.Warn().Msg("answer without media connection")
		return
	}
	if err := s.media.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: p.SDP}); err != nil {
		s.logger.Error().Err(err).Msg("webrtc apply answer")
		return
	}

	s.mu.Lock()
	s.answered = true
	pending := s.pendingIC
	s.pendingIC = nil
	s.mu.Unlock()
	for _, ci := range pending {
		s.addCandidate(ci)
	}
}

// handleCandidate buffers remote candidates until the answer is applied.
func (s *session) handleCandidate(data []byte) {
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Error().Err(err).Msg("bad candidate payload")
		return
	}
	if s.media == nil {
		return
	}
	cand := webrtc.ICECandidateInit{
		Candidate:     p.Candidate,
		SDPMLineIndex: p.SDPMLineIndex,
	}
	if p.SDPMid != "" {
		cand.SDPMid = &p.SDPMid
	}

	s.mu.Lock()
	if !s.answered {
		s.pendingIC = append(s.pendingIC, cand)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.addCandidate(cand)
}

func (s *session) addCandidate(ci webrtc.ICECandidateInit) {
	if err := s.media.AddICECandidate(ci); err != nil {
		s.logger.Error().Err(err).Msg("add ice candidate")
	}
}
