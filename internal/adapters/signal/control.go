package signal

import "github.com/dkeye/pitchcall/internal/domain"

func (s *session) sendMute(kind domain.TrackKind, muted bool) {
	resp := struct {
		Type  string           `json:"type"`
		Kind  domain.TrackKind `json:"kind"`
		Muted bool             `json:"muted"`
	}{
		Type:  "mute",
		Kind:  kind,
		Muted: muted,
	}
	s.sendJSON(resp)
}
