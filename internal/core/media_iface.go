package core

import (
	"context"

	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/pion/webrtc/v4"
)

// MediaConnection is the client side of one peer connection.
// It owns the local camera and microphone publications.
type MediaConnection interface {
	// Start configures internal callbacks and binds the connection lifetime to ctx.
	Start(ctx context.Context) error
	// Close should stop all underlying media resources.
	Close()
	IsClosed() bool
	// CreateAndSetOffer returns the local SDP offer.
	CreateAndSetOffer() (*webrtc.SessionDescription, error)
	ApplyAnswer(webrtc.SessionDescription) error
	// AddICECandidate applies a remote ICE candidate.
	AddICECandidate(webrtc.ICECandidateInit) error
	// OnICECandidate sets a callback for newly gathered local ICE candidates.
	OnICECandidate(func(webrtc.ICECandidateInit))
	// OnClosed sets a callback fired once when the peer connection fails or closes.
	OnClosed(func())

	HasMicrophone() bool
	HasCamera() bool
	// SetMicrophoneEnabled swaps the outbound audio track in or out.
	SetMicrophoneEnabled(enabled bool) error
}

type MediaFactory interface {
	NewMediaConnection(room domain.RoomID) (MediaConnection, error)
}
