package core

import (
	"context"

	"github.com/dkeye/pitchcall/internal/domain"
)

// Transport is the real-time session capability. Exactly one Connect per call attempt;
// ctx bounds the handshake only, the session lives until Disconnect.
type Transport interface {
	Connect(ctx context.Context, cred domain.JoinCredential, events SessionEvents) (Session, error)
}

// Session is a live connection to one room.
type Session interface {
	Room() domain.RoomID
	LocalParticipant() LocalParticipant
	// Disconnect releases media devices and the signalling channel. Safe to call twice.
	Disconnect()
}

type LocalParticipant interface {
	Identity() string
	HasMicrophone() bool
	SetMicrophoneEnabled(ctx context.Context, enabled bool) error
}

// SessionEvents receives transport notifications. Implementations must not block.
type SessionEvents interface {
	OnParticipantJoined(identity, name string)
	OnParticipantLeft(identity string)
	OnTrackPublished(identity string, kind domain.TrackKind, muted bool)
	OnTrackUnpublished(identity string, kind domain.TrackKind)
	OnSpeakingChanged(identity string, speaking bool)
	OnAssistantStateChanged(state domain.AssistantState)
	OnConnectionStateChanged(state domain.ConnectionState)
}
