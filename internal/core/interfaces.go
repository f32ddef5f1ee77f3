package core

import (
	"context"

	"github.com/dkeye/pitchcall/internal/domain"
)

//go:generate mockgen -destination=mocks/mock_backend.go -package=mocks github.com/dkeye/pitchcall/internal/core CredentialIssuer,AnalysisSource

// CredentialIssuer exchanges an identity and room for a join credential.
type CredentialIssuer interface {
	IssueToken(ctx context.Context, identity domain.UserID, room domain.RoomID) (domain.JoinCredential, error)
}

// AnalysisSource looks up the analysis for a finished call.
// It returns domain.ErrAnalysisNotReady, an error matching domain.ErrMalformedResult,
// or an error wrapping domain.ErrPollRequest when the request itself failed.
type AnalysisSource interface {
	FetchAnalysis(ctx context.Context, room domain.RoomID) (domain.AnalysisResult, error)
}

// EventSink emits controller state/events to the UI.
type EventSink interface {
	CallStateChanged(state domain.CallState, reason domain.CallStateReason)
	ParticipantsChanged(participants []domain.Participant, waiting bool)
	MuteChanged(state domain.MuteState)
	CallError(code domain.ErrorCode, detail string)
}
