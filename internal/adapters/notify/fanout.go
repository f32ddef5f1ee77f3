package notify

import (
	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
)

// Fanout forwards each event to every sink in order.
type Fanout []core.EventSink

func (f Fanout) CallStateChanged(state domain.CallState, reason domain.CallStateReason) {
	for _, s := range f {
		s.CallStateChanged(state, reason)
	}
}

func (f Fanout) ParticipantsChanged(participants []domain.Participant, waiting bool) {
	for _, s := range f {
		s.ParticipantsChanged(participants, waiting)
	}
}

func (f Fanout) MuteChanged(state domain.MuteState) {
	for _, s := range f {
		s.MuteChanged(state)
	}
}

func (f Fanout) CallError(code domain.ErrorCode, detail string) {
	for _, s := range f {
		s.CallError(code, detail)
	}
}
