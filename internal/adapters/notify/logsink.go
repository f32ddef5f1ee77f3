// Package notify delivers controller events to observers: the log and websocket clients.
package notify

import (
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSink writes every controller event to the log.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: log.With().Str("module", "notify").Logger()}
}

func (s *LogSink) CallStateChanged(state domain.CallState, reason domain.CallStateReason) {
	s.logger.Info().Str("state", string(state)).Str("reason", string(reason)).Msg("call state")
}

func (s *LogSink) ParticipantsChanged(participants []domain.Participant, waiting bool) {
	s.logger.Debug().Int("count", len(participants)).Bool("waiting", waiting).Msg("participants")
}

func (s *LogSink) MuteChanged(state domain.MuteState) {
	s.logger.Debug().Bool("muted", state.Muted).Bool("pending", state.Pending).Msg("mute")
}

func (s *LogSink) CallError(code domain.ErrorCode, detail string) {
	s.logger.Error().Str("code", string(code)).Str("detail", detail).Msg("call error")
}
