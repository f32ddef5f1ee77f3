package signal

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

var ErrNoMicrophone = errors.New("no microphone published")

// session is one joined room. It is its own local participant.
type session struct {
	room   domain.RoomID
	conn   *wsSignalConn
	media  core.MediaConnection
	events core.SessionEvents
	cancel context.CancelFunc
	logger zerolog.Logger

	joined chan struct{}
	done   chan struct{}

	mu        sync.Mutex
	local     string
	isJoined  bool
	closed    bool
	err       error
	answered  bool
	pendingIC []webrtc.ICECandidateInit
}

func (s *session) Room() domain.RoomID                     { return s.room }
func (s *session) LocalParticipant() core.LocalParticipant { return s }

func (s *session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

func (s *session) HasMicrophone() bool {
	return s.media != nil && s.media.HasMicrophone()
}

func (s *session) SetMicrophoneEnabled(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.HasMicrophone() {
		return ErrNoMicrophone
	}
	if err := s.media.SetMicrophoneEnabled(enabled); err != nil {
		return err
	}
	s.sendMute(domain.TrackKindAudio, !enabled)
	return nil
}

// Disconnect leaves the room and releases the socket and media. Safe to call twice.
func (s *session) Disconnect() {
	s.shutdown(nil, true)
}

func (s *session) closeErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return ErrConnClosed
	}
	return s.err
}

func (s *session) shutdown(cause error, leave bool) { s.teardown(cause, leave, true) }

// abandon tears down a session that Connect will not hand out. The caller
// reports the failure, so no disconnected event is emitted.
func (s *session) abandon(cause error) { s.teardown(cause, true, false) }

// teardown runs once. The disconnected event fires only for a session that had joined,
// and outside any lock so the receiver may call Disconnect again.
func (s *session) teardown(cause error, leave, notify bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = cause
	wasJoined := s.isJoined && notify
	s.mu.Unlock()

	close(s.done)
	if leave {
		s.sendJSON(envelope{Type: "leave"})
	}
	s.conn.Close()
	s.cancel()
	if s.media != nil {
		s.media.Close()
	}

	if cause != nil {
		s.logger.Warn().Err(cause).Msg("session closed")
	} else {
		s.logger.Info().Msg("session closed")
	}
	if wasJoined {
		s.events.OnConnectionStateChanged(domain.ConnectionDisconnected)
	}
}
