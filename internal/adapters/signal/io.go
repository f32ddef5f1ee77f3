package signal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Type string `json:"type"`
}

// writePump is the only writer on the socket. It exits once the send channel is closed and drained.
func (s *session) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.conn.send:
			if !ok {
				_ = s.conn.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			if err := s.write(data); err != nil {
				s.logger.Error().Err(err).Msg("writePump write error")
				go s.shutdown(fmt.Errorf("write: %w", err), false)
				return
			}
		case <-ticker.C:
			if err := s.write([]byte(`{"type":"ping"}`)); err != nil {
				s.logger.Error().Err(err).Msg("writePump ping error")
				go s.shutdown(fmt.Errorf("ping: %w", err), false)
				return
			}
		}
	}
}

func (s *session) write(data []byte) error {
	if err := s.conn.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) readPump() {
	for {
		_, data, err := s.conn.conn.ReadMessage()
		if err != nil {
			s.shutdown(fmt.Errorf("read: %w", err), false)
			return
		}
		s.handleSignal(data)
	}
}

func (s *session) handleSignal(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Error().Err(err).Msg("bad json")
		return
	}

	switch env.Type {
	case "room_state":
		s.handleRoomState(data)
	case "member_joined":
		s.handleMemberJoined(data)
	case "member_left":
		s.handleMemberLeft(data)
	case "track_published":
		s.handleTrackPublished(data)
	case "track_unpublished":
		s.handleTrackUnpublished(data)
	case "speaking":
		s.handleSpeaking(data)
	case "agent_state":
		s.handleAgentState(data)
	case "answer":
		s.handleAnswer(data)
	case "candidate":
		s.handleCandidate(data)
	case "error":
		s.handleError(data)
	case "pong":
		s.logger.Debug().Msg("pong")
	default:
		s.logger.Warn().Str("type", env.Type).Msg("unknown signal")
	}
}

func (s *session) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("sendJSON marshal")
		return
	}
	if err := s.conn.TrySend(b); err != nil {
		s.logger.Warn().Err(err).Msg("sendJSON dropped")
	}
}
