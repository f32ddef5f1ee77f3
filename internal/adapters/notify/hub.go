package notify

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const (
	writeWait         = 5 * time.Second
	sendBuffer        = 32
	defaultPingPeriod = 54 * time.Second
	defaultReadLimit  = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsConn struct {
	id   string
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}

type HubOptions struct {
	PingPeriod time.Duration
	ReadLimit  int64
}

// Hub pushes controller events to websocket observers. Publishing never blocks:
// a client that cannot keep up is dropped.
type Hub struct {
	opts HubOptions

	mu      sync.RWMutex
	clients map[*wsConn]struct{}
}

func NewHub(opts HubOptions) *Hub {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaultPingPeriod
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	return &Hub{opts: opts, clients: make(map[*wsConn]struct{})}
}

// ServeWS upgrades the request and sends initial as the first message.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, clientID string, initial domain.Status) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "notify").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(h.opts.ReadLimit)

	c := &wsConn{id: clientID, conn: ws, send: make(chan core.Frame, sendBuffer)}
	h.register(c, initial)
	log.Info().Str("module", "notify").Str("client", clientID).Msg("observer connected")

	go h.writePump(c)
	go h.readPump(c)
}

// register queues the initial status before the client becomes visible to Broadcast.
func (h *Hub) register(c *wsConn, initial domain.Status) {
	h.sendTo(c, statusEvent{Type: "status", Status: initial})
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "notify").Msg("broadcast marshal")
		return
	}
	h.mu.RLock()
	clients := make([]*wsConn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.TrySend(b); err != nil {
			log.Warn().Err(err).Str("module", "notify").Str("client", c.id).Msg("dropping observer")
			h.remove(c)
		}
	}
}

func (h *Hub) sendTo(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "notify").Msg("sendTo marshal")
		return
	}
	_ = c.TrySend(b)
}

func (h *Hub) remove(c *wsConn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

// Close disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsConn]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.Close()
	}
}

func (h *Hub) writePump(c *wsConn) {
	ticker := time.NewTicker(h.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "notify").Str("client", c.id).Msg("writePump write error")
				h.remove(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump only watches for the observer going away.
func (h *Hub) readPump(c *wsConn) {
	defer func() {
		log.Info().Str("module", "notify").Str("client", c.id).Msg("observer disconnected")
		h.remove(c)
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type statusEvent struct {
	Type   string        `json:"type"`
	Status domain.Status `json:"status"`
}

type stateEvent struct {
	Type   string                 `json:"type"`
	State  domain.CallState       `json:"state"`
	Reason domain.CallStateReason `json:"reason"`
}

type participantsEvent struct {
	Type         string               `json:"type"`
	Participants []domain.Participant `json:"participants"`
	Waiting      bool                 `json:"waiting"`
}

type muteEvent struct {
	Type string           `json:"type"`
	Mute domain.MuteState `json:"mute"`
}

type errorEvent struct {
	Type   string           `json:"type"`
	Code   domain.ErrorCode `json:"code"`
	Detail string           `json:"detail,omitempty"`
}

func (h *Hub) CallStateChanged(state domain.CallState, reason domain.CallStateReason) {
	h.Broadcast(stateEvent{Type: "call_state", State: state, Reason: reason})
}

func (h *Hub) ParticipantsChanged(participants []domain.Participant, waiting bool) {
	h.Broadcast(participantsEvent{Type: "participants", Participants: participants, Waiting: waiting})
}

func (h *Hub) MuteChanged(state domain.MuteState) {
	h.Broadcast(muteEvent{Type: "mute", Mute: state})
}

func (h *Hub) CallError(code domain.ErrorCode, detail string) {
	h.Broadcast(errorEvent{Type: "error", Code: code, Detail: detail})
}
