// Package signal is the websocket signalling client for a media room.
// It joins with a credential, negotiates the peer connection and turns
// room messages into core.SessionEvents.
package signal

import (
	"context"
	"errors"
	"fmt"
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
	ErrJoinRejected = errors.New("join rejected")
)

const (
	defaultPingPeriod = 54 * time.Second
	defaultReadLimit  = 32768
	writeWait         = 5 * time.Second
	sendBuffer        = 32
)

// AudioCapture mirrors the capture constraints requested for the microphone.
type AudioCapture struct {
	EchoCancellation bool `json:"echo_cancellation"`
	NoiseSuppression bool `json:"noise_suppression"`
	AutoGainControl  bool `json:"auto_gain_control"`
}

func DefaultAudioCapture() AudioCapture {
	return AudioCapture{EchoCancellation: true, NoiseSuppression: true, AutoGainControl: true}
}

type Options struct {
	PingPeriod time.Duration
	ReadLimit  int64
	Audio      AudioCapture
	Dialer     *websocket.Dialer
}

// Transport implements core.Transport. Media may be nil for a signalling-only session.
type Transport struct {
	media core.MediaFactory
	opts  Options
}

func NewTransport(media core.MediaFactory, opts Options) *Transport {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = defaultPingPeriod
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Transport{media: media, opts: opts}
}

type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(conn *websocket.Conn) *wsSignalConn {
	return &wsSignalConn{conn: conn, send: make(chan core.Frame, sendBuffer)}
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
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

// Connect dials the endpoint, sends join and blocks until the room state arrives.
// ctx bounds the handshake only.
func (t *Transport) Connect(ctx context.Context, cred domain.JoinCredential, events core.SessionEvents) (core.Session, error) {
	logger := log.With().Str("module", "signal").Str("room", string(cred.IssuedFor)).Logger()

	ws, resp, err := t.opts.Dialer.DialContext(ctx, cred.EndpointURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", cred.EndpointURL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", cred.EndpointURL, err)
	}
	ws.SetReadLimit(t.opts.ReadLimit)

	var mc core.MediaConnection
	if t.media != nil {
		if mc, err = t.media.NewMediaConnection(cred.IssuedFor); err != nil {
			_ = ws.Close()
			return nil, fmt.Errorf("media connection: %w", err)
		}
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		room:   cred.IssuedFor,
		conn:   newWsSignalConn(ws),
		media:  mc,
		events: events,
		cancel: cancel,
		joined: make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}

	go s.writePump(t.opts.PingPeriod)
	go s.readPump()

	s.sendJSON(joinMessage{
		Type:    "join",
		Token:   cred.Token,
		Room:    string(cred.IssuedFor),
		Publish: publishOptions{Audio: mc != nil && mc.HasMicrophone(), Video: mc != nil && mc.HasCamera(), Capture: t.opts.Audio},
	})

	select {
	case <-s.joined:
	case <-s.done:
		err := s.closeErr()
		s.abandon(err)
		return nil, err
	case <-ctx.Done():
		err := fmt.Errorf("waiting for room state: %w", ctx.Err())
		s.abandon(err)
		return nil, err
	}

	if mc != nil {
		if err := s.negotiate(sessCtx); err != nil {
			err = fmt.Errorf("negotiate media: %w", err)
			s.abandon(err)
			return nil, err
		}
	}
	logger.Info().Str("local", s.Identity()).Msg("connected")
	return s, nil
}

// Close stops accepting frames. The write pump flushes what is queued and closes the socket.
func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}
