package rtc

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/pitchcall/internal/core"
	"github.com/dkeye/pitchcall/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const streamID = "pitchcall"

var ErrClosed = errors.New("peer connection closed")

type Options struct {
	ICEServers []string
	// Video publishes a camera track next to the microphone.
	Video bool
}

func DefaultWebRTCConfig(iceServers []string) webrtc.Configuration {
	if len(iceServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: iceServers}},
	}
}

// Factory builds one client peer connection per call attempt.
type Factory struct {
	opts Options
}

func NewFactory(opts Options) *Factory {
	return &Factory{opts: opts}
}

func (f *Factory) NewMediaConnection(room domain.RoomID) (core.MediaConnection, error) {
	return NewWebRTCConnection(DefaultWebRTCConfig(f.opts.ICEServers), room, f.opts.Video)
}

// WebRTCConnection publishes the local microphone (and optionally camera) to the room.
// Samples are produced elsewhere; this type only owns the publications.
type WebRTCConnection struct {
	pc   *webrtc.PeerConnection
	room domain.RoomID

	audio       *webrtc.TrackLocalStaticSample
	audioSender *webrtc.RTPSender
	video       *webrtc.TrackLocalStaticSample

	mu       sync.Mutex
	closed   bool
	micOn    bool
	onICE    func(webrtc.ICECandidateInit)
	onClosed func()
	cancel   context.CancelFunc
}

func NewWebRTCConnection(cfg webrtc.Configuration, room domain.RoomID, video bool) (*WebRTCConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &WebRTCConnection{pc: pc, room: room, micOn: true}

	c.audio, err = webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "microphone", streamID)
	if err != nil {
		_ = pc.Close()
		return nil, err
	}
	if c.audioSender, err = pc.AddTrack(c.audio); err != nil {
		_ = pc.Close()
		return nil, err
	}

	if video {
		c.video, err = webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "camera", streamID)
		if err != nil {
			_ = pc.Close()
			return nil, err
		}
		if _, err = pc.AddTrack(c.video); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *WebRTCConnection) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "webrtc").Str("room", string(c.room)).Str("ice_state", s.String()).Msg("ICE state")
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("room", string(c.room)).Str("peer_connection_state", s.String()).Msg("Peer state")
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed {
			c.fireClosed()
		}
	})

	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		c.mu.Lock()
		fn := c.onICE
		c.mu.Unlock()
		if cand != nil && fn != nil {
			fn(cand.ToJSON())
		}
	})

	// RTCP has to be drained for interceptors to work.
	go drainRTCP(ctx, c.audioSender)
	return nil
}

func drainRTCP(ctx context.Context, sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for ctx.Err() == nil {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// CreateAndSetOffer waits for ICE gathering so the offer carries every candidate.
func (c *WebRTCConnection) CreateAndSetOffer() (*webrtc.SessionDescription, error) {
	if c.IsClosed() {
		return nil, ErrClosed
	}
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	<-gatherComplete

	return c.pc.LocalDescription(), nil
}

func (c *WebRTCConnection) ApplyAnswer(answer webrtc.SessionDescription) error {
	if c.IsClosed() {
		return ErrClosed
	}
	return c.pc.SetRemoteDescription(answer)
}

func (c *WebRTCConnection) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

// OnClosed sets the callback fired once when the connection fails or is closed.
func (c *WebRTCConnection) OnClosed(fn func()) {
	c.mu.Lock()
	c.onClosed = fn
	c.mu.Unlock()
}

func (c *WebRTCConnection) HasMicrophone() bool { return c.audioSender != nil }
func (c *WebRTCConnection) HasCamera() bool     { return c.video != nil }

func (c *WebRTCConnection) microphoneEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.micOn
}

// SetMicrophoneEnabled swaps the outbound audio track. A nil track keeps the
// transceiver negotiated while sending nothing.
func (c *WebRTCConnection) SetMicrophoneEnabled(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.micOn == enabled {
		return nil
	}
	var track webrtc.TrackLocal
	if enabled {
		track = c.audio
	}
	if err := c.audioSender.ReplaceTrack(track); err != nil {
		return err
	}
	c.micOn = enabled
	log.Info().Str("module", "webrtc").Str("room", string(c.room)).Bool("enabled", enabled).Msg("microphone toggled")
	return nil
}

func (c *WebRTCConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *WebRTCConnection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("room", string(c.room)).Msg("close error")
	} else {
		log.Info().Str("module", "webrtc").Str("room", string(c.room)).Msg("closed")
	}
	c.fireClosed()
}

func (c *WebRTCConnection) fireClosed() {
	c.mu.Lock()
	fn := c.onClosed
	c.onClosed = nil
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
