// Package ws is the signaling relay client: one websocket to the relay
// server carrying join/leave, mesh negotiation and hand-raise events.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/adapters/rtc"
	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrNotJoined    = errors.New("relay not joined")
)

// peerLink is one mesh connection plus what we know about the peer.
type peerLink struct {
	conn   *rtc.Connection
	name   string
	stream *core.RemoteStream
}

// Relay implements core.SignalRelay over a gorilla websocket. The
// mesh negotiation (offer/answer/candidate) stays inside this adapter;
// the controller only sees streams appear and peers leave.
type Relay struct {
	url         string
	rtcCfg      webrtc.Configuration
	localTracks func() []core.LocalTrack

	mu      sync.RWMutex
	conn    *websocket.Conn
	send    chan []byte
	closed  bool
	cancel  context.CancelFunc
	meeting domain.MeetingID
	self    *domain.LocalParticipant
	links   map[domain.ParticipantID]*peerLink

	onRemoteStream func(peer domain.ParticipantID, stream *core.RemoteStream, name string)
	onPeerLeft     func(peer domain.ParticipantID)
	onHandRaise    func(peer domain.ParticipantID, name string, raised bool)
}

// NewRelay builds a relay client. localTracks is consulted whenever a
// new peer connection is negotiated, so it must return the tracks of
// the then-current producer.
func NewRelay(url string, rtcCfg webrtc.Configuration, localTracks func() []core.LocalTrack) *Relay {
	return &Relay{
		url:         url,
		rtcCfg:      rtcCfg,
		localTracks: localTracks,
		links:       make(map[domain.ParticipantID]*peerLink),
	}
}

func (r *Relay) OnRemoteStream(fn func(domain.ParticipantID, *core.RemoteStream, string)) {
	r.onRemoteStream = fn
}

func (r *Relay) OnPeerLeft(fn func(domain.ParticipantID)) { r.onPeerLeft = fn }

func (r *Relay) OnHandRaise(fn func(domain.ParticipantID, string, bool)) { r.onHandRaise = fn }

// JoinRoom dials the relay and announces this participant. Dial or
// announce failure is fatal to the join.
func (r *Relay) JoinRoom(ctx context.Context, meeting domain.MeetingID, self *domain.LocalParticipant) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.mu.Lock()
	r.conn = conn
	r.send = make(chan []byte, 32)
	r.closed = false
	r.cancel = cancel
	r.meeting = meeting
	r.self = self
	r.mu.Unlock()

	go r.writePump(ctx, conn)
	go r.readPump(ctx, conn)

	join := struct {
		Type        string `json:"type"`
		Room        string `json:"room"`
		Participant string `json:"participant"`
		Name        string `json:"name"`
	}{
		Type:        "join",
		Room:        string(meeting),
		Participant: string(self.ID),
		Name:        self.Name,
	}
	if err := r.sendJSON(join); err != nil {
		r.LeaveRoom()
		return fmt.Errorf("announce join: %w", err)
	}
	log.Info().Str("module", "ws").Str("room", string(meeting)).Str("participant", string(self.ID)).Msg("joined relay room")
	return nil
}

// LeaveRoom closes every peer connection and the websocket. Idempotent.
func (r *Relay) LeaveRoom() {
	r.mu.Lock()
	if r.closed || r.conn == nil {
		r.mu.Unlock()
		return
	}
	// Best-effort goodbye; the write pump owns the socket, so the
	// frame goes through the send channel or not at all.
	select {
	case r.send <- []byte(`{"type":"leave"}`):
	default:
	}
	r.closed = true
	conn := r.conn
	cancel := r.cancel
	links := r.links
	r.links = make(map[domain.ParticipantID]*peerLink)
	r.mu.Unlock()

	for _, l := range links {
		l.conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	_ = conn.Close()
	log.Info().Str("module", "ws").Msg("left relay room")
}

// SendHandRaise broadcasts the local hand state to the room.
func (r *Relay) SendHandRaise(raised bool) error {
	r.mu.RLock()
	self := r.self
	r.mu.RUnlock()
	if self == nil {
		return ErrNotJoined
	}
	return r.sendJSON(struct {
		Type        string `json:"type"`
		Participant string `json:"participant"`
		Name        string `json:"name"`
		Raised      bool   `json:"raised"`
	}{
		Type:        "hand",
		Participant: string(self.ID),
		Name:        self.Name,
		Raised:      raised,
	})
}

func (r *Relay) trySend(data []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed || r.send == nil {
		return ErrNotJoined
	}
	select {
	case r.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}
