// Package capture implements the capture device on local UDP RTP
// ingest: an external producer (ffmpeg, gstreamer) pushes RTP to the
// configured ports and each port becomes one local track.
package capture

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/core"
)

// Ports configures where the local producers push RTP.
type Ports struct {
	CameraAudio int
	CameraVideo int
	ScreenVideo int
}

type UDPDevice struct {
	ports Ports
}

func NewUDPDevice(ports Ports) *UDPDevice {
	return &UDPDevice{ports: ports}
}

func (d *UDPDevice) AcquireCamera(ctx context.Context, video, audio bool) (core.Stream, error) {
	s := newStream(core.StreamCamera)
	if audio {
		t, err := d.openTrack(core.TrackAudio, d.ports.CameraAudio)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.add(t)
	}
	if video {
		t, err := d.openTrack(core.TrackVideo, d.ports.CameraVideo)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.add(t)
	}
	s.startTracks()
	return s, nil
}

func (d *UDPDevice) AcquireScreen(ctx context.Context) (core.Stream, error) {
	s := newStream(core.StreamScreen)
	t, err := d.openTrack(core.TrackVideo, d.ports.ScreenVideo)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.add(t)
	s.startTracks()
	return s, nil
}

func (d *UDPDevice) openTrack(kind core.TrackKind, port int) (*udpTrack, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port})
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("listen :%d: %w", port, core.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("listen :%d: %w", port, core.ErrDeviceUnavailable)
	}

	codec := webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
	if kind == core.TrackAudio {
		codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	}
	local, err := webrtc.NewTrackLocalStaticRTP(codec, kind.String(), "huddle")
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("local track: %w", err)
	}
	log.Info().Str("module", "capture").Str("kind", kind.String()).Int("port", port).Msg("track source open")
	return &udpTrack{kind: kind, local: local, conn: conn}, nil
}

// udpStream owns a set of udpTracks. Ended fires once, either when any
// source track dies on its own; closing the stream ourselves does not
// count as ending.
type udpStream struct {
	id     string
	kind   core.StreamKind
	tracks []core.LocalTrack

	mu      sync.Mutex
	closed  bool
	ended   bool
	onEnded func()
}

func newStream(kind core.StreamKind) *udpStream {
	return &udpStream{id: uuid.NewString(), kind: kind}
}

func (s *udpStream) add(t *udpTrack) {
	t.onDead = s.sourceEnded
	s.tracks = append(s.tracks, t)
}

func (s *udpStream) startTracks() {
	for _, t := range s.tracks {
		go t.(*udpTrack).loop()
	}
}

func (s *udpStream) ID() string                { return s.id }
func (s *udpStream) Kind() core.StreamKind     { return s.kind }
func (s *udpStream) Tracks() []core.LocalTrack { return s.tracks }

func (s *udpStream) OnEnded(fn func()) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}

func (s *udpStream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	for _, t := range s.tracks {
		t.Stop()
	}
	log.Info().Str("module", "capture").Str("stream", s.id).Str("kind", s.kind.String()).Msg("stream closed")
}

func (s *udpStream) sourceEnded() {
	s.mu.Lock()
	if s.closed || s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	fn := s.onEnded
	s.mu.Unlock()
	for _, t := range s.tracks {
		t.Stop()
	}
	if fn != nil {
		fn()
	}
}
