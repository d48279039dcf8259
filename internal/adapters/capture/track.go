package capture

import (
	"net"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/core"
)

type trackState int32

const (
	trackOk trackState = iota
	trackMuted
	trackStopped
)

// udpTrack pumps RTP packets from a local UDP socket into a pion local
// track. SetEnabled gates forwarding without touching the socket, so
// unmuting never re-acquires the source.
type udpTrack struct {
	kind  core.TrackKind
	local *webrtc.TrackLocalStaticRTP
	conn  *net.UDPConn
	state atomic.Int32 // zero is trackOk

	// onDead fires once when the source stops on its own.
	onDead func()
}

func (t *udpTrack) Kind() core.TrackKind             { return t.kind }
func (t *udpTrack) RTP() *webrtc.TrackLocalStaticRTP { return t.local }

func (t *udpTrack) SetEnabled(enabled bool) {
	if trackState(t.state.Load()) == trackStopped {
		return
	}
	if enabled {
		t.state.Store(int32(trackOk))
	} else {
		t.state.Store(int32(trackMuted))
	}
}

func (t *udpTrack) Stop() {
	if trackState(t.state.Swap(int32(trackStopped))) == trackStopped {
		return
	}
	_ = t.conn.Close()
	log.Info().Str("module", "capture").Str("kind", t.kind.String()).Msg("track stopped")
}

// loop reads RTP from the socket and forwards it while the track is
// enabled. A read error with the track still live means the source
// ended externally.
func (t *udpTrack) loop() {
	buf := make([]byte, 1500)
	for {
		n, _, err := t.conn.ReadFrom(buf)
		if err != nil {
			if trackState(t.state.Load()) == trackStopped {
				return
			}
			log.Warn().Err(err).Str("module", "capture").Str("kind", t.kind.String()).Msg("source read error, track ending")
			t.state.Store(int32(trackStopped))
			if t.onDead != nil {
				t.onDead()
			}
			return
		}
		if trackState(t.state.Load()) != trackOk {
			continue
		}
		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		if err := t.local.WriteRTP(pkt); err != nil {
			log.Warn().Err(err).Str("module", "capture").Str("kind", t.kind.String()).Msg("write RTP error")
		}
	}
}
