package core

import (
	"context"

	"github.com/meuser88/huddle/internal/domain"
	"github.com/pion/webrtc/v4"
)

// RemoteStream is an opaque handle to a peer's media tracks.
// Owned by the relay adapter; the registry only holds it for display.
type RemoteStream struct {
	ID     string
	Tracks []*webrtc.TrackRemote
}

// SignalRelay is the out-of-band channel to the other peers. Connection
// negotiation is the adapter's business; the session controller only
// sees the three event hooks and the two outbound calls.
type SignalRelay interface {
	JoinRoom(ctx context.Context, meeting domain.MeetingID, self *domain.LocalParticipant) error
	LeaveRoom()

	SendHandRaise(raised bool) error

	OnRemoteStream(func(peer domain.ParticipantID, stream *RemoteStream, name string))
	OnPeerLeft(func(peer domain.ParticipantID))
	OnHandRaise(func(peer domain.ParticipantID, name string, raised bool))
}
