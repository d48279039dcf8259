package core

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"
)

var (
	ErrPermissionDenied  = errors.New("device permission denied")
	ErrDeviceUnavailable = errors.New("device unavailable")
)

type TrackKind int

const (
	TrackAudio TrackKind = iota
	TrackVideo
)

func (k TrackKind) String() string {
	if k == TrackAudio {
		return "audio"
	}
	return "video"
}

type StreamKind int

const (
	StreamCamera StreamKind = iota
	StreamScreen
)

func (k StreamKind) String() string {
	if k == StreamScreen {
		return "screen"
	}
	return "camera"
}

// LocalTrack is one producing capture track. Enable/disable gates the
// packet flow without releasing the underlying device.
type LocalTrack interface {
	Kind() TrackKind
	// RTP exposes the pion track handed to peer connections.
	RTP() *webrtc.TrackLocalStaticRTP
	SetEnabled(bool)
	// Stop releases the track's device resources. Idempotent.
	Stop()
}

// Stream is one producing capture stream (camera+mic or screen).
// Close stops every track it owns; whoever holds the stream as the
// current producer must Close it before replacing it.
type Stream interface {
	ID() string
	Kind() StreamKind
	Tracks() []LocalTrack
	// OnEnded is invoked once when the source ends on its own
	// (e.g. screen capture stopped from outside).
	OnEnded(func())
	Close()
}

// CaptureDevice acquires producing streams. Implementations must return
// ErrPermissionDenied and ErrDeviceUnavailable distinctly; callers
// present different remediation for each.
type CaptureDevice interface {
	AcquireCamera(ctx context.Context, video, audio bool) (Stream, error)
	AcquireScreen(ctx context.Context) (Stream, error)
}
