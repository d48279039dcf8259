// Package media owns the local capture state: which stream is the
// current producer and which of its tracks are live. Nothing outside
// this package may stop or replace the producer's tracks.
package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/core"
)

// LocalMedia is the local capture state machine. Exactly one producing
// stream is current at any time; swapping producers acquires the
// replacement first and closes the displaced stream right after the
// install, so a failed acquisition leaves the prior producer intact.
type LocalMedia struct {
	device core.CaptureDevice

	mu            sync.Mutex
	current       core.Stream
	muted         bool
	cameraOff     bool
	screenSharing bool
}

func NewLocalMedia(device core.CaptureDevice) *LocalMedia {
	return &LocalMedia{device: device}
}

// Acquire obtains the initial camera+mic producer.
func (m *LocalMedia) Acquire(ctx context.Context) error {
	s, err := m.device.AcquireCamera(ctx, true, true)
	if err != nil {
		return fmt.Errorf("acquire camera: %w", err)
	}
	m.mu.Lock()
	old := m.current
	m.current = s
	m.screenSharing = false
	m.applyFlagsLocked()
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
	log.Info().Str("module", "media").Str("stream", s.ID()).Msg("camera acquired")
	return nil
}

// ToggleMute flips the mute flag and gates the audio track without
// touching the producer. Returns the new muted state.
func (m *LocalMedia) ToggleMute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = !m.muted
	m.setKindEnabledLocked(core.TrackAudio, !m.muted)
	return m.muted
}

// ToggleCamera flips the camera-off flag and gates the video track.
// Returns the new camera-off state.
func (m *LocalMedia) ToggleCamera() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cameraOff = !m.cameraOff
	m.setKindEnabledLocked(core.TrackVideo, !m.cameraOff)
	return m.cameraOff
}

// SwapToScreen replaces the camera producer with a screen capture
// stream. The displaced camera stream is discarded, not held in
// reserve. Returns the new producer so the caller can watch its end.
func (m *LocalMedia) SwapToScreen(ctx context.Context) (core.Stream, error) {
	s, err := m.device.AcquireScreen(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire screen: %w", err)
	}
	m.mu.Lock()
	old := m.current
	m.current = s
	m.screenSharing = true
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
	log.Info().Str("module", "media").Str("stream", s.ID()).Msg("screen share started")
	return s, nil
}

// SwapToCamera reverts from screen share to a freshly acquired
// camera+mic producer, reapplying the mute and camera-off gates.
func (m *LocalMedia) SwapToCamera(ctx context.Context) error {
	s, err := m.device.AcquireCamera(ctx, true, true)
	if err != nil {
		return fmt.Errorf("acquire camera: %w", err)
	}
	m.mu.Lock()
	old := m.current
	m.current = s
	m.screenSharing = false
	m.applyFlagsLocked()
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
	log.Info().Str("module", "media").Str("stream", s.ID()).Msg("screen share stopped")
	return nil
}

// ReleaseCurrent stops the producer's tracks. Idempotent.
func (m *LocalMedia) ReleaseCurrent() {
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.screenSharing = false
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Current returns the producing stream, or nil before Acquire /
// after ReleaseCurrent.
func (m *LocalMedia) Current() core.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *LocalMedia) Flags() (muted, cameraOff, screenSharing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted, m.cameraOff, m.screenSharing
}

func (m *LocalMedia) applyFlagsLocked() {
	m.setKindEnabledLocked(core.TrackAudio, !m.muted)
	m.setKindEnabledLocked(core.TrackVideo, !m.cameraOff)
}

func (m *LocalMedia) setKindEnabledLocked(kind core.TrackKind, enabled bool) {
	if m.current == nil {
		return
	}
	for _, t := range m.current.Tracks() {
		if t.Kind() == kind {
			t.SetEnabled(enabled)
		}
	}
}
