package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/core"
)

// ToggleMute flips the microphone gate on the current producer. The
// stream itself is not touched.
func (c *Controller) ToggleMute() {
	if !c.activeState() {
		return
	}
	muted := c.media.ToggleMute()
	if muted {
		c.notifier.Notify(core.NoticeInfo, "microphone muted")
	} else {
		c.notifier.Notify(core.NoticeInfo, "microphone unmuted")
	}
	c.notifyChange()
}

// ToggleCamera flips the video gate on the current producer.
func (c *Controller) ToggleCamera() {
	if !c.activeState() {
		return
	}
	off := c.media.ToggleCamera()
	if off {
		c.notifier.Notify(core.NoticeInfo, "camera off")
	} else {
		c.notifier.Notify(core.NoticeInfo, "camera on")
	}
	c.notifyChange()
}

// ToggleScreenShare swaps the producer between camera+mic and screen
// capture. On a failed acquisition the prior producer stays current.
// A screen stream ending on its own triggers the same revert path.
func (c *Controller) ToggleScreenShare(ctx context.Context) error {
	if !c.activeState() {
		return ErrNotActive
	}
	_, _, sharing := c.media.Flags()
	if sharing {
		if err := c.media.SwapToCamera(ctx); err != nil {
			c.notifier.Notify(core.NoticeError, "could not restore camera")
			return fmt.Errorf("stop screen share: %w", err)
		}
		c.notifier.Notify(core.NoticeInfo, "screen sharing stopped")
		c.notifyChange()
		return nil
	}

	s, err := c.media.SwapToScreen(ctx)
	if err != nil {
		c.notifier.Notify(core.NoticeError, "screen share failed")
		return fmt.Errorf("start screen share: %w", err)
	}
	s.OnEnded(func() { c.screenEnded(s.ID()) })
	c.notifier.Notify(core.NoticeInfo, "screen sharing started")
	c.notifyChange()
	return nil
}

// screenEnded reverts to the camera when the screen capture stops from
// outside (OS chrome, source gone). No-op if the session already moved
// on to another producer or left.
func (c *Controller) screenEnded(streamID string) {
	if !c.activeState() {
		return
	}
	cur := c.media.Current()
	if cur == nil || cur.ID() != streamID {
		return
	}
	log.Info().Str("module", "app.session").Str("stream", streamID).Msg("screen capture ended externally, reverting")
	if err := c.media.SwapToCamera(context.Background()); err != nil {
		log.Error().Err(err).Str("module", "app.session").Msg("revert to camera failed")
		c.notifier.Notify(core.NoticeError, "could not restore camera")
		return
	}
	c.notifier.Notify(core.NoticeInfo, "screen sharing stopped")
	c.notifyChange()
}
