package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
)

// ToggleHandRaise flips the local hand-raise flag and broadcasts the
// new state to the peers. Never persisted to the store.
func (c *Controller) ToggleHandRaise() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.handRaised = !c.handRaised
	raised := c.handRaised
	self := c.self
	if raised {
		c.raised[self.ID] = struct{}{}
	} else {
		delete(c.raised, self.ID)
	}
	c.mu.Unlock()

	if err := c.relay.SendHandRaise(raised); err != nil {
		log.Warn().Err(err).Str("module", "app.session").Msg("hand-raise send failed")
	}
	if raised {
		c.notifier.Notify(core.NoticeInfo, "hand raised")
	} else {
		c.notifier.Notify(core.NoticeInfo, "hand lowered")
	}
	c.notifyChange()
}

// SendChat inserts a message row and forces an out-of-cycle refresh so
// the sender sees it without waiting for the next poll tick. Empty or
// whitespace-only text is a no-op.
func (c *Controller) SendChat(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	meeting := c.meeting
	self := c.self
	syncer := c.syncer
	c.mu.Unlock()

	sender := string(self.ID)
	msg := &domain.Message{
		ID:         domain.MessageID(uuid.NewString()),
		MeetingID:  meeting.ID,
		SenderID:   &sender,
		SenderName: self.Name,
		Content:    text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.store.InsertMessage(ctx, msg); err != nil {
		c.notifier.Notify(core.NoticeError, "message not sent")
		return fmt.Errorf("insert message: %w", err)
	}
	syncer.ForceRefresh(ctx)
	return nil
}

func (c *Controller) handleRemoteStream(peer domain.ParticipantID, stream *core.RemoteStream, name string) {
	c.peers.Upsert(peer, stream, name)
	c.notifyChange()
}

// handlePeerLeft drops the peer from the registry and the hand-raise
// set, even if it had a hand up.
func (c *Controller) handlePeerLeft(peer domain.ParticipantID) {
	c.peers.Remove(peer)
	c.mu.Lock()
	delete(c.raised, peer)
	c.mu.Unlock()
	c.notifyChange()
}

func (c *Controller) handleHandRaise(peer domain.ParticipantID, name string, raised bool) {
	c.mu.Lock()
	if raised {
		c.raised[peer] = struct{}{}
	} else {
		delete(c.raised, peer)
	}
	c.mu.Unlock()
	if name == "" {
		name = "a participant"
	}
	if raised {
		c.notifier.Notify(core.NoticeInfo, name+" raised a hand")
	}
	c.notifyChange()
}
