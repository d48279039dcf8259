package app

import (
	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
)

// SessionState is the read-only view handed to the presentation layer.
// It is a value copy; mutating it has no effect on the session.
type SessionState struct {
	Phase   LifecycleState           `json:"phase"`
	Meeting *domain.Meeting          `json:"meeting,omitempty"`
	Self    *domain.LocalParticipant `json:"self,omitempty"`

	Muted         bool `json:"muted"`
	CameraOff     bool `json:"camera_off"`
	ScreenSharing bool `json:"screen_sharing"`
	HandRaised    bool `json:"hand_raised"`

	RaisedHands []domain.ParticipantID `json:"raised_hands"`
	Peers       []core.PeerEntry       `json:"-"`
	Roster      []domain.Participant   `json:"roster"`
	Chat        []domain.Message       `json:"chat"`

	LocalStream core.Stream `json:"-"`
}

// Snapshot assembles the current view state. Safe to call from any
// goroutine at any lifecycle phase.
func (c *Controller) Snapshot() SessionState {
	c.mu.Lock()
	st := SessionState{
		Phase:      c.state,
		Meeting:    c.meeting,
		Self:       c.self,
		HandRaised: c.handRaised,
	}
	st.RaisedHands = make([]domain.ParticipantID, 0, len(c.raised))
	for id := range c.raised {
		st.RaisedHands = append(st.RaisedHands, id)
	}
	syncer := c.syncer
	c.mu.Unlock()

	st.Muted, st.CameraOff, st.ScreenSharing = c.media.Flags()
	st.LocalStream = c.media.Current()
	st.Peers = c.peers.Snapshot()
	if syncer != nil {
		st.Roster = syncer.Roster()
		st.Chat = syncer.Chat()
	}
	return st
}

// RaisedHandSet reports whether the given participant currently has a
// hand up.
func (c *Controller) RaisedHandSet(id domain.ParticipantID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.raised[id]
	return ok
}
