// Package app wires the session lifecycle: the controller owns the
// media machine, the peer registry, the signaling relay and the store
// synchronizer, and exposes the one surface the presentation layer uses.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
	"github.com/meuser88/huddle/internal/media"
)

var (
	ErrAlreadyJoined = errors.New("session already joined")
	ErrJoinAborted   = errors.New("join aborted by leave")
	ErrNotActive     = errors.New("session not active")
)

type LifecycleState int

const (
	StateUninitialized LifecycleState = iota
	StateJoining
	StateActive
	StateLeft
)

func (s LifecycleState) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateLeft:
		return "left"
	default:
		return "uninitialized"
	}
}

// Controller is the meeting session controller. Single writer for all
// session state; the presentation layer reads via Snapshot and gets
// poked through the OnChange hook.
type Controller struct {
	store    core.MeetingStore
	relay    core.SignalRelay
	media    *media.LocalMedia
	peers    *core.PeerRegistry
	notifier core.Notifier

	chatEvery   time.Duration
	rosterEvery time.Duration

	mu         sync.Mutex
	state      LifecycleState
	meeting    *domain.Meeting
	self       *domain.LocalParticipant
	handRaised bool
	raised     map[domain.ParticipantID]struct{}
	syncer     *Synchronizer
	onChange   func()
}

func NewController(store core.MeetingStore, relay core.SignalRelay, lm *media.LocalMedia, notifier core.Notifier, chatEvery, rosterEvery time.Duration) *Controller {
	if notifier == nil {
		notifier = core.LogNotifier{}
	}
	return &Controller{
		store:       store,
		relay:       relay,
		media:       lm,
		peers:       core.NewPeerRegistry(),
		notifier:    notifier,
		chatEvery:   chatEvery,
		rosterEvery: rosterEvery,
		raised:      make(map[domain.ParticipantID]struct{}),
	}
}

// OnChange registers the presentation layer's refresh hook. Must be
// set before Join.
func (c *Controller) OnChange(fn func()) { c.onChange = fn }

// Join resolves the access code, registers the local participant,
// acquires media, opens the relay and starts the synchronizer. Any
// failure funnels through one cleanup path that releases everything
// acquired so far before the error is returned.
func (c *Controller) Join(ctx context.Context, code domain.AccessCode, name string) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return ErrAlreadyJoined
	}
	c.state = StateJoining
	c.mu.Unlock()

	meeting, err := c.store.MeetingByCode(ctx, code)
	if err != nil {
		c.failJoin(ctx)
		return fmt.Errorf("resolve access code: %w", err)
	}

	self, err := domain.NewLocalParticipant(name)
	if err != nil {
		c.failJoin(ctx)
		return fmt.Errorf("local participant: %w", err)
	}

	row := &domain.Participant{
		ID:        self.ID,
		MeetingID: meeting.ID,
		Name:      self.Name,
		JoinedAt:  time.Now().UTC(),
	}
	if !self.Identity.Anonymous() {
		uid := self.Identity.UserID
		row.UserID = &uid
	}
	if err := c.store.InsertParticipant(ctx, row); err != nil {
		c.failJoin(ctx)
		return fmt.Errorf("register participant: %w", err)
	}

	c.mu.Lock()
	c.meeting = meeting
	c.self = self
	c.mu.Unlock()

	if err := c.media.Acquire(ctx); err != nil {
		c.failJoin(ctx)
		return fmt.Errorf("acquire local media: %w", err)
	}

	// Leave may have run while the acquisition was suspended; a session
	// in Left stays in Left, so abandon the join and release everything.
	if !c.stillJoining() {
		c.failJoin(ctx)
		return ErrJoinAborted
	}

	c.relay.OnRemoteStream(c.handleRemoteStream)
	c.relay.OnPeerLeft(c.handlePeerLeft)
	c.relay.OnHandRaise(c.handleHandRaise)

	if err := c.relay.JoinRoom(ctx, meeting.ID, self); err != nil {
		c.failJoin(ctx)
		return fmt.Errorf("join relay room: %w", err)
	}

	syncer := NewSynchronizer(c.store, meeting.ID, c.chatEvery, c.rosterEvery)
	syncer.OnChange(c.notifyChange)
	c.mu.Lock()
	c.syncer = syncer
	c.mu.Unlock()
	if err := syncer.Start(ctx); err != nil {
		c.failJoin(ctx)
		return fmt.Errorf("start synchronizer: %w", err)
	}

	c.mu.Lock()
	if c.state != StateJoining {
		c.mu.Unlock()
		c.failJoin(ctx)
		return ErrJoinAborted
	}
	c.state = StateActive
	c.mu.Unlock()
	log.Info().Str("module", "app.session").Str("meeting", string(meeting.ID)).Str("participant", string(self.ID)).Msg("joined")
	c.notifier.Notify(core.NoticeInfo, "joined "+meeting.Title)
	c.notifyChange()
	return nil
}

// Leave tears the session down. Idempotent and callable from any
// lifecycle state; the departure-marking write is best-effort and
// never blocks leaving.
func (c *Controller) Leave() {
	c.mu.Lock()
	if c.state == StateLeft {
		c.mu.Unlock()
		return
	}
	c.state = StateLeft
	self := c.self
	syncer := c.syncer
	c.handRaised = false
	c.raised = make(map[domain.ParticipantID]struct{})
	c.mu.Unlock()

	if self != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.store.MarkParticipantLeft(ctx, self.ID, time.Now().UTC()); err != nil {
			log.Warn().Err(err).Str("module", "app.session").Str("participant", string(self.ID)).Msg("mark left failed, leaving anyway")
		}
		cancel()
	}

	if syncer != nil {
		syncer.Stop()
	}
	c.relay.LeaveRoom()
	c.media.ReleaseCurrent()
	c.peers.Clear()

	log.Info().Str("module", "app.session").Msg("left")
	c.notifier.Notify(core.NoticeInfo, "left the meeting")
	c.notifyChange()
}

// failJoin is the single cleanup funnel for join failures: it releases
// whatever was acquired and lands the session in StateLeft.
func (c *Controller) failJoin(ctx context.Context) {
	c.mu.Lock()
	self := c.self
	syncer := c.syncer
	c.state = StateLeft
	c.mu.Unlock()

	if syncer != nil {
		syncer.Stop()
	}
	c.relay.LeaveRoom()
	c.media.ReleaseCurrent()
	c.peers.Clear()

	if self != nil {
		if err := c.store.MarkParticipantLeft(ctx, self.ID, time.Now().UTC()); err != nil {
			log.Warn().Err(err).Str("module", "app.session").Msg("rollback participant row failed")
		}
	}
	log.Info().Str("module", "app.session").Msg("join aborted, resources released")
}

func (c *Controller) notifyChange() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) activeState() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateActive
}

func (c *Controller) stillJoining() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateJoining
}
