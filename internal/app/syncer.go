package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
)

// Synchronizer reconciles the local chat and roster views against the
// shared store on two fixed cadences. Each fetch replaces the view
// wholesale; a failed fetch keeps the previous view. Results are only
// applied while the active flag is set, so a tick that fires after
// Stop is a guaranteed no-op.
type Synchronizer struct {
	store       core.MeetingStore
	meeting     domain.MeetingID
	chatEvery   time.Duration
	rosterEvery time.Duration

	mu       sync.RWMutex
	active   bool
	chat     []domain.Message
	roster   []domain.Participant
	cancel   context.CancelFunc
	onChange func()
}

func NewSynchronizer(store core.MeetingStore, meeting domain.MeetingID, chatEvery, rosterEvery time.Duration) *Synchronizer {
	return &Synchronizer{
		store:       store,
		meeting:     meeting,
		chatEvery:   chatEvery,
		rosterEvery: rosterEvery,
	}
}

// OnChange registers a callback invoked after a view is replaced.
// Must be set before Start.
func (s *Synchronizer) OnChange(fn func()) { s.onChange = fn }

// Start performs one synchronous fetch of both views, then runs the
// two polling loops until Stop. The initial fetch failing fails Start.
// The caller's ctx only bounds the initial fetch; the loops live on a
// detached context so a short-lived join request cannot kill them,
// and Stop stays the sole cancellation path.
func (s *Synchronizer) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.active = true
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.refreshRoster(ctx); err != nil {
		cancel()
		return fmt.Errorf("initial roster fetch: %w", err)
	}
	if err := s.refreshChat(ctx); err != nil {
		cancel()
		return fmt.Errorf("initial chat fetch: %w", err)
	}

	go s.loop(loopCtx, s.chatEvery, "chat", s.refreshChat)
	go s.loop(loopCtx, s.rosterEvery, "roster", s.refreshRoster)
	return nil
}

// Stop cancels both loops. Safe to call more than once.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	s.active = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ForceRefresh fetches both views out of cycle, e.g. right after an
// outbound chat insert. A racing scheduled tick is harmless: every
// fetch is a full snapshot and the last applied result wins.
func (s *Synchronizer) ForceRefresh(ctx context.Context) {
	if err := s.refreshChat(ctx); err != nil {
		log.Warn().Err(err).Str("module", "app.sync").Msg("forced chat refresh failed")
	}
	if err := s.refreshRoster(ctx); err != nil {
		log.Warn().Err(err).Str("module", "app.sync").Msg("forced roster refresh failed")
	}
}

func (s *Synchronizer) Chat() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.chat))
	copy(out, s.chat)
	return out
}

func (s *Synchronizer) Roster() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, len(s.roster))
	copy(out, s.roster)
	return out
}

func (s *Synchronizer) loop(ctx context.Context, every time.Duration, name string, refresh func(context.Context) error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sync").Str("loop", name).Msg("loop stopped")
			return
		case <-ticker.C:
			if err := refresh(ctx); err != nil {
				log.Warn().Err(err).Str("module", "app.sync").Str("loop", name).Msg("fetch failed, keeping previous view")
			}
		}
	}
}

func (s *Synchronizer) refreshChat(ctx context.Context) error {
	rows, err := s.store.Messages(ctx, s.meeting)
	if err != nil {
		return err
	}
	s.apply(func() { s.chat = rows })
	return nil
}

func (s *Synchronizer) refreshRoster(ctx context.Context) error {
	rows, err := s.store.ActiveParticipants(ctx, s.meeting)
	if err != nil {
		return err
	}
	s.apply(func() { s.roster = rows })
	return nil
}

func (s *Synchronizer) apply(set func()) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	set()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
