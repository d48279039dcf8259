package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
)

// fakeStore is an in-memory core.MeetingStore honoring the same
// ordering contract as the real one.
type fakeStore struct {
	mu           sync.Mutex
	meetings     []domain.Meeting
	participants map[domain.ParticipantID]*domain.Participant
	messages     []domain.Message

	failMessages     error
	failParticipants error
}

func newFakeStore(meetings ...domain.Meeting) *fakeStore {
	return &fakeStore{
		meetings:     meetings,
		participants: make(map[domain.ParticipantID]*domain.Participant),
	}
}

func (s *fakeStore) MeetingByCode(_ context.Context, code domain.AccessCode) (*domain.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.meetings {
		if strings.EqualFold(string(s.meetings[i].AccessCode), string(code)) {
			m := s.meetings[i]
			return &m, nil
		}
	}
	return nil, core.ErrMeetingNotFound
}

func (s *fakeStore) InsertParticipant(_ context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.participants[p.ID] = &cp
	return nil
}

func (s *fakeStore) MarkParticipantLeft(_ context.Context, id domain.ParticipantID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.participants[id]; ok {
		p.LeftAt = &at
	}
	return nil
}

func (s *fakeStore) ActiveParticipants(_ context.Context, meeting domain.MeetingID) ([]domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failParticipants != nil {
		return nil, s.failParticipants
	}
	var out []domain.Participant
	for _, p := range s.participants {
		if p.MeetingID == meeting && p.Active() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (s *fakeStore) InsertMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeStore) Messages(_ context.Context, meeting domain.MeetingID) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMessages != nil {
		return nil, s.failMessages
	}
	var out []domain.Message
	for _, m := range s.messages {
		if m.MeetingID == meeting {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) participant(id domain.ParticipantID) (domain.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

func (s *fakeStore) participantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// fakeRelay records outbound calls and lets tests fire inbound events.
type fakeRelay struct {
	mu        sync.Mutex
	joinErr   error
	joins     int
	leaves    int
	handSends []bool

	onRemoteStream func(domain.ParticipantID, *core.RemoteStream, string)
	onPeerLeft     func(domain.ParticipantID)
	onHandRaise    func(domain.ParticipantID, string, bool)
}

func (r *fakeRelay) JoinRoom(_ context.Context, _ domain.MeetingID, _ *domain.LocalParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.joinErr != nil {
		return r.joinErr
	}
	r.joins++
	return nil
}

func (r *fakeRelay) LeaveRoom() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaves++
}

func (r *fakeRelay) SendHandRaise(raised bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handSends = append(r.handSends, raised)
	return nil
}

func (r *fakeRelay) OnRemoteStream(fn func(domain.ParticipantID, *core.RemoteStream, string)) {
	r.onRemoteStream = fn
}
func (r *fakeRelay) OnPeerLeft(fn func(domain.ParticipantID)) { r.onPeerLeft = fn }

func (r *fakeRelay) OnHandRaise(fn func(domain.ParticipantID, string, bool)) {
	r.onHandRaise = fn
}

func (r *fakeRelay) leaveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaves
}

// fake capture device, same shape as the media package fakes.
type fakeTrack struct {
	kind    core.TrackKind
	enabled bool
	stopped bool
}

func (t *fakeTrack) Kind() core.TrackKind             { return t.kind }
func (t *fakeTrack) RTP() *webrtc.TrackLocalStaticRTP { return nil }
func (t *fakeTrack) SetEnabled(v bool)                { t.enabled = v }
func (t *fakeTrack) Stop()                            { t.stopped = true }

type fakeStream struct {
	id      string
	kind    core.StreamKind
	tracks  []core.LocalTrack
	closed  bool
	onEnded func()
}

func (s *fakeStream) ID() string                { return s.id }
func (s *fakeStream) Kind() core.StreamKind     { return s.kind }
func (s *fakeStream) Tracks() []core.LocalTrack { return s.tracks }
func (s *fakeStream) OnEnded(fn func())         { s.onEnded = fn }

func (s *fakeStream) Close() {
	s.closed = true
	for _, t := range s.tracks {
		t.Stop()
	}
}

type fakeDevice struct {
	n          int
	cameraErr  error
	screenErr  error
	lastCamera *fakeStream
	lastScreen *fakeStream

	// When set, AcquireCamera announces itself on cameraEntered and
	// then parks until cameraGate closes, so tests can interleave
	// other calls with a suspended acquisition.
	cameraGate    chan struct{}
	cameraEntered chan struct{}
}

func (d *fakeDevice) AcquireCamera(_ context.Context, video, audio bool) (core.Stream, error) {
	if d.cameraEntered != nil {
		close(d.cameraEntered)
		d.cameraEntered = nil
	}
	if d.cameraGate != nil {
		<-d.cameraGate
	}
	if d.cameraErr != nil {
		return nil, d.cameraErr
	}
	d.n++
	s := &fakeStream{id: fmt.Sprintf("cam-%d", d.n), kind: core.StreamCamera}
	if audio {
		s.tracks = append(s.tracks, &fakeTrack{kind: core.TrackAudio, enabled: true})
	}
	if video {
		s.tracks = append(s.tracks, &fakeTrack{kind: core.TrackVideo, enabled: true})
	}
	d.lastCamera = s
	return s, nil
}

func (d *fakeDevice) AcquireScreen(context.Context) (core.Stream, error) {
	if d.screenErr != nil {
		return nil, d.screenErr
	}
	d.n++
	s := &fakeStream{
		id:     fmt.Sprintf("scr-%d", d.n),
		kind:   core.StreamScreen,
		tracks: []core.LocalTrack{&fakeTrack{kind: core.TrackVideo, enabled: true}},
	}
	d.lastScreen = s
	return s, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (n *fakeNotifier) Notify(_ core.NoticeLevel, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, text)
}
