package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
	"github.com/meuser88/huddle/internal/media"
)

func testMeeting() domain.Meeting {
	return domain.Meeting{
		ID:         "m-1",
		AccessCode: "AB12CD",
		Title:      "Standup",
		HostName:   "Host",
	}
}

type testRig struct {
	store  *fakeStore
	relay  *fakeRelay
	device *fakeDevice
	notes  *fakeNotifier
	ctrl   *Controller
}

func newRig() *testRig {
	st := newFakeStore(testMeeting())
	relay := &fakeRelay{}
	dev := &fakeDevice{}
	notes := &fakeNotifier{}
	ctrl := NewController(st, relay, media.NewLocalMedia(dev), notes, time.Hour, time.Hour)
	return &testRig{store: st, relay: relay, device: dev, notes: notes, ctrl: ctrl}
}

func mustJoin(t *testing.T, r *testRig, name string) {
	t.Helper()
	if err := r.ctrl.Join(context.Background(), "ab12cd", name); err != nil {
		t.Fatalf("join: %v", err)
	}
}

func TestJoinActivatesAndRegistersParticipant(t *testing.T) {
	r := newRig()
	// Lowercase code: the lookup is case-insensitive.
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()

	st := r.ctrl.Snapshot()
	if st.Phase != StateActive {
		t.Fatalf("phase = %s, want active", st.Phase)
	}
	if st.Meeting == nil || st.Meeting.ID != "m-1" {
		t.Fatal("meeting not resolved")
	}
	if len(st.Roster) != 1 {
		t.Fatalf("roster len = %d, want exactly the local participant", len(st.Roster))
	}
	if st.Roster[0].Name != "Alice" || st.Roster[0].LeftAt != nil {
		t.Errorf("roster row = %+v", st.Roster[0])
	}
	if st.Roster[0].MeetingID != "m-1" {
		t.Errorf("roster row meeting = %s", st.Roster[0].MeetingID)
	}
	if r.relay.joins != 1 {
		t.Errorf("relay joins = %d", r.relay.joins)
	}
}

func TestJoinUnknownCodeFails(t *testing.T) {
	r := newRig()
	err := r.ctrl.Join(context.Background(), "NOPE42", "Alice")
	if !errors.Is(err, core.ErrMeetingNotFound) {
		t.Fatalf("err = %v, want ErrMeetingNotFound", err)
	}
	if r.store.participantCount() != 0 {
		t.Error("participant row inserted for failed join")
	}
	if r.ctrl.Snapshot().Phase != StateLeft {
		t.Error("failed join did not land in left state")
	}
}

func TestJoinDeviceFailureReleasesEverything(t *testing.T) {
	r := newRig()
	r.device.cameraErr = core.ErrPermissionDenied

	err := r.ctrl.Join(context.Background(), "AB12CD", "Alice")
	if !errors.Is(err, core.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	// The already-inserted roster row must not dangle as active.
	for _, p := range r.store.participants {
		if p.LeftAt == nil {
			t.Error("participant row left active after failed join")
		}
	}
	if r.ctrl.Snapshot().Phase != StateLeft {
		t.Error("failed join did not land in left state")
	}
}

func TestJoinRelayFailureReleasesMedia(t *testing.T) {
	r := newRig()
	r.relay.joinErr = errors.New("relay down")

	if err := r.ctrl.Join(context.Background(), "AB12CD", "Alice"); err == nil {
		t.Fatal("join succeeded despite relay failure")
	}
	if r.device.lastCamera == nil || !r.device.lastCamera.closed {
		t.Error("acquired camera stream not released")
	}
	if r.relay.leaveCount() != 1 {
		t.Errorf("relay leave count = %d", r.relay.leaveCount())
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := newRig()
	mustJoin(t, r, "Alice")
	self := r.ctrl.Snapshot().Self

	r.ctrl.Leave()
	r.ctrl.Leave()

	row, ok := r.store.participant(self.ID)
	if !ok || row.LeftAt == nil {
		t.Error("roster row not marked departed")
	}
	if !r.device.lastCamera.closed {
		t.Error("local tracks not stopped")
	}
	if r.relay.leaveCount() != 1 {
		t.Errorf("relay leave count = %d, want 1", r.relay.leaveCount())
	}
	if r.ctrl.Snapshot().Phase != StateLeft {
		t.Error("phase not left")
	}
}

func TestLeaveBeforeJoinIsSafe(t *testing.T) {
	r := newRig()
	r.ctrl.Leave()
	r.ctrl.Leave()
	if r.ctrl.Snapshot().Phase != StateLeft {
		t.Error("phase not left")
	}
}

func TestChatScenario(t *testing.T) {
	r := newRig()
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()
	ctx := context.Background()

	// Whitespace-only text is a no-op, no row inserted.
	if err := r.ctrl.SendChat(ctx, "   \n\t"); err != nil {
		t.Fatalf("whitespace send: %v", err)
	}
	if len(r.store.messages) != 0 {
		t.Fatal("whitespace message inserted")
	}

	if err := r.ctrl.SendChat(ctx, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	// The forced refresh makes the message visible without a poll tick.
	chat := r.ctrl.Snapshot().Chat
	if len(chat) != 1 {
		t.Fatalf("chat len = %d, want 1", len(chat))
	}
	if chat[0].SenderName != "Alice" || chat[0].Content != "hello" {
		t.Errorf("chat row = %+v", chat[0])
	}
}

func TestToggleMuteAndCamera(t *testing.T) {
	r := newRig()
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()

	r.ctrl.ToggleMute()
	r.ctrl.ToggleCamera()
	st := r.ctrl.Snapshot()
	if !st.Muted || !st.CameraOff {
		t.Errorf("flags = muted:%v cameraOff:%v", st.Muted, st.CameraOff)
	}
	if r.device.n != 1 {
		t.Errorf("toggles re-acquired the device: %d acquisitions", r.device.n)
	}
	if len(r.notes.notices) == 0 {
		t.Error("no user-facing notices emitted")
	}
}

func TestScreenShareRoundTrip(t *testing.T) {
	r := newRig()
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()
	ctx := context.Background()

	cam := r.device.lastCamera
	if err := r.ctrl.ToggleScreenShare(ctx); err != nil {
		t.Fatalf("start share: %v", err)
	}
	if !cam.closed {
		t.Error("camera stream still live while sharing")
	}
	st := r.ctrl.Snapshot()
	if !st.ScreenSharing || st.LocalStream.Kind() != core.StreamScreen {
		t.Error("screen stream not the single producer")
	}

	if err := r.ctrl.ToggleScreenShare(ctx); err != nil {
		t.Fatalf("stop share: %v", err)
	}
	if !r.device.lastScreen.closed {
		t.Error("screen stream not closed on revert")
	}
	st = r.ctrl.Snapshot()
	if st.ScreenSharing || st.LocalStream.Kind() != core.StreamCamera {
		t.Error("camera not restored as the single producer")
	}
}

func TestScreenShareExternalEndReverts(t *testing.T) {
	r := newRig()
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()

	if err := r.ctrl.ToggleScreenShare(context.Background()); err != nil {
		t.Fatalf("start share: %v", err)
	}
	scr := r.device.lastScreen
	if scr.onEnded == nil {
		t.Fatal("no ended hook registered on screen stream")
	}
	// The user stops sharing via OS chrome: same revert path, no
	// explicit toggle.
	scr.onEnded()

	st := r.ctrl.Snapshot()
	if st.ScreenSharing {
		t.Error("still marked as sharing after external end")
	}
	if st.LocalStream == nil || st.LocalStream.Kind() != core.StreamCamera {
		t.Error("camera not restored")
	}
}

func TestScreenShareFailureKeepsCamera(t *testing.T) {
	r := newRig()
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()

	r.device.screenErr = core.ErrDeviceUnavailable
	if err := r.ctrl.ToggleScreenShare(context.Background()); err == nil {
		t.Fatal("share succeeded despite device error")
	}
	st := r.ctrl.Snapshot()
	if st.ScreenSharing || st.LocalStream.Kind() != core.StreamCamera {
		t.Error("prior producer not retained after failed swap")
	}
}

func TestHandRaiseToggle(t *testing.T) {
	r := newRig()
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()
	self := r.ctrl.Snapshot().Self

	r.ctrl.ToggleHandRaise()
	if !r.ctrl.RaisedHandSet(self.ID) {
		t.Error("own hand not in the set")
	}
	r.ctrl.ToggleHandRaise()
	if r.ctrl.RaisedHandSet(self.ID) {
		t.Error("own hand still in the set")
	}
	want := []bool{true, false}
	if len(r.relay.handSends) != 2 || r.relay.handSends[0] != want[0] || r.relay.handSends[1] != want[1] {
		t.Errorf("relay hand sends = %v, want %v", r.relay.handSends, want)
	}
}

func TestPeerLeftClearsRegistryAndHandSet(t *testing.T) {
	r := newRig()
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()

	r.relay.onRemoteStream("p2", &core.RemoteStream{ID: "s2"}, "Bob")
	r.relay.onHandRaise("p2", "Bob", true)

	st := r.ctrl.Snapshot()
	if len(st.Peers) != 1 || st.Peers[0].Name != "Bob" {
		t.Fatalf("peers = %+v", st.Peers)
	}
	if !r.ctrl.RaisedHandSet("p2") {
		t.Fatal("remote hand not tracked")
	}

	r.relay.onPeerLeft("p2")
	st = r.ctrl.Snapshot()
	if len(st.Peers) != 0 {
		t.Error("peer still in registry after departure")
	}
	if r.ctrl.RaisedHandSet("p2") {
		t.Error("departed peer still in hand-raise set")
	}
}

func TestLeaveDuringJoinStaysLeft(t *testing.T) {
	r := newRig()
	gate := make(chan struct{})
	entered := make(chan struct{})
	r.device.cameraGate = gate
	r.device.cameraEntered = entered

	done := make(chan error, 1)
	go func() { done <- r.ctrl.Join(context.Background(), "AB12CD", "Alice") }()

	// The join is parked inside the device acquisition; the user leaves.
	<-entered
	r.ctrl.Leave()
	if r.ctrl.Snapshot().Phase != StateLeft {
		t.Fatal("phase not left after leave")
	}

	// The acquisition completes, but the session already left: the join
	// must abandon itself instead of restarting anything.
	close(gate)
	if err := <-done; !errors.Is(err, ErrJoinAborted) {
		t.Fatalf("err = %v, want ErrJoinAborted", err)
	}
	if r.ctrl.Snapshot().Phase != StateLeft {
		t.Error("join transitioned the session out of left")
	}
	if r.relay.joins != 0 {
		t.Errorf("relay restarted after leave: %d joins", r.relay.joins)
	}
	if r.device.lastCamera == nil || !r.device.lastCamera.closed {
		t.Error("camera stream acquired mid-leave not released")
	}
}

func TestJoinContextCancelKeepsPolling(t *testing.T) {
	st := newFakeStore(testMeeting())
	ctrl := NewController(st, &fakeRelay{}, media.NewLocalMedia(&fakeDevice{}), &fakeNotifier{}, 10*time.Millisecond, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := ctrl.Join(ctx, "AB12CD", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	defer ctrl.Leave()
	// The control surface cancels the request context as soon as the
	// join handler returns; polling must not die with it.
	cancel()

	st.mu.Lock()
	st.messages = append(st.messages, msg("late", "m-1", "after cancel", time.Now()))
	st.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for {
		chat := ctrl.Snapshot().Chat
		if len(chat) == 1 && chat[0].Content == "after cancel" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("chat view went stale after the join context was cancelled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJoinTwiceRejected(t *testing.T) {
	r := newRig()
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()

	if err := r.ctrl.Join(context.Background(), "AB12CD", "Alice"); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("err = %v, want ErrAlreadyJoined", err)
	}
}

func TestOnChangeFires(t *testing.T) {
	r := newRig()
	changes := 0
	r.ctrl.OnChange(func() { changes++ })
	mustJoin(t, r, "Alice")
	defer r.ctrl.Leave()

	before := changes
	r.ctrl.ToggleMute()
	if changes <= before {
		t.Error("state change did not notify")
	}
}
