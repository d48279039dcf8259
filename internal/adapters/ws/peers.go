package ws

import (
	"context"
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/adapters/rtc"
	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/domain"
)

// handlePeerJoined makes us the offering side towards the newcomer.
func (r *Relay) handlePeerJoined(ctx context.Context, data []byte) {
	type joinedPayload struct {
		Type        string `json:"type"`
		Participant string `json:"participant"`
		Name        string `json:"name"`
	}
	var p joinedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad peer_joined payload")
		return
	}
	peer := domain.ParticipantID(p.Participant)
	if r.isSelf(peer) {
		return
	}

	link, err := r.newLink(ctx, peer, p.Name)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Str("peer", p.Participant).Msg("peer connection")
		return
	}

	offer, err := link.conn.CreateAndSetOffer()
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Str("peer", p.Participant).Msg("create offer")
		r.dropLink(peer)
		return
	}
	r.sendToPeer(peer, map[string]string{
		"type": "offer",
		"to":   p.Participant,
		"sdp":  offer.SDP,
	})
}

// handleOffer makes us the answering side.
func (r *Relay) handleOffer(ctx context.Context, data []byte) {
	type offerPayload struct {
		Type string `json:"type"`
		From string `json:"from"`
		Name string `json:"name"`
		SDP  string `json:"sdp"`
	}
	var p offerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad offer payload")
		return
	}
	peer := domain.ParticipantID(p.From)
	if r.isSelf(peer) {
		return
	}

	link, err := r.newLink(ctx, peer, p.Name)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Str("peer", p.From).Msg("peer connection")
		return
	}

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  p.SDP,
	}
	answer, err := link.conn.ApplyOfferAndCreateAnswer(offer)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Str("peer", p.From).Msg("apply offer")
		r.dropLink(peer)
		return
	}
	r.sendToPeer(peer, map[string]string{
		"type": "answer",
		"to":   p.From,
		"sdp":  answer.SDP,
	})
}

func (r *Relay) handleAnswer(data []byte) {
	type answerPayload struct {
		Type string `json:"type"`
		From string `json:"from"`
		SDP  string `json:"sdp"`
	}
	var p answerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad answer payload")
		return
	}
	link, ok := r.link(domain.ParticipantID(p.From))
	if !ok {
		log.Warn().Str("module", "ws").Str("peer", p.From).Msg("answer: no link")
		return
	}
	if err := link.conn.ApplyAnswer(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  p.SDP,
	}); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("peer", p.From).Msg("apply answer")
	}
}

func (r *Relay) handleCandidate(data []byte) {
	type candidatePayload struct {
		Type          string `json:"type"`
		From          string `json:"from"`
		Candidate     string `json:"candidate"`
		SDPMid        string `json:"sdpMid"`
		SDPMLineIndex uint16 `json:"sdpMLineIndex"`
	}
	var p candidatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad candidate payload")
		return
	}
	link, ok := r.link(domain.ParticipantID(p.From))
	if !ok {
		log.Warn().Str("module", "ws").Str("peer", p.From).Msg("candidate: no link")
		return
	}
	cand := webrtc.ICECandidateInit{Candidate: p.Candidate}
	if p.SDPMid != "" {
		cand.SDPMid = &p.SDPMid
	}
	cand.SDPMLineIndex = &p.SDPMLineIndex
	if err := link.conn.AddICECandidate(cand); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("peer", p.From).Msg("add ice candidate")
	}
}

func (r *Relay) handlePeerLeft(data []byte) {
	type leftPayload struct {
		Type        string `json:"type"`
		Participant string `json:"participant"`
	}
	var p leftPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad peer_left payload")
		return
	}
	peer := domain.ParticipantID(p.Participant)
	r.dropLink(peer)
	if r.onPeerLeft != nil {
		r.onPeerLeft(peer)
	}
}

func (r *Relay) handleHand(data []byte) {
	type handPayload struct {
		Type        string `json:"type"`
		Participant string `json:"participant"`
		Name        string `json:"name"`
		Raised      bool   `json:"raised"`
	}
	var p handPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad hand payload")
		return
	}
	peer := domain.ParticipantID(p.Participant)
	if r.isSelf(peer) {
		return
	}
	if r.onHandRaise != nil {
		r.onHandRaise(peer, p.Name, p.Raised)
	}
}

// newLink builds the peer connection, attaches the current local
// tracks and registers it, replacing any stale link for the peer.
func (r *Relay) newLink(ctx context.Context, peer domain.ParticipantID, name string) (*peerLink, error) {
	conn, err := rtc.NewConnection(r.rtcCfg, peer)
	if err != nil {
		return nil, err
	}
	link := &peerLink{conn: conn, name: name, stream: &core.RemoteStream{}}

	conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		r.sendCandidate(peer, ci)
	})
	conn.OnTrack(func(_ context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		r.remoteTrack(peer, link, track.StreamID(), track)
	})
	conn.OnClosed(func() {
		log.Info().Str("module", "ws").Str("peer", string(peer)).Msg("peer connection closed")
	})

	if err := conn.Start(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if r.localTracks != nil {
		for _, t := range r.localTracks() {
			if _, err := conn.AddLocalTrack(t.RTP()); err != nil {
				log.Error().Err(err).Str("module", "ws").Str("peer", string(peer)).Msg("add local track")
			}
		}
	}

	r.mu.Lock()
	// LeaveRoom may have torn the session down while this link was
	// negotiating; registering it now would leak the connection.
	if r.closed || r.conn == nil {
		r.mu.Unlock()
		conn.Close()
		return nil, ErrNotJoined
	}
	if old, ok := r.links[peer]; ok {
		log.Info().Str("module", "ws").Str("peer", string(peer)).Msg("replacing existing link")
		old.conn.Close()
	}
	r.links[peer] = link
	r.mu.Unlock()
	return link, nil
}

func (r *Relay) remoteTrack(peer domain.ParticipantID, link *peerLink, streamID string, track *webrtc.TrackRemote) {
	r.mu.Lock()
	if link.stream.ID == "" {
		link.stream.ID = streamID
	}
	link.stream.Tracks = append(link.stream.Tracks, track)
	stream := &core.RemoteStream{ID: link.stream.ID, Tracks: link.stream.Tracks}
	name := link.name
	fn := r.onRemoteStream
	r.mu.Unlock()
	if fn != nil {
		fn(peer, stream, name)
	}
}

func (r *Relay) link(peer domain.ParticipantID) (*peerLink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.links[peer]
	return l, ok
}

func (r *Relay) dropLink(peer domain.ParticipantID) {
	r.mu.Lock()
	link, ok := r.links[peer]
	if ok {
		delete(r.links, peer)
	}
	r.mu.Unlock()
	if ok {
		link.conn.Close()
	}
}

func (r *Relay) isSelf(peer domain.ParticipantID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.self != nil && peer == r.self.ID
}

func (r *Relay) sendCandidate(peer domain.ParticipantID, ci webrtc.ICECandidateInit) {
	resp := struct {
		Type          string `json:"type"`
		To            string `json:"to"`
		Candidate     string `json:"candidate"`
		SDPMid        string `json:"sdpMid,omitempty"`
		SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
	}{
		Type:      "candidate",
		To:        string(peer),
		Candidate: ci.Candidate,
	}
	if ci.SDPMid != nil {
		resp.SDPMid = *ci.SDPMid
	}
	if ci.SDPMLineIndex != nil {
		resp.SDPMLineIndex = *ci.SDPMLineIndex
	}
	if err := r.sendJSON(resp); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("peer", string(peer)).Msg("send candidate")
	}
}

func (r *Relay) sendToPeer(peer domain.ParticipantID, v any) {
	if err := r.sendJSON(v); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("peer", string(peer)).Msg("send signal")
	}
}
