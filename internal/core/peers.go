package core

import (
	"sync"

	"github.com/meuser88/huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// PeerEntry is a read-only view of one connected peer.
type PeerEntry struct {
	ID     domain.ParticipantID
	Name   string
	Stream *RemoteStream
}

// PeerRegistry is a threadsafe in-memory map of live peers, snapshot in
// insertion order. It never closes transport resources.
type PeerRegistry struct {
	mu    sync.RWMutex
	byID  map[domain.ParticipantID]*PeerEntry
	order []domain.ParticipantID
}

func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{byID: make(map[domain.ParticipantID]*PeerEntry)}
}

func (r *PeerRegistry) Upsert(id domain.ParticipantID, stream *RemoteStream, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[id]; ok {
		e.Stream = stream
		if name != "" {
			e.Name = name
		}
		return
	}
	r.byID[id] = &PeerEntry{ID: id, Name: name, Stream: stream}
	r.order = append(r.order, id)
	log.Info().Str("module", "core.peers").Str("peer", string(id)).Str("name", name).Msg("peer added")
}

// Remove is a no-op for unknown peers.
func (r *PeerRegistry) Remove(id domain.ParticipantID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.peers").Str("peer", string(id)).Msg("peer removed")
}

func (r *PeerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Snapshot returns peers in insertion order.
func (r *PeerRegistry) Snapshot() []PeerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PeerEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

func (r *PeerRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[domain.ParticipantID]*PeerEntry)
	r.order = nil
}
