package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (r *Relay) writePump(ctx context.Context, conn *websocket.Conn) {
	r.mu.RLock()
	send := r.send
	r.mu.RUnlock()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "ws").Msg("writePump ctx done")
			return
		case data, ok := <-send:
			if !ok {
				log.Warn().Str("module", "ws").Msg("writePump channel closed")
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (r *Relay) readPump(ctx context.Context, conn *websocket.Conn) {
	defer log.Info().Str("module", "ws").Msg("readPump closing")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "ws").Msg("readPump ctx done")
			return
		default:
			_, data, err := conn.ReadMessage()
			if err != nil {
				r.mu.RLock()
				closed := r.closed
				r.mu.RUnlock()
				if !closed {
					log.Error().Err(err).Str("module", "ws").Msg("readPump read error")
				}
				return
			}
			r.handleSignal(ctx, data)
		}
	}
}

func (r *Relay) handleSignal(ctx context.Context, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad json")
		return
	}

	switch env.Type {
	case "peer_joined":
		r.handlePeerJoined(ctx, data)
	case "offer":
		r.handleOffer(ctx, data)
	case "answer":
		r.handleAnswer(data)
	case "candidate":
		r.handleCandidate(data)
	case "peer_left":
		r.handlePeerLeft(data)
	case "hand":
		r.handleHand(data)
	case "pong":
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown signal")
	}
}

func (r *Relay) sendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return err
	}
	return r.trySend(b)
}
