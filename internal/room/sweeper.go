package room

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"tictactoe-online/internal/ws"
)

// RunSweeper closes idle rooms on a fixed interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RoomSweepInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.cfg.RoomSweepInterval).Msg("room sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("room sweeper stopped")
			return
		case now := <-ticker.C:
			s.SweepOnce(now)
		}
	}
}

// SweepOnce makes one pass over live rooms. It reaps rooms that never
// filled and sat idle past the threshold, rooms with every seat
// disconnected, and it settles any grace expiry whose timer goroutine
// was lost.
func (s *Service) SweepOnce(now time.Time) {
	for _, r := range s.registry.All() {
		code := r.Code

		r.Lock()
		idle := r.IsIdleForCleanup(now, s.cfg.IdleRoomTimeout)
		var over *ws.GameOverPayload
		if !idle && r.SymbolsAssigned() && !r.IsGameOver {
			for _, id := range r.PlayerOrder {
				p := r.Players[id]
				if !p.Connected() && p.ReconnectExpiresAt != nil &&
					now.Sub(*p.ReconnectExpiresAt) > time.Second {
					payload := s.forfeitLocked(r, id, "Opponent disconnected and failed to reconnect")
					over = &payload
					break
				}
			}
		}
		r.Unlock()

		switch {
		case over != nil:
			s.broadcastGameOver(code, *over)
			s.removeRoom(code)
			log.Warn().Str("room", code).Msg("settled missed grace expiry")
		case idle:
			s.broadcastGameOver(code, ws.GameOverPayload{
				Result:  ws.ResultCancelled,
				Message: "Room expired due to inactivity",
			})
			s.broadcast(code, ws.MsgRoomClosed, ws.RoomClosedPayload{Code: code})
			s.removeRoom(code)
			log.Info().Str("room", code).Msg("idle room swept")
		}
	}
}
