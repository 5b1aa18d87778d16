package room

import (
	"time"

	"github.com/rs/zerolog/log"

	"tictactoe-online/internal/game"
	"tictactoe-online/internal/ws"
)

// StartGracePeriod runs the reconnection countdown for a disconnected
// player. Runs in its own goroutine. Grace is granted once per game;
// a player who already used it forfeits immediately.
func (s *Service) StartGracePeriod(code, playerID string) {
	r, ok := s.registry.TryGet(code)
	if !ok {
		return
	}

	r.Lock()
	p, known := r.Players[playerID]
	if !known || p.Connected() {
		r.Unlock()
		return
	}
	if !r.SymbolsAssigned() || r.IsGameOver {
		r.Unlock()
		return
	}

	if p.GraceUsed {
		over := s.forfeitLocked(r, playerID, "Opponent disconnected and failed to reconnect")
		r.Unlock()

		s.broadcast(code, ws.MsgPlayerLeft, ws.PlayerLeftPayload{PlayerID: playerID})
		s.broadcastGameOver(code, over)
		s.removeRoom(code)
		log.Info().Str("room", code).Str("player", playerID).
			Msg("second disconnect, immediate forfeit")
		return
	}

	p.GraceUsed = true
	handle := game.NewTimerHandle()
	p.ReconnectTimer = handle
	expiresAt := time.Now().Add(s.cfg.ReconnectionGracePeriod)
	p.ReconnectExpiresAt = &expiresAt
	total := int(s.cfg.ReconnectionGracePeriod.Seconds())
	r.Unlock()

	s.broadcast(code, ws.MsgPlayerLeft, ws.PlayerLeftPayload{PlayerID: playerID})

	for remaining := total; remaining > 0; remaining-- {
		s.broadcast(code, ws.MsgCountdownTick, ws.CountdownTickPayload{
			PlayerID:         playerID,
			RemainingSeconds: remaining,
		})
		if !handle.Sleep(time.Second) {
			// Cancelled by a reconnect, a rematch reset, or room teardown.
			// Whoever cancelled already did the bookkeeping.
			return
		}
	}
	s.broadcast(code, ws.MsgCountdownTick, ws.CountdownTickPayload{
		PlayerID:         playerID,
		RemainingSeconds: 0,
	})

	r.Lock()
	// Handle identity guards against a newer grace timer for the same
	// seat after a reconnect/disconnect cycle.
	if p.ReconnectTimer != handle || p.Connected() || r.IsGameOver {
		r.Unlock()
		return
	}
	p.ReconnectTimer = nil
	p.ReconnectExpiresAt = nil
	over := s.forfeitLocked(r, playerID, "Opponent disconnected and failed to reconnect")
	r.Unlock()

	s.broadcastGameOver(code, over)
	s.removeRoom(code)
	log.Info().Str("room", code).Str("player", playerID).Msg("grace period expired")
}

// forfeitLocked ends the game against playerID and builds the GameOver
// payload. Caller holds the room lock.
func (s *Service) forfeitLocked(r *game.Room, playerID, message string) ws.GameOverPayload {
	r.Forfeit(playerID)
	winnerID := ""
	if opp := r.Opponent(playerID); opp != nil {
		winnerID = opp.ID
	}
	return ws.GameOverPayload{
		Result:        ws.ResultWinner,
		WinnerID:      winnerID,
		WinnerSymbol:  string(r.Winner),
		BoardSnapshot: append([]int(nil), r.Board...),
		Message:       message,
	}
}
