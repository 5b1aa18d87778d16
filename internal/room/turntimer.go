package room

import (
	"time"

	"github.com/rs/zerolog/log"

	"tictactoe-online/internal/game"
	"tictactoe-online/internal/ws"
)

// StartTurnTimeout arms the per-turn clock for the current turn
// holder and runs its countdown. Runs in its own goroutine. The clock
// resumes a paused remainder when one is recorded, otherwise it starts
// from the full timeout.
func (s *Service) StartTurnTimeout(code string) {
	r, ok := s.registry.TryGet(code)
	if !ok {
		return
	}

	r.Lock()
	if r.IsGameOver || !r.SymbolsAssigned() || !r.AllConnected() {
		r.Unlock()
		return
	}
	holder := r.CurrentTurnPlayer()
	if holder == nil {
		r.Unlock()
		return
	}
	// Only one turn clock runs per room; supersede any stragglers.
	for _, p := range r.Players {
		if p.TurnTimer != nil {
			p.TurnTimer.Cancel()
			p.TurnTimer = nil
		}
		p.TurnExpiresAt = nil
	}

	// A paused remainder of zero runs straight into the expiry branch.
	total := int(s.cfg.TurnTimeout.Seconds())
	if holder.RemainingTurnSeconds != nil {
		if rem := *holder.RemainingTurnSeconds; rem < total {
			total = rem
		}
		holder.RemainingTurnSeconds = nil
	}

	handle := game.NewTimerHandle()
	holder.TurnTimer = handle
	expiresAt := time.Now().Add(time.Duration(total) * time.Second)
	holder.TurnExpiresAt = &expiresAt
	version := r.TurnTimerVersion
	playerID := holder.ID
	r.Unlock()

	s.broadcast(code, ws.MsgTurnCountdownResumed, ws.TurnCountdownResumedPayload{
		PlayerID:     playerID,
		TotalSeconds: total,
		ExpiresAtUTC: expiresAt.UTC(),
		ServerNow:    time.Now().UTC(),
	})

	for remaining := total; remaining > 0; remaining-- {
		s.broadcast(code, ws.MsgTurnCountdownTick, ws.TurnCountdownTickPayload{
			PlayerID:         playerID,
			RemainingSeconds: remaining,
			ExpiresAtUTC:     expiresAt.UTC(),
			ServerNow:        time.Now().UTC(),
		})
		if !handle.Sleep(time.Second) {
			s.turnTimerCancelled(r, playerID, version)
			return
		}
	}

	r.Lock()
	if r.TurnTimerVersion != version || r.IsGameOver || holder.TurnTimer != handle {
		r.Unlock()
		return
	}
	holder.TurnTimer = nil
	holder.TurnExpiresAt = nil
	over := s.forfeitLocked(r, playerID, "Player timed out on their turn")
	r.Unlock()

	s.broadcastGameOver(code, over)
	s.removeRoom(code)
	log.Info().Str("room", code).Str("player", playerID).Msg("turn timed out")
}

// turnTimerCancelled classifies a cancelled turn clock. A disconnect
// pause leaves the recorded remainder and the expiry stamp behind and
// gets a TurnCountdownPaused push; a consumed turn or a rematch reset
// leaves nothing and stays silent.
func (s *Service) turnTimerCancelled(r *game.Room, playerID string, version uint64) {
	r.Lock()
	if r.TurnTimerVersion != version {
		r.Unlock()
		return
	}
	p := r.Players[playerID]
	if p == nil || p.TurnTimer != nil || p.TurnExpiresAt == nil || p.RemainingTurnSeconds == nil {
		r.Unlock()
		return
	}
	remaining := *p.RemainingTurnSeconds
	p.TurnExpiresAt = nil
	code := r.Code
	r.Unlock()

	s.broadcast(code, ws.MsgTurnCountdownPaused, ws.TurnCountdownPausedPayload{
		PlayerID:         playerID,
		RemainingSeconds: remaining,
		ServerNow:        time.Now().UTC(),
	})
}
