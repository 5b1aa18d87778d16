package game

import "time"

// Player is one seat in a room. Every field except ID is mutable and
// guarded by the owning room's lock; the player lives for the room's
// lifetime once created.
type Player struct {
	// ID is a 32-hex-char identifier, immutable and globally unique.
	ID string

	// ConnectionID of the live transport connection; empty means
	// disconnected.
	ConnectionID string

	// Symbol is assigned when the game starts and cleared on rematch.
	Symbol Symbol

	// GraceUsed latches once the reconnection grace timer has been
	// started for this player in the current game. A second disconnect
	// in the same game forfeits immediately. Reset on rematch.
	GraceUsed bool

	ReconnectTimer     *TimerHandle
	ReconnectExpiresAt *time.Time

	TurnTimer     *TimerHandle
	TurnExpiresAt *time.Time

	// RemainingTurnSeconds preserves the paused turn clock while any
	// player is disconnected; nil when the clock is not paused.
	RemainingTurnSeconds *int
}

// Connected reports whether the player has a live connection.
func (p *Player) Connected() bool {
	return p.ConnectionID != ""
}

// cancelTimers cancels and clears both timer handles and their
// bookkeeping. Caller holds the room lock.
func (p *Player) cancelTimers() {
	if p.ReconnectTimer != nil {
		p.ReconnectTimer.Cancel()
		p.ReconnectTimer = nil
	}
	p.ReconnectExpiresAt = nil
	if p.TurnTimer != nil {
		p.TurnTimer.Cancel()
		p.TurnTimer = nil
	}
	p.TurnExpiresAt = nil
	p.RemainingTurnSeconds = nil
}
