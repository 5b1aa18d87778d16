package game

import (
	"sync"
	"time"
)

// Room is a two-player game session identified by a short code.
//
// A room owns a single mutex. Every read or write of mutable Room and
// Player fields happens under it; the methods below assume the caller
// holds the lock via Lock/Unlock. The lock is short-lived by
// convention: no message send and no sleep while holding it.
type Room struct {
	Code string

	mu sync.Mutex

	Board       []int
	Players     map[string]*Player
	PlayerOrder []string

	// CurrentTurn is non-empty iff the game is started and not over.
	CurrentTurn Symbol

	IsGameOver bool
	Winner     Symbol

	RematchOffers    map[string]struct{}
	RematchExpiresAt *time.Time
	RematchTimer     *TimerHandle

	CreatedAt      time.Time
	LastActivityAt time.Time

	// TurnTimerVersion bumps on every reset-for-rematch and explicit
	// cancel; in-flight turn timers re-check it before acting.
	TurnTimerVersion uint64

	Machine *StateMachine
}

// NewRoom creates an empty room in WaitingForPlayers.
func NewRoom(code string) *Room {
	now := time.Now()
	return &Room{
		Code:           code,
		Board:          NewBoard(),
		Players:        make(map[string]*Player),
		RematchOffers:  make(map[string]struct{}),
		CreatedAt:      now,
		LastActivityAt: now,
		Machine:        NewStateMachine(code),
	}
}

// Lock acquires the room lock.
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the room lock.
func (r *Room) Unlock() { r.mu.Unlock() }

// Touch bumps the activity timestamp.
func (r *Room) Touch() {
	r.LastActivityAt = time.Now()
}

// CanJoin reports whether another player fits.
func (r *Room) CanJoin(maxPlayers int) bool {
	return len(r.Players) < maxPlayers
}

// AddConnection binds a connection to a seat. It is idempotent per
// connection id: a connection already occupying a seat never gets a
// second one. An unknown playerId creates a new seat when capacity
// allows; a known one just rebinds the connection.
// Returns the seat and whether a new seat was created.
func (r *Room) AddConnection(playerID, connectionID string, maxPlayers int) (*Player, bool) {
	if existing := r.PlayerByConnection(connectionID); existing != nil {
		r.Touch()
		return existing, false
	}
	if p, ok := r.Players[playerID]; ok {
		p.ConnectionID = connectionID
		r.Touch()
		return p, false
	}
	if !r.CanJoin(maxPlayers) {
		return nil, false
	}
	p := &Player{ID: playerID, ConnectionID: connectionID}
	r.Players[playerID] = p
	r.PlayerOrder = append(r.PlayerOrder, playerID)
	if len(r.PlayerOrder) == 2 {
		r.Machine.Fire(EventPlayerJoined)
	}
	r.Touch()
	return p, true
}

// RemoveConnection finds the seat bound to the connection and clears
// it. Returns the affected player, or nil.
func (r *Room) RemoveConnection(connectionID string) *Player {
	p := r.PlayerByConnection(connectionID)
	if p == nil {
		return nil
	}
	p.ConnectionID = ""
	r.Touch()
	return p
}

// PlayerByConnection returns the seat bound to the connection, or nil.
func (r *Room) PlayerByConnection(connectionID string) *Player {
	if connectionID == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.ConnectionID == connectionID {
			return p
		}
	}
	return nil
}

// Opponent returns the other seat, or nil.
func (r *Room) Opponent(playerID string) *Player {
	for id, p := range r.Players {
		if id != playerID {
			return p
		}
	}
	return nil
}

// CurrentTurnPlayer returns the seat whose symbol holds the turn.
func (r *Room) CurrentTurnPlayer() *Player {
	if r.CurrentTurn == SymbolNone {
		return nil
	}
	for _, p := range r.Players {
		if p.Symbol == r.CurrentTurn {
			return p
		}
	}
	return nil
}

// SymbolsAssigned reports whether the game has started at least once.
func (r *Room) SymbolsAssigned() bool {
	for _, p := range r.Players {
		if p.Symbol != SymbolNone {
			return true
		}
	}
	return false
}

// AllConnected reports whether every seat has a live connection.
func (r *Room) AllConnected() bool {
	for _, p := range r.Players {
		if !p.Connected() {
			return false
		}
	}
	return true
}

// AllDisconnected reports whether the room has seats and none is
// connected.
func (r *Room) AllDisconnected() bool {
	if len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if p.Connected() {
			return false
		}
	}
	return true
}

// TryStartGame assigns symbols and opens the first turn. It requires
// two seats and no symbols yet. X always moves first, regardless of
// which seat holds X.
func (r *Room) TryStartGame() bool {
	if len(r.PlayerOrder) != 2 || r.SymbolsAssigned() {
		return false
	}
	first, second := AssignSymbols(Rand)
	r.Players[r.PlayerOrder[0]].Symbol = first
	r.Players[r.PlayerOrder[1]].Symbol = second
	r.CurrentTurn = SymbolX
	r.Touch()
	return true
}

// TryMakeMove applies a move from the given connection. Gates are
// checked in a fixed order; the first violated one wins.
func (r *Room) TryMakeMove(connectionID string, index int) (MoveOutcome, ErrorCode) {
	if r.IsGameOver {
		return MoveOutcome{}, ErrGameOver
	}
	p := r.PlayerByConnection(connectionID)
	if p == nil || p.Symbol == SymbolNone {
		return MoveOutcome{}, ErrNotInGame
	}
	if !r.AllConnected() {
		return MoveOutcome{}, ErrOpponentDisconnected
	}
	if r.CurrentTurn != p.Symbol {
		return MoveOutcome{}, ErrNotYourTurn
	}

	outcome := ApplyMove(r.Board, p.Symbol, index)
	switch outcome.Status {
	case MoveInvalidIndex:
		return outcome, ErrInvalidIndex
	case MoveCellTaken:
		return outcome, ErrCellTaken
	case MoveWin:
		r.fireMoveEvent()
		r.Machine.Fire(EventGameWon)
		r.IsGameOver = true
		r.Winner = outcome.Winner
		r.CurrentTurn = SymbolNone
	case MoveDraw:
		r.fireMoveEvent()
		r.Machine.Fire(EventGameDrawn)
		r.IsGameOver = true
		r.Winner = SymbolNone
		r.CurrentTurn = SymbolNone
	case MoveContinue:
		r.fireMoveEvent()
		r.CurrentTurn = outcome.NextTurn
	}
	r.Touch()
	return outcome, ErrNone
}

// fireMoveEvent distinguishes the first move after a rematch reset.
func (r *Room) fireMoveEvent() {
	if r.Machine.Current() == StateRematchAccepted {
		r.Machine.Fire(EventFirstMoveMade)
	} else {
		r.Machine.Fire(EventMoveMade)
	}
}

// Forfeit ends the game with the opponent of playerID as winner.
func (r *Room) Forfeit(playerID string) {
	if r.IsGameOver {
		return
	}
	r.Machine.Fire(EventPlayerForfeited)
	r.IsGameOver = true
	r.CurrentTurn = SymbolNone
	if opp := r.Opponent(playerID); opp != nil {
		r.Winner = opp.Symbol
	}
	r.Touch()
}

// ResetForRematch restores the room to a fresh-game state on the same
// code: empty board, new symbols, X to move, all timers cancelled,
// grace re-armed, in-flight turn timers invalidated via the version.
func (r *Room) ResetForRematch() {
	r.Board = NewBoard()
	r.IsGameOver = false
	r.Winner = SymbolNone
	r.CurrentTurn = SymbolNone
	for _, p := range r.Players {
		p.cancelTimers()
		p.Symbol = SymbolNone
		p.GraceUsed = false
	}
	r.RematchOffers = make(map[string]struct{})
	r.RematchExpiresAt = nil
	if r.RematchTimer != nil {
		r.RematchTimer.Cancel()
		r.RematchTimer = nil
	}
	r.TurnTimerVersion++

	first, second := AssignSymbols(Rand)
	r.Players[r.PlayerOrder[0]].Symbol = first
	r.Players[r.PlayerOrder[1]].Symbol = second
	r.CurrentTurn = SymbolX
	r.Touch()
}

// CancelAllTimers cancels every outstanding timer in the room and
// invalidates in-flight turn timers. Called before the room is
// deleted; deletion must not return with live timers.
func (r *Room) CancelAllTimers() {
	for _, p := range r.Players {
		p.cancelTimers()
	}
	if r.RematchTimer != nil {
		r.RematchTimer.Cancel()
		r.RematchTimer = nil
	}
	r.TurnTimerVersion++
}

// IsIdleForCleanup reports whether the sweeper should close the room:
// never-started and under-populated past the idle threshold, or all
// seats disconnected.
func (r *Room) IsIdleForCleanup(now time.Time, idleTimeout time.Duration) bool {
	if !r.SymbolsAssigned() && len(r.Players) < 2 && now.Sub(r.LastActivityAt) > idleTimeout {
		return true
	}
	return r.AllDisconnected()
}
