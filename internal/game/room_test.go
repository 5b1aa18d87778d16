package game

import (
	"testing"
	"time"
)

func startedRoom(t *testing.T) (*Room, *Player, *Player) {
	t.Helper()
	r := NewRoom("TEST01")
	r.AddConnection("p1", "conn1", 2)
	r.AddConnection("p2", "conn2", 2)
	if !r.TryStartGame() {
		t.Fatal("game did not start with two players")
	}
	x := r.Players["p1"]
	o := r.Players["p2"]
	if x.Symbol != SymbolX {
		x, o = o, x
	}
	return r, x, o
}

func TestAddConnectionIdempotentPerConnection(t *testing.T) {
	r := NewRoom("TEST01")
	p, created := r.AddConnection("p1", "conn1", 2)
	if !created || p == nil {
		t.Fatal("first AddConnection did not create a seat")
	}
	again, created := r.AddConnection("other", "conn1", 2)
	if created {
		t.Fatal("same connection got a second seat")
	}
	if again != p {
		t.Fatal("same connection resolved to a different seat")
	}
	if len(r.Players) != 1 {
		t.Fatalf("room has %d seats, want 1", len(r.Players))
	}
}

func TestAddConnectionRebindsKnownPlayer(t *testing.T) {
	r := NewRoom("TEST01")
	r.AddConnection("p1", "conn1", 2)
	r.RemoveConnection("conn1")

	p, created := r.AddConnection("p1", "conn9", 2)
	if created {
		t.Fatal("rebind created a new seat")
	}
	if p.ConnectionID != "conn9" {
		t.Fatalf("seat bound to %q, want conn9", p.ConnectionID)
	}
}

func TestAddConnectionRespectsCapacity(t *testing.T) {
	r := NewRoom("TEST01")
	r.AddConnection("p1", "conn1", 2)
	r.AddConnection("p2", "conn2", 2)
	p, created := r.AddConnection("p3", "conn3", 2)
	if p != nil || created {
		t.Fatal("third player was seated in a two-player room")
	}
}

func TestTryStartGameRequiresTwoPlayers(t *testing.T) {
	r := NewRoom("TEST01")
	r.AddConnection("p1", "conn1", 2)
	if r.TryStartGame() {
		t.Fatal("game started with a single player")
	}
	r.AddConnection("p2", "conn2", 2)
	if !r.TryStartGame() {
		t.Fatal("game did not start with two players")
	}
	if r.TryStartGame() {
		t.Fatal("game started twice")
	}
	if r.CurrentTurn != SymbolX {
		t.Fatalf("first turn is %q, want X", r.CurrentTurn)
	}
}

func TestTryMakeMoveGateOrder(t *testing.T) {
	t.Run("game over wins over everything", func(t *testing.T) {
		r, x, _ := startedRoom(t)
		r.IsGameOver = true
		if _, code := r.TryMakeMove(x.ConnectionID, 0); code != ErrGameOver {
			t.Fatalf("got %q, want GameOver", code)
		}
	})

	t.Run("stranger", func(t *testing.T) {
		r, _, _ := startedRoom(t)
		if _, code := r.TryMakeMove("nope", 0); code != ErrNotInGame {
			t.Fatalf("got %q, want NotInGame", code)
		}
	})

	t.Run("opponent disconnected beats turn check", func(t *testing.T) {
		r, x, o := startedRoom(t)
		r.RemoveConnection(o.ConnectionID)
		if _, code := r.TryMakeMove(x.ConnectionID, 0); code != ErrOpponentDisconnected {
			t.Fatalf("got %q, want OpponentDisconnected", code)
		}
	})

	t.Run("not your turn", func(t *testing.T) {
		r, _, o := startedRoom(t)
		if _, code := r.TryMakeMove(o.ConnectionID, 0); code != ErrNotYourTurn {
			t.Fatalf("got %q, want NotYourTurn", code)
		}
	})

	t.Run("cell taken", func(t *testing.T) {
		r, x, o := startedRoom(t)
		if _, code := r.TryMakeMove(x.ConnectionID, 4); code != ErrNone {
			t.Fatalf("legal move rejected: %q", code)
		}
		if _, code := r.TryMakeMove(o.ConnectionID, 4); code != ErrCellTaken {
			t.Fatalf("got %q, want CellTaken", code)
		}
	})
}

func TestTryMakeMoveFullGameToWin(t *testing.T) {
	r, x, o := startedRoom(t)

	// X: 0 4 8 (diagonal), O: 1 2
	moves := []struct {
		conn string
		idx  int
	}{
		{x.ConnectionID, 0},
		{o.ConnectionID, 1},
		{x.ConnectionID, 4},
		{o.ConnectionID, 2},
	}
	for _, m := range moves {
		if _, code := r.TryMakeMove(m.conn, m.idx); code != ErrNone {
			t.Fatalf("move %+v rejected: %q", m, code)
		}
	}
	outcome, code := r.TryMakeMove(x.ConnectionID, 8)
	if code != ErrNone {
		t.Fatalf("winning move rejected: %q", code)
	}
	if outcome.Status != MoveWin {
		t.Fatalf("got status %v, want MoveWin", outcome.Status)
	}
	if !r.IsGameOver || r.Winner != x.Symbol {
		t.Fatalf("room not settled: over=%v winner=%q", r.IsGameOver, r.Winner)
	}
	if r.CurrentTurn != SymbolNone {
		t.Fatalf("turn %q remains after game over", r.CurrentTurn)
	}
	if r.Machine.Current() != StateGameOver {
		t.Fatalf("machine in %q, want GameOver", r.Machine.Current())
	}
}

func TestTryMakeMoveFullGameToDraw(t *testing.T) {
	r, x, o := startedRoom(t)

	// X: 0 2 3 5 7, O: 1 4 6 8 -> no line
	seq := []struct {
		conn string
		idx  int
	}{
		{x.ConnectionID, 0}, {o.ConnectionID, 1},
		{x.ConnectionID, 2}, {o.ConnectionID, 4},
		{x.ConnectionID, 3}, {o.ConnectionID, 6},
		{x.ConnectionID, 5}, {o.ConnectionID, 8},
	}
	for _, m := range seq {
		if _, code := r.TryMakeMove(m.conn, m.idx); code != ErrNone {
			t.Fatalf("move %+v rejected: %q", m, code)
		}
	}
	outcome, code := r.TryMakeMove(x.ConnectionID, 7)
	if code != ErrNone {
		t.Fatalf("final move rejected: %q", code)
	}
	if outcome.Status != MoveDraw {
		t.Fatalf("got status %v, want MoveDraw", outcome.Status)
	}
	if !r.IsGameOver || r.Winner != SymbolNone {
		t.Fatalf("draw not settled: over=%v winner=%q", r.IsGameOver, r.Winner)
	}
}

func TestForfeitSettlesForOpponent(t *testing.T) {
	r, x, o := startedRoom(t)
	r.Forfeit(x.ID)
	if !r.IsGameOver {
		t.Fatal("forfeit did not end the game")
	}
	if r.Winner != o.Symbol {
		t.Fatalf("winner %q, want %q", r.Winner, o.Symbol)
	}
	if r.Machine.Current() != StateGameOver {
		t.Fatalf("machine in %q, want GameOver", r.Machine.Current())
	}

	// A second forfeit is a no-op.
	r.Forfeit(o.ID)
	if r.Winner != o.Symbol {
		t.Fatal("second forfeit overwrote the result")
	}
}

func TestResetForRematch(t *testing.T) {
	r, x, o := startedRoom(t)
	r.TryMakeMove(x.ConnectionID, 0)
	r.Forfeit(o.ID)

	x.GraceUsed = true
	x.TurnTimer = NewTimerHandle()
	exp := time.Now().Add(time.Minute)
	r.RematchExpiresAt = &exp
	r.RematchOffers[x.ID] = struct{}{}
	r.RematchTimer = NewTimerHandle()
	oldVersion := r.TurnTimerVersion
	oldTimer := x.TurnTimer
	oldWindow := r.RematchTimer
	r.Machine.Fire(EventRematchOffered)
	r.Machine.Fire(EventRematchAccepted)

	r.ResetForRematch()

	for i, cell := range r.Board {
		if cell != CellEmpty {
			t.Fatalf("board[%d] = %d after reset", i, cell)
		}
	}
	if r.IsGameOver || r.Winner != SymbolNone {
		t.Fatal("result survived the reset")
	}
	if r.CurrentTurn != SymbolX {
		t.Fatalf("first turn %q, want X", r.CurrentTurn)
	}
	if x.GraceUsed || o.GraceUsed {
		t.Fatal("grace latch survived the reset")
	}
	if !oldTimer.Cancelled() {
		t.Fatal("outstanding turn timer not cancelled")
	}
	if r.TurnTimerVersion <= oldVersion {
		t.Fatal("timer version not bumped")
	}
	if len(r.RematchOffers) != 0 || r.RematchExpiresAt != nil {
		t.Fatal("rematch bookkeeping survived the reset")
	}
	if !oldWindow.Cancelled() || r.RematchTimer != nil {
		t.Fatal("rematch window task not cancelled by the reset")
	}
	if x.Symbol == SymbolNone || o.Symbol == SymbolNone || x.Symbol == o.Symbol {
		t.Fatalf("bad symbols after reset: %q %q", x.Symbol, o.Symbol)
	}
}

func TestCancelAllTimersStopsEverything(t *testing.T) {
	r, x, o := startedRoom(t)
	x.TurnTimer = NewTimerHandle()
	o.ReconnectTimer = NewTimerHandle()
	r.RematchTimer = NewTimerHandle()
	turn, grace, window := x.TurnTimer, o.ReconnectTimer, r.RematchTimer
	oldVersion := r.TurnTimerVersion

	r.CancelAllTimers()

	for name, h := range map[string]*TimerHandle{"turn": turn, "grace": grace, "window": window} {
		if !h.Cancelled() {
			t.Errorf("%s timer not cancelled", name)
		}
	}
	if x.TurnTimer != nil || o.ReconnectTimer != nil || r.RematchTimer != nil {
		t.Fatal("handle fields not cleared")
	}
	if r.TurnTimerVersion <= oldVersion {
		t.Fatal("timer version not bumped")
	}
}

func TestIsIdleForCleanup(t *testing.T) {
	now := time.Now()

	r := NewRoom("TEST01")
	r.AddConnection("p1", "conn1", 2)
	if r.IsIdleForCleanup(now, 5*time.Minute) {
		t.Fatal("fresh waiting room flagged idle")
	}
	if !r.IsIdleForCleanup(now.Add(6*time.Minute), 5*time.Minute) {
		t.Fatal("stale waiting room not flagged idle")
	}

	r2, x, o := startedRoom(t)
	if r2.IsIdleForCleanup(now.Add(time.Hour), 5*time.Minute) {
		t.Fatal("connected active room flagged idle")
	}
	r2.RemoveConnection(x.ConnectionID)
	r2.RemoveConnection(o.ConnectionID)
	if !r2.IsIdleForCleanup(now, 5*time.Minute) {
		t.Fatal("fully disconnected room not flagged idle")
	}

	empty := NewRoom("TEST02")
	if empty.IsIdleForCleanup(now, 5*time.Minute) {
		t.Fatal("empty zero-seat room flagged as all-disconnected")
	}
}

func TestCurrentTurnPlayerAndOpponent(t *testing.T) {
	r, x, o := startedRoom(t)
	if got := r.CurrentTurnPlayer(); got != x {
		t.Fatalf("turn holder %+v, want X seat", got)
	}
	if got := r.Opponent(x.ID); got != o {
		t.Fatal("opponent lookup failed")
	}
	r.CurrentTurn = SymbolNone
	if r.CurrentTurnPlayer() != nil {
		t.Fatal("turn holder found without a turn")
	}
}
