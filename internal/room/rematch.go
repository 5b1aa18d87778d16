package room

import (
	"time"

	"github.com/rs/zerolog/log"

	"tictactoe-online/internal/game"
	"tictactoe-online/internal/store"
	"tictactoe-online/internal/ws"
)

// OfferRematch records a rematch offer. A live window keeps its
// original expiry; offering never extends it. When no window is live
// (or the previous one lapsed before the room closed), the offer opens
// a fresh one. Both seats offering is mutual agreement and starts the
// rematch.
func (s *Service) OfferRematch(connectionID, code string) *ws.Result {
	if !validRoomCode(code) {
		return failResult(game.ErrInvalid, "")
	}
	r, ok := s.registry.TryGet(code)
	if !ok {
		return failResult(game.ErrNotFound, "")
	}

	r.Lock()
	p := r.PlayerByConnection(connectionID)
	if p == nil {
		r.Unlock()
		return failResult(game.ErrNotInGame, "")
	}
	if !r.IsGameOver {
		r.Unlock()
		return failResult(game.ErrOfferFailed, "game is still running")
	}
	if !r.AllConnected() {
		r.Unlock()
		return failResult(game.ErrOfferFailed, "opponent is not connected")
	}

	newWindow := r.RematchExpiresAt == nil || time.Now().After(*r.RematchExpiresAt)
	var windowHandle *game.TimerHandle
	if newWindow {
		expiry := time.Now().Add(s.cfg.RematchWindow)
		r.RematchExpiresAt = &expiry
		if r.RematchTimer != nil {
			r.RematchTimer.Cancel()
		}
		windowHandle = game.NewTimerHandle()
		r.RematchTimer = windowHandle
	}
	r.Machine.Fire(game.EventRematchOffered)
	r.RematchOffers[p.ID] = struct{}{}
	expiresAt := *r.RematchExpiresAt
	mutual := len(r.RematchOffers) == len(r.Players)
	r.Touch()
	r.Unlock()

	if newWindow {
		s.broadcast(code, ws.MsgRematchWindowStarted, ws.RematchWindowStartedPayload{ExpiresAt: expiresAt})
		go s.runRematchWindow(code, expiresAt, windowHandle)
	}
	s.broadcast(code, ws.MsgRematchOffered, ws.RematchOfferedPayload{
		PlayerID:  p.ID,
		ExpiresAt: expiresAt,
	})
	if mutual {
		s.startRematch(r)
	}
	return okResult(nil)
}

// AcceptRematch adds the caller to the offer set inside a live window;
// once every seat is in, the room resets for the rematch.
func (s *Service) AcceptRematch(connectionID, code string) *ws.Result {
	if !validRoomCode(code) {
		return failResult(game.ErrInvalid, "")
	}
	r, ok := s.registry.TryGet(code)
	if !ok {
		return failResult(game.ErrNotFound, "")
	}

	r.Lock()
	p := r.PlayerByConnection(connectionID)
	if p == nil {
		r.Unlock()
		return failResult(game.ErrNotInGame, "")
	}
	if !r.IsGameOver || r.RematchExpiresAt == nil || time.Now().After(*r.RematchExpiresAt) {
		r.Unlock()
		return failResult(game.ErrAcceptFailed, "rematch window is closed")
	}
	if !r.AllConnected() {
		r.Unlock()
		return failResult(game.ErrAcceptFailed, "opponent is not connected")
	}
	r.RematchOffers[p.ID] = struct{}{}
	mutual := len(r.RematchOffers) == len(r.Players)
	r.Touch()
	r.Unlock()

	if mutual {
		s.startRematch(r)
	}
	return okResult(nil)
}

// startRematch resets the room onto the same code and restarts the
// game. The expiry task re-checks the window stamp under the lock, so
// whichever of reset and expiry locks first wins.
func (s *Service) startRematch(r *game.Room) {
	code := r.Code

	r.Lock()
	if r.Machine.Current() == game.StateClosed || !r.IsGameOver {
		r.Unlock()
		return
	}
	// Both seats accepting without an explicit offer arrives here
	// straight from GameOver; the first accept counts as the offer.
	if r.Machine.Current() == game.StateGameOver {
		r.Machine.Fire(game.EventRematchOffered)
	}
	r.Machine.Fire(game.EventRematchAccepted)
	r.ResetForRematch()
	started := ws.GameStartedPayload{
		Board:       append([]int(nil), r.Board...),
		CurrentTurn: string(r.CurrentTurn),
	}
	snap := store.Snapshot(r)
	r.Unlock()

	s.broadcast(code, ws.MsgRematchStarted, ws.RematchStartedPayload{Code: code})
	s.broadcast(code, ws.MsgGameStarted, started)
	s.persist(snap)
	go s.StartTurnTimeout(code)

	log.Info().Str("room", code).Msg("rematch started")
}

// runRematchWindow closes the room when the post-game window lapses
// without a rematch. Runs in its own goroutine; a rematch reset or
// room teardown cancels the handle and aborts the sleep.
func (s *Service) runRematchWindow(code string, expiresAt time.Time, handle *game.TimerHandle) {
	if !handle.Sleep(time.Until(expiresAt)) {
		return
	}

	r, ok := s.registry.TryGet(code)
	if !ok {
		return
	}
	r.Lock()
	if r.RematchTimer != handle || r.RematchExpiresAt == nil || !r.RematchExpiresAt.Equal(expiresAt) {
		r.Unlock()
		return
	}
	r.RematchTimer = nil
	// Rejected when no offer was ever made; the room closes either way.
	r.Machine.Fire(game.EventRematchExpired)
	r.Unlock()

	s.broadcast(code, ws.MsgRematchWindowExpired, ws.RematchWindowExpiredPayload{Code: code})
	s.broadcast(code, ws.MsgRoomClosed, ws.RoomClosedPayload{Code: code})
	s.removeRoom(code)
	log.Info().Str("room", code).Msg("rematch window expired")
}
