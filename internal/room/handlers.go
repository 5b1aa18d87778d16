package room

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"tictactoe-online/internal/game"
	"tictactoe-online/internal/store"
	"tictactoe-online/internal/ws"
)

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{4,6}$`)

func validRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

func validMoveIndex(index int) bool {
	return index >= 0 && index < game.BoardSize
}

// HandleMessage routes one client request and replies with the RPC
// result envelope on a "<Request>Result" message.
func (s *Service) HandleMessage(connectionID string, msg *ws.Message) {
	var res *ws.Result

	switch msg.Type {
	case ws.MsgCreateGame:
		res = s.CreateGame(connectionID)

	case ws.MsgJoinGame:
		var p ws.JoinGamePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			res = failResult(game.ErrInvalid, "malformed JoinGame payload")
		} else {
			res = s.JoinGame(connectionID, p.Code, p.ClientPlayerID)
		}

	case ws.MsgReconnect:
		var p ws.ReconnectPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			res = failResult(game.ErrInvalid, "malformed Reconnect payload")
		} else {
			res = s.Reconnect(connectionID, p.Code, p.PlayerID)
		}

	case ws.MsgGetGameState:
		var p ws.GetGameStatePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			res = failResult(game.ErrInvalid, "malformed GetGameState payload")
		} else {
			res = s.GetGameState(p.Code, p.PlayerID)
		}

	case ws.MsgMakeMove:
		var p ws.MakeMovePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			res = failResult(game.ErrInvalid, "malformed MakeMove payload")
		} else {
			res = s.MakeMove(connectionID, p.Code, p.Index)
		}

	case ws.MsgOfferRematch:
		var p ws.OfferRematchPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			res = failResult(game.ErrInvalid, "malformed OfferRematch payload")
		} else {
			res = s.OfferRematch(connectionID, p.Code)
		}

	case ws.MsgAcceptRematch:
		var p ws.AcceptRematchPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			res = failResult(game.ErrInvalid, "malformed AcceptRematch payload")
		} else {
			res = s.AcceptRematch(connectionID, p.Code)
		}

	case ws.MsgLeaveGame:
		res = s.LeaveGame(connectionID)

	default:
		log.Warn().Str("conn", connectionID).Str("type", string(msg.Type)).
			Msg("unknown message type")
		res = failResult(game.ErrInvalid, fmt.Sprintf("unknown message type %q", msg.Type))
	}

	s.send(connectionID, ws.ResultType(msg.Type), res)
}

// CreateGame issues a fresh room and seats the caller as its first
// player.
func (s *Service) CreateGame(connectionID string) *ws.Result {
	code := s.generateUniqueCode()
	playerID := game.NewPlayerID()

	r := game.NewRoom(code)
	r.Lock()
	r.AddConnection(playerID, connectionID, s.cfg.MaxPlayersPerRoom)
	snap := store.Snapshot(r)
	board := append([]int(nil), r.Board...)
	r.Unlock()

	if err := s.registry.Create(r); err != nil {
		// Collision between Exists check and Create; next call retries.
		log.Warn().Err(err).Str("room", code).Msg("room create collision")
		return failResult(game.ErrInvalid, "please retry")
	}

	s.hub.AddToGroup(connectionID, code)
	s.persist(snap)

	payload := ws.GameCreatedPayload{Code: code, Board: board, PlayerID: playerID}
	s.send(connectionID, ws.MsgGameCreated, payload)
	log.Info().Str("room", code).Str("player", playerID).Msg("room created")
	return okResult(payload)
}

// JoinGame seats the caller in an existing room, starting the game
// when it fills.
func (s *Service) JoinGame(connectionID, code, clientPlayerID string) *ws.Result {
	if !validRoomCode(code) {
		return failResult(game.ErrInvalid, "room code must be 4-6 uppercase alphanumerics")
	}
	if clientPlayerID != "" && !game.ValidPlayerID(clientPlayerID) {
		return failResult(game.ErrInvalid, "playerId must be a UUID")
	}
	r, ok := s.registry.TryGet(code)
	if !ok {
		return failResult(game.ErrNotFound, "")
	}

	r.Lock()

	if clientPlayerID != "" {
		if p, known := r.Players[clientPlayerID]; known {
			switch {
			case p.ConnectionID == connectionID:
				r.Unlock()
				return failResult(game.ErrAlreadyInRoom, "")
			case !p.Connected():
				r.Unlock()
				return failResult(game.ErrReconnectRequired, "")
			default:
				r.Unlock()
				return failResult(game.ErrPlayerIDInUse, "")
			}
		}
	}

	// A caller already seated with a running game gets their state back.
	if p := r.PlayerByConnection(connectionID); p != nil && r.SymbolsAssigned() {
		payload := ws.GameJoinedPayload{
			Code:        code,
			Board:       append([]int(nil), r.Board...),
			Symbol:      string(p.Symbol),
			CurrentTurn: string(r.CurrentTurn),
			PlayerID:    p.ID,
		}
		r.Unlock()
		return okResult(payload)
	}

	if !r.AllConnected() || !r.CanJoin(s.cfg.MaxPlayersPerRoom) {
		r.Unlock()
		s.send(connectionID, ws.MsgGameFull, ws.GameFullPayload{Code: code})
		return failResult(game.ErrRoomFull, "")
	}

	seat, created := r.AddConnection(game.NewPlayerID(), connectionID, s.cfg.MaxPlayersPerRoom)
	if seat == nil {
		r.Unlock()
		s.send(connectionID, ws.MsgGameFull, ws.GameFullPayload{Code: code})
		return failResult(game.ErrRoomFull, "")
	}
	playerID := seat.ID
	started := false
	if len(r.PlayerOrder) == 2 && !r.SymbolsAssigned() {
		started = r.TryStartGame()
	}

	joined := ws.GameJoinedPayload{
		Code:        code,
		Board:       append([]int(nil), r.Board...),
		Symbol:      string(seat.Symbol),
		CurrentTurn: string(r.CurrentTurn),
		PlayerID:    playerID,
	}
	startedPayload := ws.GameStartedPayload{
		Board:       append([]int(nil), r.Board...),
		CurrentTurn: string(r.CurrentTurn),
	}
	snap := store.Snapshot(r)
	r.Unlock()

	s.hub.AddToGroup(connectionID, code)
	s.send(connectionID, ws.MsgGameJoined, joined)
	if created {
		s.broadcastExcept(code, connectionID, ws.MsgPlayerJoined, ws.PlayerJoinedPayload{})
	}
	if started {
		s.broadcast(code, ws.MsgGameStarted, startedPayload)
		go s.StartTurnTimeout(code)
	}
	s.persist(snap)

	log.Info().Str("room", code).Str("player", playerID).Bool("started", started).
		Msg("player joined")
	return okResult(joined)
}

// Reconnect rebinds a returning player's connection and resumes the
// game clock.
func (s *Service) Reconnect(connectionID, code, playerID string) *ws.Result {
	if !validRoomCode(code) || !game.ValidPlayerID(playerID) {
		return failResult(game.ErrInvalid, "")
	}
	r, ok := s.registry.TryGet(code)
	if !ok {
		return failResult(game.ErrNotFound, "")
	}

	r.Lock()
	p, known := r.Players[playerID]
	if !known {
		r.Unlock()
		return failResult(game.ErrReconnectFailed, "unknown player")
	}
	if p.Connected() && p.ConnectionID != connectionID {
		r.Unlock()
		return failResult(game.ErrReconnectFailed, "seat is held by a live connection")
	}

	p.ConnectionID = connectionID
	if p.ReconnectTimer != nil {
		p.ReconnectTimer.Cancel()
		p.ReconnectTimer = nil
	}
	p.ReconnectExpiresAt = nil
	r.Touch()

	sync := ws.SyncedStatePayload{
		Board:       append([]int(nil), r.Board...),
		Symbol:      string(p.Symbol),
		CurrentTurn: string(r.CurrentTurn),
		IsGameOver:  r.IsGameOver,
		Winner:      string(r.Winner),
	}
	resumeTurn := r.SymbolsAssigned() && !r.IsGameOver && r.AllConnected()
	needStart := len(r.PlayerOrder) == 2 && r.AllConnected() && !r.SymbolsAssigned()
	started := false
	if needStart {
		started = r.TryStartGame()
	}
	startedPayload := ws.GameStartedPayload{
		Board:       append([]int(nil), r.Board...),
		CurrentTurn: string(r.CurrentTurn),
	}
	snap := store.Snapshot(r)
	r.Unlock()

	s.hub.AddToGroup(connectionID, code)
	s.send(connectionID, ws.MsgSyncedState, sync)
	s.broadcast(code, ws.MsgPlayerReconnected, ws.PlayerReconnectedPayload{PlayerID: playerID})
	if started {
		s.broadcast(code, ws.MsgGameStarted, startedPayload)
	}
	if resumeTurn || started {
		go s.StartTurnTimeout(code)
	}
	s.persist(snap)

	log.Info().Str("room", code).Str("player", playerID).Msg("player reconnected")
	return okResult(sync)
}

// GetGameState returns the caller's view of the room.
func (s *Service) GetGameState(code, playerID string) *ws.Result {
	if !validRoomCode(code) || !game.ValidPlayerID(playerID) {
		return failResult(game.ErrInvalid, "")
	}
	r, ok := s.registry.TryGet(code)
	if !ok {
		return failResult(game.ErrNotFound, "")
	}

	r.Lock()
	p, known := r.Players[playerID]
	if !known {
		r.Unlock()
		return failResult(game.ErrNotInGame, "")
	}
	sync := ws.SyncedStatePayload{
		Board:       append([]int(nil), r.Board...),
		Symbol:      string(p.Symbol),
		CurrentTurn: string(r.CurrentTurn),
		IsGameOver:  r.IsGameOver,
		Winner:      string(r.Winner),
	}
	r.Unlock()
	return okResult(sync)
}

// MakeMove applies a move, broadcasts the delta, and either restarts
// the turn clock or finishes the game and opens the rematch window.
func (s *Service) MakeMove(connectionID, code string, index int) *ws.Result {
	if !validRoomCode(code) {
		return failResult(game.ErrInvalid, "")
	}
	if !validMoveIndex(index) {
		return failResult(game.ErrInvalidIndex, "")
	}
	r, ok := s.registry.TryGet(code)
	if !ok {
		return failResult(game.ErrNotFound, "")
	}

	r.Lock()
	mover := r.PlayerByConnection(connectionID)
	outcome, errCode := r.TryMakeMove(connectionID, index)
	if errCode != game.ErrNone {
		r.Unlock()
		return failResult(errCode, "")
	}

	// The move consumed the turn; destroy the running clock.
	for _, p := range r.Players {
		if p.TurnTimer != nil {
			p.TurnTimer.Cancel()
			p.TurnTimer = nil
		}
		p.TurnExpiresAt = nil
		p.RemainingTurnSeconds = nil
	}

	update := ws.BoardUpdatedPayload{
		Board:       append([]int(nil), r.Board...),
		CurrentTurn: string(r.CurrentTurn),
		IsGameOver:  r.IsGameOver,
		Winner:      string(r.Winner),
	}

	var over ws.GameOverPayload
	var windowExpiry time.Time
	var windowHandle *game.TimerHandle
	if r.IsGameOver {
		windowExpiry = time.Now().Add(s.cfg.RematchWindow)
		r.RematchExpiresAt = &windowExpiry
		windowHandle = game.NewTimerHandle()
		r.RematchTimer = windowHandle

		over = ws.GameOverPayload{
			Result:        ws.ResultDraw,
			BoardSnapshot: append([]int(nil), r.Board...),
		}
		if outcome.Status == game.MoveWin {
			over.Result = ws.ResultWinner
			over.WinnerSymbol = string(r.Winner)
			over.WinnerID = mover.ID
		}
	}
	snap := store.Snapshot(r)
	r.Unlock()

	s.broadcast(code, ws.MsgBoardUpdated, update)
	if update.IsGameOver {
		s.broadcastGameOver(code, over)
		s.broadcast(code, ws.MsgRematchWindowStarted, ws.RematchWindowStartedPayload{ExpiresAt: windowExpiry})
		go s.runRematchWindow(code, windowExpiry, windowHandle)
	} else {
		go s.StartTurnTimeout(code)
	}
	s.persist(snap)

	return okResult(update)
}

// LeaveGame is an explicit exit: a started, unfinished game is an
// immediate forfeit; otherwise the room just closes.
func (s *Service) LeaveGame(connectionID string) *ws.Result {
	r, playerID := s.findRoomByConnection(connectionID)
	if r == nil {
		return failResult(game.ErrNotFound, "")
	}
	code := r.Code

	r.Lock()
	forfeit := r.SymbolsAssigned() && !r.IsGameOver
	var over ws.GameOverPayload
	if forfeit {
		r.Forfeit(playerID)
		winnerID := ""
		if opp := r.Opponent(playerID); opp != nil {
			winnerID = opp.ID
		}
		over = ws.GameOverPayload{
			Result:        ws.ResultWinner,
			WinnerID:      winnerID,
			WinnerSymbol:  string(r.Winner),
			BoardSnapshot: append([]int(nil), r.Board...),
			Message:       "Opponent left the game",
		}
	}
	r.Unlock()

	if forfeit {
		s.broadcastGameOver(code, over)
	} else {
		s.broadcast(code, ws.MsgRoomClosed, ws.RoomClosedPayload{Code: code})
	}
	s.removeRoom(code)

	log.Info().Str("room", code).Str("player", playerID).Bool("forfeit", forfeit).
		Msg("player left")
	return okResult(nil)
}

// HandleDisconnect is the transport's disconnect hook. It is
// best-effort: it logs and continues across rooms, never aborting the
// outer callback.
func (s *Service) HandleDisconnect(connectionID string) {
	for _, r := range s.registry.All() {
		code := r.Code

		r.Lock()
		p := r.PlayerByConnection(connectionID)
		if p == nil {
			r.Unlock()
			continue
		}

		scheduleClose := false
		var cancelTurn *game.TimerHandle

		if r.IsGameOver && r.RematchExpiresAt != nil {
			// No new grace in the post-game window.
			scheduleClose = true
		} else if r.SymbolsAssigned() && !r.IsGameOver {
			r.Machine.Fire(game.EventPlayerDisconnected)
			if holder := r.CurrentTurnPlayer(); holder != nil && holder.TurnTimer != nil {
				remaining := int(s.cfg.TurnTimeout.Seconds())
				if holder.TurnExpiresAt != nil {
					// Round up so a clock paused at 17.2s resumes at 18.
					remaining = int((time.Until(*holder.TurnExpiresAt) + time.Second - 1) / time.Second)
					if remaining < 0 {
						remaining = 0
					}
				}
				holder.RemainingTurnSeconds = &remaining
				cancelTurn = holder.TurnTimer
				holder.TurnTimer = nil
			}
		}

		r.RemoveConnection(connectionID)
		playerID := p.ID
		if r.AllDisconnected() {
			scheduleClose = true
		}
		r.Unlock()

		// Cancelling outside the lock lets the timer task emit
		// TurnCountdownPaused from its own cleanup branch.
		if cancelTurn != nil {
			cancelTurn.Cancel()
		}

		if scheduleClose {
			s.broadcast(code, ws.MsgRoomClosed, ws.RoomClosedPayload{Code: code})
			s.removeRoom(code)
			log.Info().Str("room", code).Str("player", playerID).
				Msg("room closed on disconnect")
			continue
		}

		go s.StartGracePeriod(code, playerID)
	}
}
