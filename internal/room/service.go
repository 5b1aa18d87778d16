// Package room implements the room runtime: request handlers, the
// reconnection and turn-timeout services, the rematch controller, and
// the idle sweeper.
package room

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"tictactoe-online/internal/config"
	"tictactoe-online/internal/game"
	"tictactoe-online/internal/store"
	"tictactoe-online/internal/ws"
)

// Broadcaster is the transport surface the room runtime needs. The
// websocket hub implements it; tests substitute a recorder.
type Broadcaster interface {
	SendToConnection(connectionID string, msg *ws.Message)
	SendToGroup(code string, msg *ws.Message)
	SendToGroupExcept(code, exceptConnectionID string, msg *ws.Message)
	AddToGroup(connectionID, code string)
	RemoveGroup(code string)
}

// Service coordinates rooms, timers, and broadcasts. All room state is
// mutated under the room's own lock; the service never holds a lock
// across a send or a sleep.
type Service struct {
	cfg       *config.Config
	hub       Broadcaster
	registry  *store.Registry
	snapshots store.Store
}

// NewService wires the room runtime.
func NewService(cfg *config.Config, hub Broadcaster, registry *store.Registry, snapshots store.Store) *Service {
	return &Service{
		cfg:       cfg,
		hub:       hub,
		registry:  registry,
		snapshots: snapshots,
	}
}

// Registry exposes the live room registry (health endpoint, tests).
func (s *Service) Registry() *store.Registry {
	return s.registry
}

// okResult wraps a payload in a successful RPC envelope.
func okResult(payload interface{}) *ws.Result {
	res := &ws.Result{
		Success:         true,
		CorrelationID:   game.NewCorrelationID(),
		ServerTimestamp: time.Now().UTC(),
	}
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal result payload")
			return failResult(game.ErrInvalid, "internal encoding error")
		}
		res.Payload = bytes
	}
	return res
}

// failResult wraps an error code in a failed RPC envelope.
func failResult(code game.ErrorCode, details string) *ws.Result {
	return &ws.Result{
		Success:         false,
		ErrorCode:       string(code),
		ErrorMessage:    code.Message(),
		Details:         details,
		CorrelationID:   game.NewCorrelationID(),
		ServerTimestamp: time.Now().UTC(),
	}
}

// send pushes one typed message to a single connection.
func (s *Service) send(connectionID string, msgType ws.MessageType, payload interface{}) {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("failed to build message")
		return
	}
	s.hub.SendToConnection(connectionID, msg)
}

// broadcast pushes one typed message to a room group.
func (s *Service) broadcast(code string, msgType ws.MessageType, payload interface{}) {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("failed to build message")
		return
	}
	s.hub.SendToGroup(code, msg)
}

// broadcastExcept pushes to a room group minus one connection.
func (s *Service) broadcastExcept(code, exceptConnectionID string, msgType ws.MessageType, payload interface{}) {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("failed to build message")
		return
	}
	s.hub.SendToGroupExcept(code, exceptConnectionID, msg)
}

// broadcastGameOver emits the GameOver push with envelope fields set.
func (s *Service) broadcastGameOver(code string, payload ws.GameOverPayload) {
	payload.RoomCode = code
	payload.IsGameOver = true
	if payload.CorrelationID == "" {
		payload.CorrelationID = game.NewCorrelationID()
	}
	payload.ServerTimestamp = time.Now().UTC()
	s.broadcast(code, ws.MsgGameOver, payload)
}

// removeRoom cancels every outstanding timer, closes the lifecycle
// machine, and deletes the room from the registry and the snapshot
// mirror. Callers broadcast any farewell messages themselves, before
// calling.
func (s *Service) removeRoom(code string) {
	room, ok := s.registry.TryGet(code)
	if !ok {
		return
	}
	room.Lock()
	room.CancelAllTimers()
	room.Machine.Fire(game.EventRoomClosed)
	room.Unlock()

	s.registry.Delete(code)
	s.hub.RemoveGroup(code)
	s.deleteSnapshot(code)
	log.Info().Str("room", code).Msg("room removed")
}

// persist mirrors a room snapshot to the snapshot store, best-effort.
// Caller captures the snapshot under the room lock.
func (s *Service) persist(snap *store.RoomData) {
	if s.snapshots == nil || snap == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.snapshots.SaveRoom(ctx, snap); err != nil {
			log.Warn().Err(err).Str("room", snap.Code).Msg("failed to persist room snapshot")
		}
	}()
}

func (s *Service) deleteSnapshot(code string) {
	if s.snapshots == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.snapshots.DeleteRoom(ctx, code); err != nil {
			log.Warn().Err(err).Str("room", code).Msg("failed to delete room snapshot")
		}
	}()
}

// findRoomByConnection scans live rooms for the one holding this
// connection. Typically at most one.
func (s *Service) findRoomByConnection(connectionID string) (*game.Room, string) {
	for _, room := range s.registry.All() {
		room.Lock()
		p := room.PlayerByConnection(connectionID)
		room.Unlock()
		if p != nil {
			return room, p.ID
		}
	}
	return nil, ""
}

// generateUniqueCode samples codes until one misses the registry.
// Collision probability is negligible at expected occupancy.
func (s *Service) generateUniqueCode() string {
	for {
		code := game.GenerateCode(s.cfg.RoomCodeAlphabet, s.cfg.RoomCodeLength)
		if !s.registry.Exists(code) {
			return code
		}
	}
}
