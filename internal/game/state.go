package game

import "github.com/rs/zerolog/log"

// State is a stage of the room lifecycle.
type State string

const (
	StateWaitingForPlayers State = "WaitingForPlayers"
	StateActive            State = "Active"
	StateGameOver          State = "GameOver"
	StateRematchOffered    State = "RematchOffered"
	StateRematchAccepted   State = "RematchAccepted"
	StateRematchExpired    State = "RematchExpired"
	StateClosed            State = "Closed"
)

// Event triggers a room lifecycle transition.
type Event string

const (
	EventPlayerJoined       Event = "PlayerJoined"
	EventMoveMade           Event = "MoveMade"
	EventGameWon            Event = "GameWon"
	EventGameDrawn          Event = "GameDrawn"
	EventPlayerForfeited    Event = "PlayerForfeited"
	EventPlayerDisconnected Event = "PlayerDisconnected"
	EventRematchOffered     Event = "RematchOffered"
	EventRematchAccepted    Event = "RematchAccepted"
	EventRematchExpired     Event = "RematchExpired"
	EventFirstMoveMade      Event = "FirstMoveMade"
	EventRoomClosed         Event = "RoomClosed"
)

// transitions holds every legal (state, event) pair except RoomClosed,
// which is legal from any non-terminal state.
var transitions = map[State]map[Event]State{
	StateWaitingForPlayers: {
		EventPlayerJoined: StateActive,
	},
	StateActive: {
		EventMoveMade:           StateActive,
		EventGameWon:            StateGameOver,
		EventGameDrawn:          StateGameOver,
		EventPlayerForfeited:    StateGameOver,
		EventPlayerDisconnected: StateActive,
	},
	StateGameOver: {
		EventRematchOffered: StateRematchOffered,
	},
	StateRematchOffered: {
		EventRematchAccepted: StateRematchAccepted,
		EventRematchExpired:  StateRematchExpired,
	},
	StateRematchAccepted: {
		EventFirstMoveMade: StateActive,
	},
}

// StateMachine is the per-room lifecycle machine. Each room owns its
// instance; it is guarded by the room lock and dies with the room.
type StateMachine struct {
	state State
	code  string
}

// NewStateMachine starts in WaitingForPlayers.
func NewStateMachine(roomCode string) *StateMachine {
	return &StateMachine{state: StateWaitingForPlayers, code: roomCode}
}

// Current returns the current state.
func (m *StateMachine) Current() State {
	return m.state
}

// Fire applies an event. Invalid pairs do not mutate state; the
// rejection is logged and false returned. Closed is terminal.
func (m *StateMachine) Fire(ev Event) bool {
	if m.state == StateClosed {
		log.Debug().Str("room", m.code).Str("event", string(ev)).
			Msg("event rejected: room closed")
		return false
	}
	if ev == EventRoomClosed {
		m.state = StateClosed
		return true
	}
	next, ok := transitions[m.state][ev]
	if !ok {
		log.Debug().Str("room", m.code).Str("state", string(m.state)).
			Str("event", string(ev)).Msg("invalid state transition rejected")
		return false
	}
	m.state = next
	return true
}
