package ws

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of a websocket message.
type MessageType string

const (
	// Client -> Server requests
	MsgCreateGame    MessageType = "CreateGame"
	MsgJoinGame      MessageType = "JoinGame"
	MsgReconnect     MessageType = "Reconnect"
	MsgGetGameState  MessageType = "GetGameState"
	MsgMakeMove      MessageType = "MakeMove"
	MsgOfferRematch  MessageType = "OfferRematch"
	MsgAcceptRematch MessageType = "AcceptRematch"
	MsgLeaveGame     MessageType = "LeaveGame"

	// Server -> Client pushes
	MsgGameCreated          MessageType = "GameCreated"
	MsgGameJoined           MessageType = "GameJoined"
	MsgGameStarted          MessageType = "GameStarted"
	MsgGameFull             MessageType = "GameFull"
	MsgPlayerJoined         MessageType = "PlayerJoined"
	MsgPlayerLeft           MessageType = "PlayerLeft"
	MsgPlayerReconnected    MessageType = "PlayerReconnected"
	MsgSyncedState          MessageType = "SyncedState"
	MsgBoardUpdated         MessageType = "BoardUpdated"
	MsgCountdownTick        MessageType = "CountdownTick"
	MsgTurnCountdownResumed MessageType = "TurnCountdownResumed"
	MsgTurnCountdownTick    MessageType = "TurnCountdownTick"
	MsgTurnCountdownPaused  MessageType = "TurnCountdownPaused"
	MsgRematchOffered       MessageType = "RematchOffered"
	MsgRematchWindowStarted MessageType = "RematchWindowStarted"
	MsgRematchWindowExpired MessageType = "RematchWindowExpired"
	MsgRematchStarted       MessageType = "RematchStarted"
	MsgGameOver             MessageType = "GameOver"
	MsgRoomClosed           MessageType = "RoomClosed"
)

// ResultType names the reply message for a request type.
func ResultType(request MessageType) MessageType {
	return request + "Result"
}

// Message is the base websocket message structure.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage wraps a typed payload in the envelope.
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}
	return &Message{Type: msgType, Payload: payloadBytes}, nil
}

// Result is the uniform RPC response envelope.
type Result struct {
	Success         bool            `json:"success"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	Details         string          `json:"details,omitempty"`
	CorrelationID   string          `json:"correlationId"`
	ServerTimestamp time.Time       `json:"serverTimestamp"`
}

// Client -> Server payloads

type JoinGamePayload struct {
	Code           string `json:"code"`
	ClientPlayerID string `json:"clientPlayerId,omitempty"`
}

type ReconnectPayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
}

type GetGameStatePayload struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
}

type MakeMovePayload struct {
	Code     string `json:"code"`
	Index    int    `json:"index"`
	PlayerID string `json:"playerId,omitempty"`
}

type OfferRematchPayload struct {
	Code string `json:"code"`
}

type AcceptRematchPayload struct {
	Code string `json:"code"`
}

// Server -> Client payloads. Optional symbol fields are omitted when
// unset, which clients read as null.

type GameCreatedPayload struct {
	Code     string `json:"code"`
	Board    []int  `json:"board"`
	PlayerID string `json:"playerId"`
}

type GameJoinedPayload struct {
	Code        string `json:"code"`
	Board       []int  `json:"board"`
	Symbol      string `json:"symbol,omitempty"`
	CurrentTurn string `json:"currentTurn,omitempty"`
	PlayerID    string `json:"playerId"`
}

type GameStartedPayload struct {
	Board       []int  `json:"board"`
	CurrentTurn string `json:"currentTurn"`
}

type GameFullPayload struct {
	Code string `json:"code"`
}

type PlayerJoinedPayload struct{}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type PlayerReconnectedPayload struct {
	PlayerID string `json:"playerId"`
}

type SyncedStatePayload struct {
	Board       []int  `json:"board"`
	Symbol      string `json:"symbol,omitempty"`
	CurrentTurn string `json:"currentTurn,omitempty"`
	IsGameOver  bool   `json:"isGameOver"`
	Winner      string `json:"winner,omitempty"`
}

type BoardUpdatedPayload struct {
	Board       []int  `json:"board"`
	CurrentTurn string `json:"currentTurn,omitempty"`
	IsGameOver  bool   `json:"isGameOver"`
	Winner      string `json:"winner,omitempty"`
}

// CountdownTickPayload carries the reconnection grace countdown.
type CountdownTickPayload struct {
	PlayerID         string `json:"playerId"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

type TurnCountdownResumedPayload struct {
	PlayerID     string    `json:"playerId"`
	TotalSeconds int       `json:"totalSeconds"`
	ExpiresAtUTC time.Time `json:"expiresAtUtc"`
	ServerNow    time.Time `json:"serverNow"`
}

type TurnCountdownTickPayload struct {
	PlayerID         string    `json:"playerId"`
	RemainingSeconds int       `json:"remainingSeconds"`
	ExpiresAtUTC     time.Time `json:"expiresAtUtc"`
	ServerNow        time.Time `json:"serverNow"`
}

type TurnCountdownPausedPayload struct {
	PlayerID         string    `json:"playerId"`
	RemainingSeconds int       `json:"remainingSeconds"`
	ServerNow        time.Time `json:"serverNow"`
}

type RematchOfferedPayload struct {
	PlayerID  string    `json:"playerId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RematchWindowStartedPayload struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

type RematchWindowExpiredPayload struct {
	Code string `json:"code"`
}

type RematchStartedPayload struct {
	Code string `json:"code"`
}

// Game result values for GameOverPayload.
const (
	ResultWinner    = "Winner"
	ResultDraw      = "Draw"
	ResultCancelled = "Cancelled"
)

type GameOverPayload struct {
	RoomCode        string    `json:"roomCode"`
	Result          string    `json:"result"`
	WinnerID        string    `json:"winnerId,omitempty"`
	WinnerSymbol    string    `json:"winnerSymbol,omitempty"`
	BoardSnapshot   []int     `json:"boardSnapshot,omitempty"`
	CurrentTurn     string    `json:"currentTurn,omitempty"`
	IsGameOver      bool      `json:"isGameOver"`
	Message         string    `json:"message,omitempty"`
	CorrelationID   string    `json:"correlationId,omitempty"`
	ServerTimestamp time.Time `json:"serverTimestamp,omitempty"`
}

type RoomClosedPayload struct {
	Code string `json:"code"`
}
