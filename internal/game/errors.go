package game

// ErrorCode identifies why an RPC was rejected. Codes are part of the
// wire contract; clients switch on them.
type ErrorCode string

const (
	ErrNone                 ErrorCode = ""
	ErrInvalidIndex         ErrorCode = "InvalidIndex"
	ErrCellTaken            ErrorCode = "CellTaken"
	ErrNotYourTurn          ErrorCode = "NotYourTurn"
	ErrOpponentDisconnected ErrorCode = "OpponentDisconnected"
	ErrGameOver             ErrorCode = "GameOver"
	ErrInvalid              ErrorCode = "Invalid"
	ErrNotFound             ErrorCode = "NotFound"
	ErrRoomFull             ErrorCode = "RoomFull"
	ErrAlreadyInRoom        ErrorCode = "AlreadyInRoom"
	ErrReconnectRequired    ErrorCode = "ReconnectRequired"
	ErrPlayerIDInUse        ErrorCode = "PlayerIdInUse"
	ErrNotInGame            ErrorCode = "NotInGame"
	ErrReconnectFailed      ErrorCode = "ReconnectFailed"
	ErrOfferFailed          ErrorCode = "OfferFailed"
	ErrAcceptFailed         ErrorCode = "AcceptFailed"
)

var errorMessages = map[ErrorCode]string{
	ErrInvalidIndex:         "Move index must be between 0 and 8",
	ErrCellTaken:            "That cell is already taken",
	ErrNotYourTurn:          "It is not your turn",
	ErrOpponentDisconnected: "Your opponent is disconnected",
	ErrGameOver:             "The game is already over",
	ErrInvalid:              "Invalid request",
	ErrNotFound:             "Room not found",
	ErrRoomFull:             "Room is full",
	ErrAlreadyInRoom:        "You are already in this room",
	ErrReconnectRequired:    "Use Reconnect to resume this seat",
	ErrPlayerIDInUse:        "That player id belongs to another connection",
	ErrNotInGame:            "You are not in this game",
	ErrReconnectFailed:      "Reconnection failed",
	ErrOfferFailed:          "Cannot offer a rematch now",
	ErrAcceptFailed:         "Cannot accept a rematch now",
}

// Message returns the fixed human-readable message for the code.
func (c ErrorCode) Message() string {
	return errorMessages[c]
}
