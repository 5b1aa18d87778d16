package ws

import (
	"encoding/json"
	"testing"
)

func TestResultType(t *testing.T) {
	tests := []struct {
		req  MessageType
		want MessageType
	}{
		{MsgCreateGame, "CreateGameResult"},
		{MsgMakeMove, "MakeMoveResult"},
		{MsgOfferRematch, "OfferRematchResult"},
	}
	for _, tt := range tests {
		if got := ResultType(tt.req); got != tt.want {
			t.Errorf("ResultType(%q) = %q, want %q", tt.req, got, tt.want)
		}
	}
}

func TestNewMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage(MsgGameCreated, GameCreatedPayload{
		Code:     "ABC234",
		Board:    make([]int, 9),
		PlayerID: "deadbeefdeadbeefdeadbeefdeadbeef",
	})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Type != MsgGameCreated {
		t.Fatalf("type %q, want GameCreated", decoded.Type)
	}

	var payload GameCreatedPayload
	if err := json.Unmarshal(decoded.Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal failed: %v", err)
	}
	if payload.Code != "ABC234" || len(payload.Board) != 9 {
		t.Fatalf("payload corrupted: %+v", payload)
	}
}

func TestNewMessageNilPayload(t *testing.T) {
	msg, err := NewMessage(MsgRoomClosed, nil)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `{"type":"RoomClosed"}` {
		t.Fatalf("unexpected wire form: %s", raw)
	}
}

func TestResultEnvelopeWireNames(t *testing.T) {
	res := Result{
		Success:       false,
		ErrorCode:     "NotYourTurn",
		ErrorMessage:  "It is not your turn",
		CorrelationID: "deadbeefdeadbeefdeadbeefdeadbeef",
	}
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, key := range []string{"success", "errorCode", "errorMessage", "correlationId", "serverTimestamp"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("wire envelope missing %q: %s", key, raw)
		}
	}
	if _, ok := fields["payload"]; ok {
		t.Error("empty payload was serialized")
	}
}
