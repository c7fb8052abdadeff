package push

import (
	"encoding/json"
	"testing"
)

func TestFrame_DecodesCreateRoom(t *testing.T) {
	var f frame
	raw := `{"event":"create_room","roomHash":"H1","ttl":120}`
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Event != eventCreateRoom || f.RoomHash != "H1" || f.TTL != 120 {
		t.Fatalf("decoded frame mismatch: %+v", f)
	}
}

func TestFrame_DecodesMessage(t *testing.T) {
	var f frame
	raw := `{"event":"message","envelope":{"room":"H2","from":"PA","payload":"X","nonce":"N","ts":100}}`
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Event != eventMessage || f.Envelope.Room != "H2" || f.Envelope.From != "PA" || f.Envelope.Payload != "X" || f.Envelope.Nonce != "N" || f.Envelope.TS != 100 {
		t.Fatalf("decoded frame mismatch: %+v", f)
	}
}

func TestErrorFrame_OmitsEmptyRoomHash(t *testing.T) {
	data, err := json.Marshal(errorFrame{Event: "error", Code: "ROOM_ERROR", Message: "room error"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	json.Unmarshal(data, &m)
	if _, ok := m["roomHash"]; ok {
		t.Fatalf("empty roomHash should be omitted, got %s", data)
	}
}
