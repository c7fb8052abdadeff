package room

import (
	"encoding/json"
	"testing"
)

func TestEvent_MarshalJSON_RoomCreated_CarriesDeleteToken(t *testing.T) {
	e := Event{Kind: KindRoomCreated, RoomHash: "H1", PeerID: "P1", DeleteToken: "T1"}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	json.Unmarshal(data, &m)
	if m["event"] != "room_created" || m["deleteToken"] != "T1" {
		t.Fatalf("unexpected shape: %s", data)
	}
}

func TestEvent_MarshalJSON_PeerJoined_NeverCarriesDeleteToken(t *testing.T) {
	e := Event{Kind: KindPeerJoined, RoomHash: "H1", PeerID: "P2", PeerCount: 2, DeleteToken: "leaked-if-present"}
	data, _ := json.Marshal(e)
	var m map[string]any
	json.Unmarshal(data, &m)
	if _, ok := m["deleteToken"]; ok {
		t.Fatalf("peer_joined must never carry a delete token, got %s", data)
	}
}

func TestEvent_MarshalJSON_Message_NestsEnvelope(t *testing.T) {
	env := Envelope{Room: "H1", From: "PA", Payload: "x", Nonce: "n", TS: 100}
	e := Event{Kind: KindMessage, Envelope: &env}
	data, _ := json.Marshal(e)
	var m map[string]any
	json.Unmarshal(data, &m)
	if m["event"] != "message" {
		t.Fatalf("unexpected shape: %s", data)
	}
	nested, ok := m["envelope"].(map[string]any)
	if !ok {
		t.Fatalf("message event must nest its fields under \"envelope\", got %s", data)
	}
	if nested["room"] != "H1" || nested["from"] != "PA" || nested["payload"] != "x" {
		t.Fatalf("envelope fields missing or wrong, got %s", data)
	}
	if _, flattened := m["room"]; flattened {
		t.Fatalf("message event must not also flatten envelope fields at the top level, got %s", data)
	}
}
