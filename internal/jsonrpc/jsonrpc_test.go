package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestRequestRoundTripsThroughJSON(t *testing.T) {
	req := Request{JSONRPC: "2.0", ID: IntPtr(7), Method: "tasks/get", Params: json.RawMessage(`{"taskId":"abc"}`)}
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Request
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Method != "tasks/get" || *decoded.ID != 7 {
		t.Fatalf("decoded = %+v, want method tasks/get id 7", decoded)
	}
}

func TestResponseErrorOmitsResult(t *testing.T) {
	resp := Response{JSONRPC: "2.0", ID: IntPtr(1), Error: &Error{Code: CodeTaskNotFound, Message: "not found"}}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	json.Unmarshal(raw, &decoded)
	if _, ok := decoded["result"]; ok {
		t.Fatal("expected result to be omitted when an error is present")
	}
	if decoded["error"] == nil {
		t.Fatal("expected error to be present")
	}
}

func TestNotificationHasNilID(t *testing.T) {
	req := Request{JSONRPC: "2.0", Method: "notifications/initialized"}
	raw, _ := json.Marshal(req)
	var decoded map[string]any
	json.Unmarshal(raw, &decoded)
	if _, ok := decoded["id"]; ok {
		t.Fatal("expected id to be omitted for a notification")
	}
}
