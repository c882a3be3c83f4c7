package artifact

import (
	"encoding/json"
	"testing"
)

func TestCanonicalJSON_SortsKeys(t *testing.T) {
	a := json.RawMessage(`{"b": 2, "a": 1, "nested": {"z": true, "y": false}}`)
	b := json.RawMessage(`{"nested":{"y":false,"z":true},"a":1,"b":2}`)

	ca, err := CanonicalJSON(a)
	if err != nil {
		t.Fatalf("CanonicalJSON(a) failed: %v", err)
	}
	cb, err := CanonicalJSON(b)
	if err != nil {
		t.Fatalf("CanonicalJSON(b) failed: %v", err)
	}

	if string(ca) != string(cb) {
		t.Errorf("canonical forms differ:\n%s\n%s", ca, cb)
	}
}

func TestCanonicalJSON_Struct(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	out, err := CanonicalJSON(payload{Name: "x", Count: 3})
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	if string(out) != `{"count":3,"name":"x"}` {
		t.Errorf("unexpected canonical form: %s", out)
	}
}

func TestCanonicalJSON_InvalidJSON(t *testing.T) {
	_, err := CanonicalJSON(json.RawMessage(`{not json`))
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestHashJSON_Deterministic(t *testing.T) {
	v := map[string]any{"keyword": "best coffee makers", "volume": 4400}

	h1, err := HashJSON(v)
	if err != nil {
		t.Fatalf("HashJSON failed: %v", err)
	}
	h2, err := HashJSON(v)
	if err != nil {
		t.Fatalf("HashJSON failed: %v", err)
	}

	if h1 != h2 {
		t.Errorf("hash not deterministic: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestHashJSON_DistinguishesPayloads(t *testing.T) {
	h1, err := HashJSON(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("HashJSON failed: %v", err)
	}
	h2, err := HashJSON(map[string]int{"a": 2})
	if err != nil {
		t.Fatalf("HashJSON failed: %v", err)
	}
	if h1 == h2 {
		t.Error("different payloads produced identical hashes")
	}
}

func TestHashBytes_FormattingInsensitive(t *testing.T) {
	compact := json.RawMessage(`{"a":1,"b":[1,2,3]}`)
	indented := json.RawMessage("{\n  \"b\": [1, 2, 3],\n  \"a\": 1\n}")

	if HashBytes(compact) != HashBytes(indented) {
		t.Error("formatting changed the payload hash")
	}
}
