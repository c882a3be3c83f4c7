package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFixtures_BaseOnly(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "outline-model.json", `{"title":"Descaling a Kettle"}`)
	writeFixture(t, dir, "writing-model.json", `{"body":"Fill the kettle with vinegar."}`)

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	if len(fixtures) != 2 {
		t.Fatalf("expected 2 models, got %d", len(fixtures))
	}
	for model, seq := range fixtures {
		if len(seq) != 1 {
			t.Errorf("model %q: expected 1 fixture, got %d", model, len(seq))
		}
	}
}

func TestLoadFixtures_Sequential(t *testing.T) {
	dir := t.TempDir()

	// A scripted refinement loop: weak draft, stronger revision, fallback.
	writeFixture(t, dir, "writing-model.1.json", `{"body":"short draft"}`)
	writeFixture(t, dir, "writing-model.2.json", `{"body":"expanded revision"}`)
	writeFixture(t, dir, "writing-model.json", `{"body":"fallback body"}`)

	writeFixture(t, dir, "outline-model.json", `{"title":"Kettle Care"}`)

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	seq := fixtures["writing-model"]
	if len(seq) != 3 {
		t.Fatalf("writing-model: expected 3 fixtures, got %d", len(seq))
	}
	if !strings.Contains(seq[0], "short draft") {
		t.Errorf("fixture[0] should be the first numbered file, got: %s", seq[0])
	}
	if !strings.Contains(seq[1], "expanded revision") {
		t.Errorf("fixture[1] should be the second numbered file, got: %s", seq[1])
	}
	if !strings.Contains(seq[2], "fallback body") {
		t.Errorf("fixture[2] should be the base file, got: %s", seq[2])
	}

	if len(fixtures["outline-model"]) != 1 {
		t.Fatalf("outline-model: expected 1 fixture, got %d", len(fixtures["outline-model"]))
	}
}

func TestLoadFixtures_NumberedOnly(t *testing.T) {
	dir := t.TempDir()

	writeFixture(t, dir, "refine-model.1.json", `{"body":"first pass"}`)
	writeFixture(t, dir, "refine-model.2.json", `{"body":"second pass"}`)

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	if len(fixtures["refine-model"]) != 2 {
		t.Fatalf("expected 2 fixtures, got %d", len(fixtures["refine-model"]))
	}
}

func TestLoadFixtures_ProseText(t *testing.T) {
	dir := t.TempDir()

	writeFixture(t, dir, "writing-model.txt", "Fill the kettle halfway with equal parts water and white vinegar.")
	writeFixture(t, dir, "outline-model.json", `{"title":"Kettle Care"}`)

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	seq := fixtures["writing-model"]
	if len(seq) != 1 {
		t.Fatalf("writing-model: expected 1 fixture, got %d", len(seq))
	}
	if !strings.Contains(seq[0], "white vinegar") {
		t.Errorf("prose fixture content lost: %s", seq[0])
	}
}

func TestLoadFixtures_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "outline-model.json", `{"title": truncated`)

	if _, err := loadFixtures(dir); err == nil {
		t.Fatal("expected error for invalid JSON fixture")
	}
}

func TestLoadFixtures_EmptyDir(t *testing.T) {
	dir := t.TempDir()

	if _, err := loadFixtures(dir); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestSequentialFixtureSelection(t *testing.T) {
	fixtures := map[string][]string{
		"writing-model": {
			`{"body":"short draft"}`,
			`{"body":"expanded revision"}`,
		},
		"outline-model": {
			`{"title":"Kettle Care"}`,
		},
	}

	s := newServer(fixtures)

	resp1 := doCompletion(t, s, "writing-model")
	if !strings.Contains(resp1, "short draft") {
		t.Errorf("call 1: expected short draft, got: %s", resp1)
	}

	resp2 := doCompletion(t, s, "writing-model")
	if !strings.Contains(resp2, "expanded revision") {
		t.Errorf("call 2: expected expanded revision, got: %s", resp2)
	}

	// Beyond the sequence, the last fixture repeats.
	resp3 := doCompletion(t, s, "writing-model")
	if !strings.Contains(resp3, "expanded revision") {
		t.Errorf("call 3: expected repeat of last fixture, got: %s", resp3)
	}

	// Other models keep independent counters.
	outlineResp := doCompletion(t, s, "outline-model")
	if !strings.Contains(outlineResp, "Kettle Care") {
		t.Errorf("outline: expected Kettle Care, got: %s", outlineResp)
	}
}

func TestDefaultFixtureFallback(t *testing.T) {
	fixtures := map[string][]string{
		"default": {`{"body":"generic answer"}`},
	}

	s := newServer(fixtures)

	resp := doCompletion(t, s, "qwen2.5-coder:32b")
	if !strings.Contains(resp, "generic answer") {
		t.Errorf("expected default fixture to answer unknown model, got: %s", resp)
	}
}

func TestUnknownModelWithoutDefault(t *testing.T) {
	s := newServer(map[string][]string{
		"outline-model": {`{"title":"x"}`},
	})

	body := strings.NewReader(`{"model":"nope","messages":[{"role":"user","content":"test"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()
	s.handleChatCompletions(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown model, got %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	fixtures := map[string][]string{
		"writing-model": {`{"body":"draft"}`},
		"outline-model": {`{"title":"x"}`},
	}

	s := newServer(fixtures)

	doCompletion(t, s, "writing-model")
	doCompletion(t, s, "writing-model")
	doCompletion(t, s, "outline-model")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	s.handleStats(w, req)

	var stats struct {
		TotalCalls   int64            `json:"total_calls"`
		CallsByModel map[string]int64 `json:"calls_by_model"`
	}
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}

	if stats.TotalCalls != 3 {
		t.Errorf("total_calls: expected 3, got %d", stats.TotalCalls)
	}
	if stats.CallsByModel["writing-model"] != 2 {
		t.Errorf("writing-model calls: expected 2, got %d", stats.CallsByModel["writing-model"])
	}
	if stats.CallsByModel["outline-model"] != 1 {
		t.Errorf("outline-model calls: expected 1, got %d", stats.CallsByModel["outline-model"])
	}
}

func TestCapturedRequests(t *testing.T) {
	s := newServer(map[string][]string{
		"outline-model": {`{"title":"x"}`},
	})

	body := strings.NewReader(`{
		"model": "outline-model",
		"messages": [
			{"role": "system", "content": "You plan article structures."},
			{"role": "user", "content": "Outline: how to descale a kettle"}
		]
	}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()
	s.handleChatCompletions(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}

	reqReq := httptest.NewRequest(http.MethodGet, "/requests?model=outline-model", nil)
	reqW := httptest.NewRecorder()
	s.handleRequests(reqW, reqReq)

	var captured struct {
		RequestsByModel map[string][]capturedRequest `json:"requests_by_model"`
	}
	if err := json.NewDecoder(reqW.Body).Decode(&captured); err != nil {
		t.Fatalf("decode requests: %v", err)
	}

	reqs := captured.RequestsByModel["outline-model"]
	if len(reqs) != 1 {
		t.Fatalf("expected 1 captured request, got %d", len(reqs))
	}
	if reqs[0].CallIndex != 1 {
		t.Errorf("call_index: expected 1, got %d", reqs[0].CallIndex)
	}
	if len(reqs[0].Messages) != 2 {
		t.Fatalf("expected 2 captured messages, got %d", len(reqs[0].Messages))
	}
	if !strings.Contains(reqs[0].Messages[1].Content, "descale a kettle") {
		t.Errorf("captured prompt missing keyword: %q", reqs[0].Messages[1].Content)
	}
}

func TestNumberedFileRegex(t *testing.T) {
	tests := []struct {
		filename string
		wantBase string
		wantNum  string
		match    bool
	}{
		{"writing-model.1.json", "writing-model", "1", true},
		{"writing-model.2.json", "writing-model", "2", true},
		{"writing-model.10.json", "writing-model", "10", true},
		{"writing-model.1.txt", "writing-model", "1", true},
		{"writing-model.json", "", "", false},
		{"writing-model.txt", "", "", false},
		{"default.json", "", "", false},
	}

	for _, tt := range tests {
		matches := numberedFileRe.FindStringSubmatch(tt.filename)
		if tt.match {
			if matches == nil {
				t.Errorf("%s: expected match, got nil", tt.filename)
				continue
			}
			if matches[1] != tt.wantBase {
				t.Errorf("%s: base=%q, want %q", tt.filename, matches[1], tt.wantBase)
			}
			if matches[2] != tt.wantNum {
				t.Errorf("%s: num=%q, want %q", tt.filename, matches[2], tt.wantNum)
			}
		} else if matches != nil {
			t.Errorf("%s: expected no match, got %v", tt.filename, matches)
		}
	}
}

// --- helpers ---

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func doCompletion(t *testing.T, s *server, model string) string {
	t.Helper()
	body := strings.NewReader(`{"model":"` + model + `","messages":[{"role":"user","content":"test"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	w := httptest.NewRecorder()
	s.handleChatCompletions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("model %s: status %d, body: %s", model, w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Choices) == 0 {
		t.Fatalf("no choices in response")
	}
	return resp.Choices[0].Message.Content
}
