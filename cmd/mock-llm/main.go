// Package main implements a mock LLM server for pipeline walkthroughs.
// It serves OpenAI-compatible /v1/chat/completions responses from fixture
// files, routing by the "model" field in the request, so outline, draft,
// and refinement stages can run fast, deterministic, and offline.
//
// Usage:
//
//	mock-llm -fixtures /path/to/fixtures -port 11434
//
// Fixture files are named by model: "outline-model.json" answers requests
// for model "outline-model". A ".json" fixture must hold valid JSON and
// suits the stages that parse structured responses; a ".txt" fixture
// holds raw prose for the writing stage. A "default" fixture, when
// present, answers any model with no fixture of its own.
//
// Sequential fixtures: if numbered files exist ("refine-model.1.json",
// "refine-model.2.json"), the Nth call to that model returns the Nth
// fixture, with the base "refine-model.json" repeating once numbers run
// out. This scripts refinement loops where an early draft scores below
// the floor and a later revision clears it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// defaultModel answers requests for models with no fixture of their own.
const defaultModel = "default"

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// capturedRequest stores the key fields of an incoming request so
// walkthroughs can verify what prompts each stage actually sent.
type capturedRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	CallIndex int           `json:"call_index"` // 1-indexed per-model call number
	Timestamp int64         `json:"timestamp"`
}

// server answers completion requests from a fixed fixture set. A single
// mutex guards all bookkeeping; walkthrough volume is far too low for
// lock contention to matter.
type server struct {
	fixtures map[string][]string // model name → ordered fixture contents
	logger   *slog.Logger

	mu       sync.Mutex
	total    int
	perModel map[string]int
	captured map[string][]capturedRequest
}

func newServer(fixtures map[string][]string) *server {
	return &server{
		fixtures: fixtures,
		logger:   slog.Default(),
		perModel: make(map[string]int),
		captured: make(map[string][]capturedRequest),
	}
}

// next records one call against a model and returns its 0-indexed
// position in the model's fixture sequence.
func (s *server) next(model string, req chatRequest) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	index := s.perModel[model]
	s.perModel[model] = index + 1
	s.captured[model] = append(s.captured[model], capturedRequest{
		Model:     model,
		Messages:  req.Messages,
		CallIndex: index + 1,
		Timestamp: time.Now().UnixMilli(),
	})
	return index
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	dir := *fixtureDir
	if dir == "" {
		dir = os.Getenv("MOCK_LLM_FIXTURES")
	}
	if dir == "" {
		dir = "/fixtures"
	}

	fixtures, err := loadFixtures(dir)
	if err != nil {
		logger.Error("Loading fixtures failed", "dir", dir, "error", err)
		os.Exit(1)
	}
	for _, model := range sortedModels(fixtures) {
		logger.Info("Fixture loaded", "model", model, "responses", len(fixtures[model]))
	}

	s := newServer(fixtures)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("Mock LLM server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	seq, ok := s.fixtures[req.Model]
	if !ok {
		seq, ok = s.fixtures[defaultModel]
	}
	if !ok {
		s.logger.Warn("No fixture for model", "model", req.Model)
		http.Error(w, fmt.Sprintf("no fixture for model %q", req.Model), http.StatusNotFound)
		return
	}

	index := s.next(req.Model, req)
	content := seq[min(index, len(seq)-1)] // the last fixture repeats

	s.logger.Info("Serving completion",
		"model", req.Model,
		"call", index+1,
		"fixtures", len(seq),
		"messages", len(req.Messages))

	writeJSON(w, completion(req.Model, content))
}

// completion wraps fixture content in the OpenAI response envelope.
func completion(model, content string) chatResponse {
	tokens := len(content) / 4 // rough estimate
	return chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     tokens,
			CompletionTokens: tokens,
			TotalTokens:      tokens * 2,
		},
	}
}

// handleModels lists the loaded fixture models in the OpenAI shape.
func (s *server) handleModels(w http.ResponseWriter, _ *http.Request) {
	type modelEntry struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	}
	models := make([]modelEntry, 0, len(s.fixtures))
	for _, name := range sortedModels(s.fixtures) {
		models = append(models, modelEntry{ID: name, Object: "model", OwnedBy: "mock-llm"})
	}
	writeJSON(w, map[string]any{"object": "list", "data": models})
}

// handleStats reports call counts for walkthrough assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	byModel := make(map[string]int, len(s.perModel))
	for model, n := range s.perModel {
		byModel[model] = n
	}
	total := s.total
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"total_calls":    total,
		"calls_by_model": byModel,
	})
}

// handleRequests reports captured request bodies. The model query param
// filters by model name, the call param by 1-indexed call number.
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	wantModel := r.URL.Query().Get("model")
	wantCall, _ := strconv.Atoi(r.URL.Query().Get("call"))

	s.mu.Lock()
	byModel := make(map[string][]capturedRequest)
	for model, reqs := range s.captured {
		if wantModel != "" && model != wantModel {
			continue
		}
		if wantCall > 0 {
			for _, cr := range reqs {
				if cr.CallIndex == wantCall {
					byModel[model] = append(byModel[model], cr)
				}
			}
			continue
		}
		byModel[model] = reqs
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"requests_by_model": byModel})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// numberedFileRe matches files like "refine-model.1.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.(json|txt)$`)

// fixtureExt returns the fixture extension of name, or "" when name is
// not a fixture file.
func fixtureExt(name string) string {
	switch ext := filepath.Ext(name); ext {
	case ".json", ".txt":
		return ext
	default:
		return ""
	}
}

// loadFixtures reads fixture files from dir into a map of model name →
// content sequence. Numbered files come first in numeric order, then
// the base "model.json" as the repeating fallback. The directory is
// read flat; subdirectories are ignored.
func loadFixtures(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	base := make(map[string]string)
	numbered := make(map[string]map[int]string)

	for _, entry := range entries {
		ext := fixtureExt(entry.Name())
		if entry.IsDir() || ext == "" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if ext == ".json" && !json.Valid(data) {
			return nil, fmt.Errorf("invalid JSON in %s", entry.Name())
		}

		if m := numberedFileRe.FindStringSubmatch(entry.Name()); m != nil {
			n, _ := strconv.Atoi(m[2])
			if numbered[m[1]] == nil {
				numbered[m[1]] = make(map[int]string)
			}
			numbered[m[1]][n] = string(data)
			continue
		}
		base[strings.TrimSuffix(entry.Name(), ext)] = string(data)
	}

	fixtures := make(map[string][]string)
	for model, byIndex := range numbered {
		fixtures[model] = inOrder(byIndex)
	}
	for model, content := range base {
		fixtures[model] = append(fixtures[model], content)
	}
	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}

// inOrder flattens numbered fixture contents into numeric order.
func inOrder(byIndex map[int]string) []string {
	indices := make([]int, 0, len(byIndex))
	for n := range byIndex {
		indices = append(indices, n)
	}
	sort.Ints(indices)

	seq := make([]string, 0, len(indices))
	for _, n := range indices {
		seq = append(seq, byIndex[n])
	}
	return seq
}

// sortedModels returns the fixture model names in sorted order.
func sortedModels(fixtures map[string][]string) []string {
	models := make([]string, 0, len(fixtures))
	for m := range fixtures {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}
