package modelrelay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/model"
	"github.com/ghiac/modelrelay/store"
)

// newTestRelay builds a relay over a memory store with one provider
// pointing at the given upstream handler.
func newTestRelay(t *testing.T, upstream http.HandlerFunc) (*Relay, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Providers = []config.Provider{{
		Name:         "openai",
		BaseURL:      server.URL,
		APIKey:       "sk-test",
		ProviderType: config.ProviderTypeOpenAI,
		Timeout:      5,
	}}
	cfg.ModelMappings = []config.ModelMapping{
		{DisplayName: "official/gpt-4", ProviderName: "openai", ActualModelName: "gpt-4"},
	}

	relay := NewWithStore(cfg, store.NewMemoryStore(cfg.TTL()))
	t.Cleanup(func() { relay.Close() })

	router := gin.New()
	relay.RegisterRoutes(router)
	return relay, router
}

func buffered(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"cmpl-1","object":"chat.completion","created":1,"model":"gpt-4",
			"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`, content)
	}
}

func postChat(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatCompletionEndpoint(t *testing.T) {
	relay, router := newTestRelay(t, buffered("Hello there"))

	w := postChat(router, `{"model":"official/gpt-4","user":"alice",
		"messages":[{"role":"user","content":"Hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["model"] != "official/gpt-4" {
		t.Errorf("model = %v, want display name", resp["model"])
	}

	sessions, err := relay.SessionStore().ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(sessions) != 1 || len(sessions[0].History) != 2 {
		t.Errorf("expected one session with two messages, got %+v", sessions)
	}
}

func TestChatCompletionErrors(t *testing.T) {
	_, router := newTestRelay(t, buffered("x"))

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"model":`, http.StatusBadRequest, ""},
		{"unknown model", `{"model":"ghost/x","messages":[{"role":"user","content":"hi"}]}`,
			http.StatusBadRequest, "model_not_found"},
		{"no messages", `{"model":"official/gpt-4"}`, http.StatusBadRequest, ""},
	}

	for _, tc := range cases {
		w := postChat(router, tc.body)
		if w.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.status)
			continue
		}
		var envelope struct {
			Error *model.APIError `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil || envelope.Error == nil {
			t.Errorf("%s: body is not an error envelope: %s", tc.name, w.Body.String())
			continue
		}
		if tc.code != "" && envelope.Error.Code != tc.code {
			t.Errorf("%s: code = %q, want %q", tc.name, envelope.Error.Code, tc.code)
		}
	}
}

func TestStreamingEndpoint(t *testing.T) {
	chunks := []string{
		`{"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
		`{"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		"[DONE]",
	}
	relay, router := newTestRelay(t, func(w http.ResponseWriter, req *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
			flusher.Flush()
		}
	})

	w := postChat(router, `{"model":"official/gpt-4","user":"alice","stream":true,
		"messages":[{"role":"user","content":"Hi"}]}`)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}

	var payloads []string
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			payloads = append(payloads, strings.TrimPrefix(line, "data: "))
		}
	}

	if len(payloads) != 3 {
		t.Fatalf("received %d SSE payloads, want 2 chunks + [DONE]: %v", len(payloads), payloads)
	}
	if payloads[0] != chunks[0] || payloads[1] != chunks[1] {
		t.Errorf("chunk payloads altered: %v", payloads)
	}
	if payloads[2] != "[DONE]" {
		t.Errorf("stream did not end with [DONE]: %q", payloads[2])
	}

	sessions, _ := relay.SessionStore().ListAll(context.Background())
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	last, _ := sessions[0].History.Last()
	if last.Content != "Hello" {
		t.Errorf("accumulated assistant content = %q", last.Content)
	}
}

func TestModelsEndpoint(t *testing.T) {
	_, router := newTestRelay(t, buffered("x"))

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list struct {
		Object string `json:"object"`
		Data   []struct {
			ID      string `json:"id"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 1 || list.Data[0].ID != "official/gpt-4" {
		t.Errorf("model list = %+v", list)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, router := newTestRelay(t, buffered("x"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var health map[string]any
	json.Unmarshal(w.Body.Bytes(), &health)
	if health["status"] != "healthy" {
		t.Errorf("status = %v", health["status"])
	}
	if health["session_policy"] != "trailing_suffix_append" {
		t.Errorf("session_policy = %v", health["session_policy"])
	}
}

func TestAdminSessionLifecycle(t *testing.T) {
	relay, router := newTestRelay(t, buffered("x"))

	// Seed a session with history and a memory zone entry.
	session := model.NewSession("alice", "s1")
	session.Append(model.NewMessage(model.RoleUser, "hello"))
	session.AddMemory("alice prefers terse answers")
	if err := relay.SessionStore().Put(context.Background(), session); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// Listing includes the session.
	w := do(http.MethodGet, "/admin/sessions?user=alice")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "s1") {
		t.Errorf("list: status = %d, body = %s", w.Code, w.Body.String())
	}

	// Reset clears the transcript but keeps the memory zone.
	if w := do(http.MethodPost, "/admin/sessions/alice/s1/reset"); w.Code != http.StatusOK {
		t.Fatalf("reset: status = %d", w.Code)
	}
	got, err := relay.SessionStore().Get(context.Background(), session.Key())
	if err != nil {
		t.Fatalf("session lost after reset: %v", err)
	}
	if len(got.History) != 0 {
		t.Errorf("reset left %d messages", len(got.History))
	}
	if len(got.MemoryZone) != 1 {
		t.Errorf("reset cleared the memory zone")
	}

	// Memory clear is a separate, explicit operation.
	if w := do(http.MethodDelete, "/admin/sessions/alice/s1/memory"); w.Code != http.StatusOK {
		t.Fatalf("memory clear: status = %d", w.Code)
	}
	got, _ = relay.SessionStore().Get(context.Background(), session.Key())
	if len(got.MemoryZone) != 0 {
		t.Errorf("memory zone not cleared")
	}

	// Delete removes the session entirely.
	if w := do(http.MethodDelete, "/admin/sessions/alice/s1"); w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}
	if _, err := relay.SessionStore().Get(context.Background(), session.Key()); err == nil {
		t.Error("session still present after delete")
	}

	// Reset on a missing session is a 404.
	if w := do(http.MethodPost, "/admin/sessions/alice/s1/reset"); w.Code != http.StatusNotFound {
		t.Errorf("reset missing: status = %d, want 404", w.Code)
	}
}
