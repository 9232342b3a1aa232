package llmtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// Server is an OpenAI-compatible chat completions endpoint for tests.
// Point llm.Config.BaseURL at URL.
type Server struct {
	*httptest.Server
	// URL is the API root including the /v1 prefix.
	URL       string
	calls     atomic.Int64
	userAgent atomic.Value
}

// Calls returns how many completion requests were served.
func (s *Server) Calls() int { return int(s.calls.Load()) }

// UserAgent returns the User-Agent of the last completion request.
func (s *Server) UserAgent() string {
	ua, _ := s.userAgent.Load().(string)
	return ua
}

// NewServer starts a server that answers every chat completion with the text
// returned by respond for the request's first message. A non-zero status
// from respond is written as an API error instead.
func NewServer(t testing.TB, respond func(prompt string) (string, int)) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		s.calls.Add(1)
		s.userAgent.Store(r.UserAgent())

		text, status := respond(req.Messages[0].Content)
		w.Header().Set("Content-Type", "application/json")
		if status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": text, "type": "test_error"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": text},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	s.URL = s.Server.URL + "/v1"
	t.Cleanup(s.Close)
	return s
}
