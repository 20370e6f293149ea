package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Model:       "test-model",
		VisionModel: "test-vision-model",
	}
	return NewClient(cfg, opts...), server
}

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestCompleteJSONSuccess(t *testing.T) {
	var captured []byte
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, completionBody(`{"ok":true}`))
	})

	content, err := client.CompleteJSON(context.Background(), "You are a tool.", "Do the thing.")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("content = %q", content)
	}

	var req chatCompletionRequest
	if err := json.Unmarshal(captured, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Model != "test-model" {
		t.Fatalf("model = %q", req.Model)
	}
	if req.ResponseFormat["type"] != jsonResponseType {
		t.Fatalf("response_format = %v", req.ResponseFormat)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", req.Messages)
	}
}

func TestCompleteJSONRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{Model: "m"})
	if _, err := client.CompleteJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestCompleteJSONRetriesOn429(t *testing.T) {
	var calls int
	var slept []time.Duration
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error":{"message":"rate limited"}}`)
			return
		}
		io.WriteString(w, completionBody(`{"ok":true}`))
	}, WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	content, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("content = %q", content)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("slept = %v, want [2s]", slept)
	}
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key"}}`)
	}, WithSleeper(func(time.Duration) {}))

	if _, err := client.CompleteJSON(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestCompleteJSONFailsAfterRetriesExhausted(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}, WithSleeper(func(time.Duration) {}), WithRetryMaxAttempts(3), WithRetryBackoff(time.Millisecond, time.Millisecond))

	_, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestCompleteJSONWithImageBuildsMultimodalMessage(t *testing.T) {
	var captured []byte
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		io.WriteString(w, completionBody(`{"match":true}`))
	})

	_, err := client.CompleteJSONWithImage(context.Background(), "sys", "does this frame show a harbor?", "data:image/jpeg;base64,AAAA")
	if err != nil {
		t.Fatalf("CompleteJSONWithImage: %v", err)
	}

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(captured, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Model != "test-vision-model" {
		t.Fatalf("model = %q", req.Model)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %+v", req.Messages)
	}
	var parts []contentPart
	if err := json.Unmarshal(req.Messages[1].Content, &parts); err != nil {
		t.Fatalf("user content is not a part list: %v", err)
	}
	if len(parts) != 2 || parts[0].Type != "text" || parts[1].Type != "image_url" {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[1].ImageURL == nil || !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg") {
		t.Fatalf("image part = %+v", parts[1])
	}
}

func TestHealthCheck(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completionBody("```json\n{\"ok\": true}\n```"))
	})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"plain", `{"value": 1}`, false},
		{"code fence", "```json\n{\"value\": 1}\n```", false},
		{"bare fence", "```\n{\"value\": 1}\n```", false},
		{"prose wrapper", "Here is the result: {\"value\": 1} hope that helps", false},
		{"empty", "", true},
		{"not json", "definitely not json", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var target struct {
				Value int `json:"value"`
			}
			err := DecodeLLMJSON(tc.payload, &target)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLLMJSON: %v", err)
			}
			if target.Value != 1 {
				t.Fatalf("value = %d", target.Value)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("5"); !ok || d != 5*time.Second {
		t.Fatalf("parseRetryAfter(5) = %v, %v", d, ok)
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Fatal("empty header should not parse")
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative seconds should not parse")
	}
}
