package moonshot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func newRequest(prompt string) *model.LLMRequest {
	return &model.LLMRequest{
		Contents: []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: "answer in JSON"}}},
			ResponseMIMEType:  "application/json",
		},
	}
}

func firstResponse(t *testing.T, m *Model, req *model.LLMRequest) (*model.LLMResponse, error) {
	t.Helper()
	for resp, err := range m.GenerateContent(context.Background(), req, false) {
		return resp, err
	}
	t.Fatalf("GenerateContent yielded nothing")
	return nil, nil
}

func TestGenerateContentSendsChatCompletion(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"summary\":\"ok\"}"}}]}`))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "secret", BaseURL: srv.URL + "/", Model: "test-model"})
	resp, err := firstResponse(t, m, newRequest("hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Model != "test-model" {
		t.Errorf("model = %q, want test-model", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "hello" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.ResponseFormat["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", got.ResponseFormat)
	}
	if resp.Content == nil || len(resp.Content.Parts) != 1 || resp.Content.Parts[0].Text != `{"summary":"ok"}` {
		t.Errorf("unexpected content: %+v", resp.Content)
	}
}

func TestGenerateContentNon2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := firstResponse(t, m, newRequest("hello"))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Body != "slow down" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestGenerateContentEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "k", BaseURL: srv.URL})
	if _, err := firstResponse(t, m, newRequest("hello")); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestRoleForContent(t *testing.T) {
	if roleForContent("model") != "assistant" {
		t.Error("model role should map to assistant")
	}
	if roleForContent("user") != "user" {
		t.Error("user role should stay user")
	}
}
