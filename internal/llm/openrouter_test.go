package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("model passes through untouched", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey: "sk-or-test",
			Model:  "gpt-4o",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "gpt-4o" {
			t.Errorf("model = %q, want %q", p.ModelID(), "gpt-4o")
		}
	})

	t.Run("empty model falls back to the default grader", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != defaultOpenRouterModel {
			t.Errorf("model = %q, want %q", p.ModelID(), defaultOpenRouterModel)
		}
	})

	t.Run("empty API key", func(t *testing.T) {
		if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.0-flash-001"}); err == nil {
			t.Fatal("expected error for empty API key")
		}
	})
}

func TestOpenRouterProvider_SendsVendorModel(t *testing.T) {
	var model string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		model = body.Model
		openAIText("হ্যাঁ", nil)(w, r)
	}))
	t.Cleanup(server.Close)

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "sk-or-test",
		Model:   "meta-llama/llama-3-8b",
		BaseURL: server.URL + "/v1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "hello"}},
		MaxTokens: 32,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "meta-llama/llama-3-8b" {
		t.Fatalf("expected vendor model id on the wire, got %q", model)
	}
	if resp.Text() != "হ্যাঁ" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
}

func TestOpenRouterProvider_SendsAttribution(t *testing.T) {
	var title, referer, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("X-Title")
		referer = r.Header.Get("HTTP-Referer")
		auth = r.Header.Get("Authorization")
		openAIText("ঠিক আছে", nil)(w, r)
	}))
	t.Cleanup(server.Close)

	tests := []struct {
		name        string
		cfg         OpenRouterConfig
		wantTitle   string
		wantReferer string
	}{
		{"defaults", OpenRouterConfig{}, "anuvad", ""},
		{"custom", OpenRouterConfig{AppName: "anuvad-staging", AppURL: "https://anuvad.example"}, "anuvad-staging", "https://anuvad.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.APIKey = "sk-or-test"
			tt.cfg.BaseURL = server.URL + "/v1"
			p, err := NewOpenRouterProvider(tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := p.Generate(context.Background(), Request{
				Messages:  []Message{{Role: RoleUser, Content: "hello"}},
				MaxTokens: 16,
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if title != tt.wantTitle {
				t.Errorf("X-Title = %q, want %q", title, tt.wantTitle)
			}
			if referer != tt.wantReferer {
				t.Errorf("HTTP-Referer = %q, want %q", referer, tt.wantReferer)
			}
			if auth != "Bearer sk-or-test" {
				t.Errorf("Authorization = %q, want bearer key", auth)
			}
		})
	}
}
