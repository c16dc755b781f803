package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestServiceClient_Extract_Sync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/extract" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var req struct {
			URL    string         `json:"url"`
			Schema map[string]any `json:"schema"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad request body: %v", err)
		}
		if req.Schema["version"] == "" {
			t.Error("Expected versioned schema in request")
		}

		json.NewEncoder(w).Encode(serviceResponse{
			Title:    "Service Title",
			Summary:  "Service summary",
			Content:  "Service body",
			Author:   "Author",
			Keywords: []string{"one", "two"},
		})
	}))
	defer server.Close()

	client := NewServiceClient(server.URL, "key", "sync", 5*time.Second)

	content, err := client.Extract(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if content.Title != "Service Title" {
		t.Errorf("Unexpected title: %q", content.Title)
	}
	if content.Tier != 1 {
		t.Errorf("Service content must be tier 1, got %d", content.Tier)
	}
}

func TestServiceClient_Extract_MissingTitleIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(serviceResponse{Title: "", Content: "body without title"})
	}))
	defer server.Close()

	client := NewServiceClient(server.URL, "key", "sync", 5*time.Second)

	_, err := client.Extract(context.Background(), "https://example.com/a")
	if err == nil {
		t.Fatal("A response missing title must be a failure, not a success with nulls")
	}

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("Expected *ServiceError, got %T", err)
	}
}

func TestServiceClient_Extract_AsyncPollsBounded(t *testing.T) {
	var polls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/extract/jobs":
			json.NewEncoder(w).Encode(map[string]string{"jobId": "job-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/extract/jobs/job-1":
			n := atomic.AddInt64(&polls, 1)
			if n < 3 {
				json.NewEncoder(w).Encode(map[string]any{"status": "pending"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"status": "completed",
				"result": serviceResponse{Title: "Async Title", Content: "async body"},
			})
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewServiceClient(server.URL, "key", "async", 5*time.Second)
	client.pollInterval = 10 * time.Millisecond

	content, err := client.Extract(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if content.Title != "Async Title" {
		t.Errorf("Unexpected title: %q", content.Title)
	}
	if got := atomic.LoadInt64(&polls); got != 3 {
		t.Errorf("Expected 3 polls, got %d", got)
	}
}

func TestServiceClient_Extract_AsyncAttemptCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"jobId": "job-1"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "pending"})
	}))
	defer server.Close()

	client := NewServiceClient(server.URL, "key", "async", 5*time.Second)
	client.pollInterval = 5 * time.Millisecond
	client.maxPollAttempts = 4

	_, err := client.Extract(context.Background(), "https://example.com/a")
	if err == nil {
		t.Fatal("Expected failure when the job never completes")
	}

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("Expected *ServiceError, got %T", err)
	}
}
