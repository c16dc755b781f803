package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_Get_ReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	client := New(Options{Timeout: 5 * time.Second, MaxConcurrent: 2, UserAgent: "test/1.0"})

	result, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(result.Body) != "<html><body>hello</body></html>" {
		t.Errorf("Unexpected body: %s", result.Body)
	}
	if !result.IsHTML() {
		t.Error("Expected result to be recognized as HTML")
	}
}

func TestClient_Get_BoundsConcurrency(t *testing.T) {
	var inFlight, maxSeen int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt64(&inFlight, 1)
		for {
			prev := atomic.LoadInt64(&maxSeen)
			if cur <= prev || atomic.CompareAndSwapInt64(&maxSeen, prev, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := New(Options{Timeout: 5 * time.Second, MaxConcurrent: 2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Get(context.Background(), server.URL); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&maxSeen); got > 2 {
		t.Errorf("Expected at most 2 in-flight requests, observed %d", got)
	}
}

func TestClient_Get_SpacesSuccessiveCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := New(Options{Timeout: 5 * time.Second, MaxConcurrent: 1, MinInterval: 50 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Get(context.Background(), server.URL); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)

	// Three calls with 50ms spacing need at least 100ms of pacing.
	if elapsed < 100*time.Millisecond {
		t.Errorf("Expected calls spaced by min interval, took only %v", elapsed)
	}
}

func TestClient_Get_TimeoutIsTyped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("slow"))
	}))
	defer server.Close()

	client := New(Options{Timeout: 50 * time.Millisecond, MaxConcurrent: 1})

	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected timeout error")
	}

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *fetcher.Error, got %T", err)
	}
	if !fetchErr.Timeout {
		t.Errorf("Expected Timeout to be set on %v", fetchErr)
	}
}

func TestClient_Get_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(Options{Timeout: 5 * time.Second, MaxConcurrent: 1})

	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *fetcher.Error, got %T", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", fetchErr.StatusCode)
	}
	if fetchErr.Timeout {
		t.Error("HTTP status failure should not be marked as timeout")
	}
}
