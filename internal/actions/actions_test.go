package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Alloy/internal/domain"
)

func node(t domain.ActionType, params map[string]any) *domain.ActionNode {
	return &domain.ActionNode{ID: "n1", Type: t, Params: params}
}

// --- Registry Tests ---

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(Config{})

	for _, typ := range domain.ActionTypes() {
		if !r.Has(typ) {
			t.Errorf("default registry should have %s", typ)
		}
	}

	types := r.Types()
	if len(types) != 3 || types[0] != domain.ActionDelay || types[1] != domain.ActionHTTP || types[2] != domain.ActionLog {
		t.Errorf("unexpected types: %v", types)
	}
}

func TestRegistry_Get_Unknown(t *testing.T) {
	r := NewRegistry(map[domain.ActionType]Handler{
		domain.ActionLog: NewLogHandler(nil),
	})

	if _, err := r.Get(domain.ActionLog); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	_, err := r.Get(domain.ActionHTTP)
	if !errors.Is(err, ErrNoHandler) {
		t.Errorf("expected ErrNoHandler, got %v", err)
	}
}

func TestRegistry_IsImmutableCopy(t *testing.T) {
	src := map[domain.ActionType]Handler{domain.ActionLog: NewLogHandler(nil)}
	r := NewRegistry(src)

	// Изменение исходной map не влияет на реестр
	src[domain.ActionDelay] = NewDelayHandler()
	if r.Has(domain.ActionDelay) {
		t.Error("registry should not observe changes of the source map")
	}
}

// --- LogHandler Tests ---

func TestLogHandler_WritesMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := NewLogHandler(logger)

	err := h.Handle(context.Background(), node(domain.ActionLog, map[string]any{
		"message": "start",
		"level":   "warn",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	if record["msg"] != "start" {
		t.Errorf("expected msg=start, got %v", record["msg"])
	}
	if record["level"] != "WARN" {
		t.Errorf("expected level WARN, got %v", record["level"])
	}
	if record["action_id"] != "n1" {
		t.Errorf("expected action_id n1, got %v", record["action_id"])
	}
}

func TestLogHandler_DefaultLevelInfo(t *testing.T) {
	var buf bytes.Buffer
	h := NewLogHandler(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := h.Handle(context.Background(), node(domain.ActionLog, map[string]any{"message": "hi"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "level=INFO") {
		t.Errorf("expected INFO record, got %s", buf.String())
	}
}

func TestLogHandler_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"missing message", map[string]any{}},
		{"empty message", map[string]any{"message": ""}},
		{"non-string message", map[string]any{"message": 42}},
		{"unknown level", map[string]any{"message": "x", "level": "fatal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewLogHandler(slog.New(slog.NewTextHandler(&buf, nil)))

			err := h.Handle(context.Background(), node(domain.ActionLog, tt.params))
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
			if buf.Len() != 0 {
				t.Errorf("nothing should be written, got %s", buf.String())
			}
		})
	}
}

// --- DelayHandler Tests ---

func TestDelayHandler_Waits(t *testing.T) {
	h := NewDelayHandler()

	start := time.Now()
	err := h.Handle(context.Background(), node(domain.ActionDelay, map[string]any{"ms": 20}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("expected at least 20ms, got %v", elapsed)
	}
}

func TestDelayHandler_AcceptsNumberKinds(t *testing.T) {
	h := NewDelayHandler()

	for _, v := range []any{0, int64(1), float64(1.5), json.Number("2")} {
		if err := h.Handle(context.Background(), node(domain.ActionDelay, map[string]any{"ms": v})); err != nil {
			t.Errorf("ms=%v (%T): unexpected error: %v", v, v, err)
		}
	}
}

func TestDelayHandler_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"missing ms", map[string]any{}},
		{"negative ms", map[string]any{"ms": -5}},
		{"string ms", map[string]any{"ms": "10"}},
		{"nil ms", map[string]any{"ms": nil}},
	}

	h := NewDelayHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Handle(context.Background(), node(domain.ActionDelay, tt.params))
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestDelayHandler_Cancelled(t *testing.T) {
	h := NewDelayHandler()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := h.Handle(ctx, node(domain.ActionDelay, map[string]any{"ms": 5000}))
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

// --- HTTPHandler Tests ---

func TestHTTPHandler_GET_Success(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.Header.Get("X-Token") != "abc" {
			t.Errorf("expected X-Token header, got %q", r.Header.Get("X-Token"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := NewHTTPHandler(server.Client())
	err := h.Handle(context.Background(), node(domain.ActionHTTP, map[string]any{
		"url":     server.URL,
		"headers": map[string]any{"X-Token": "abc"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestHTTPHandler_POST_WithBody(t *testing.T) {
	var receivedBody map[string]any
	var receivedContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	h := NewHTTPHandler(nil)
	err := h.Handle(context.Background(), node(domain.ActionHTTP, map[string]any{
		"url":    server.URL,
		"method": "post",
		"body":   map[string]any{"event": "done"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedBody["event"] != "done" {
		t.Errorf("server should receive body, got %v", receivedBody)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected application/json, got %s", receivedContentType)
	}
}

func TestHTTPHandler_KeepsUserContentType(t *testing.T) {
	var received []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = append(received, strings.Join(r.Header.Values("Content-Type"), ";"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := NewHTTPHandler(server.Client())
	for range 20 {
		err := h.Handle(context.Background(), node(domain.ActionHTTP, map[string]any{
			"url":     server.URL,
			"method":  "POST",
			"headers": map[string]any{"content-type": "text/plain"},
			"body":    "raw",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for i, ct := range received {
		if ct != "text/plain" {
			t.Fatalf("request %d: expected user content type, got %q", i, ct)
		}
	}
}

func TestHTTPHandler_ErrorStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal"}`))
	}))
	defer server.Close()

	h := NewHTTPHandler(nil)
	err := h.Handle(context.Background(), node(domain.ActionHTTP, map[string]any{"url": server.URL}))
	if err == nil {
		t.Fatal("expected error for 500")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "Internal Server Error") {
		t.Errorf("error should contain status, got %q", err.Error())
	}
	if !errors.Is(err, ErrHTTPRequest) {
		t.Error("HTTPError should match ErrHTTPRequest")
	}

	// Внутренних retry нет
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls.Load())
	}
}

func TestHTTPHandler_MissingURL(t *testing.T) {
	h := NewHTTPHandler(nil)
	err := h.Handle(context.Background(), node(domain.ActionHTTP, map[string]any{"method": "GET"}))
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("expected ErrInvalidParams, got %v", err)
	}
}

func TestHTTPHandler_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	h := NewHTTPHandler(nil)
	err := h.Handle(context.Background(), node(domain.ActionHTTP, map[string]any{"url": url}))
	if !errors.Is(err, ErrHTTPRequest) {
		t.Errorf("expected ErrHTTPRequest, got %v", err)
	}
}
