package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_PostJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantErr    bool
		wantStatus int
	}{
		{"ok", http.StatusOK, false, 0},
		{"accepted", http.StatusAccepted, false, 0},
		{"no content", http.StatusNoContent, false, 0},
		{"bad request", http.StatusBadRequest, true, http.StatusBadRequest},
		{"not found", http.StatusNotFound, true, http.StatusNotFound},
		{"server error", http.StatusInternalServerError, true, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]string
			var contentType string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				contentType = r.Header.Get("Content-Type")
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(time.Second)
			err := c.PostJSON(context.Background(), srv.URL, map[string]string{"hello": "world"})

			if (err != nil) != tt.wantErr {
				t.Fatalf("PostJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got["hello"] != "world" {
				t.Errorf("expected payload to reach server, got %v", got)
			}
			if contentType != "application/json" {
				t.Errorf("expected application/json content type, got %q", contentType)
			}
			if tt.wantStatus != 0 {
				var se *StatusError
				if !errors.As(err, &se) {
					t.Fatalf("expected *StatusError, got %T", err)
				}
				if se.StatusCode != tt.wantStatus {
					t.Errorf("expected status %d, got %d", tt.wantStatus, se.StatusCode)
				}
			}
		})
	}
}

func TestClient_PostJSON_EmptyURL(t *testing.T) {
	c := NewClient(time.Second)
	if err := c.PostJSON(context.Background(), "", struct{}{}); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("expected ErrEmptyURL, got %v", err)
	}
}

func TestClient_PostJSON_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(time.Second)
	err := c.PostJSON(context.Background(), url, struct{}{})
	if err == nil {
		t.Fatal("expected transport error")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Error("transport error must not be a StatusError")
	}
}

func TestClient_PostJSON_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(50 * time.Millisecond)
	if err := c.PostJSON(context.Background(), srv.URL, struct{}{}); err == nil {
		t.Error("expected timeout error")
	}
}

func TestClient_PostJSON_Unmarshalable(t *testing.T) {
	c := NewClient(time.Second)
	if err := c.PostJSON(context.Background(), "http://127.0.0.1:1", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient(0)
	if c.http.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, c.http.Timeout)
	}
}
