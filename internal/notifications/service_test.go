package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelsmith/internal/config"
)

func configWithTopic(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.JobComplete = true
	cfg.Notifications.JobFailed = true
	cfg.Notifications.Queue = true
	return &cfg
}

func TestNewServiceReturnsNoopWithoutTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	service := NewService(&cfg)
	if _, ok := service.(noopService); !ok {
		t.Fatalf("service = %T, want noop", service)
	}
	if err := service.NotifyJobCompleted(context.Background(), "id", "/out.mp4"); err != nil {
		t.Fatalf("noop returned error: %v", err)
	}
}

func TestNotifyJobCompletedSendsRequest(t *testing.T) {
	var gotTitle, gotBody, gotPriority string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	service := NewService(configWithTopic(server.URL))
	if err := service.NotifyJobCompleted(context.Background(), "0f2a7c1d-aaaa-bbbb", "/out/video.mp4"); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}
	if gotTitle != "Reelsmith - Complete" || gotPriority != "high" {
		t.Fatalf("title = %q priority = %q", gotTitle, gotPriority)
	}
	if !strings.Contains(gotBody, "0f2a7c1d") || !strings.Contains(gotBody, "/out/video.mp4") {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestNotifyQueueDrainedSendsCount(t *testing.T) {
	var gotTitle, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	service := NewService(configWithTopic(server.URL))
	if err := service.NotifyQueueDrained(context.Background(), 3); err != nil {
		t.Fatalf("NotifyQueueDrained: %v", err)
	}
	if gotTitle != "Reelsmith - Queue Drained" {
		t.Fatalf("title = %q", gotTitle)
	}
	if !strings.Contains(gotBody, "3 jobs") {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestNotifyHonorsEventToggles(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	cfg := configWithTopic(server.URL)
	cfg.Notifications.JobComplete = false
	service := NewService(cfg)
	if err := service.NotifyJobCompleted(context.Background(), "id", ""); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}

func TestSendSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "denied")
	}))
	defer server.Close()

	service := NewService(configWithTopic(server.URL))
	err := service.NotifyJobFailed(context.Background(), "id", "encoder crashed")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("err = %v", err)
	}
}
