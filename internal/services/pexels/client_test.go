package pexels

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"reelsmith/internal/timeline"
)

func TestSearchPhotos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("query"); got != "harbor dawn" {
			t.Errorf("query = %q", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "2" {
			t.Errorf("per_page = %q", got)
		}
		io.WriteString(w, `{"photos":[
			{"id":1,"width":4000,"height":3000,"photographer":"A","src":{"large2x":"https://img.example/1.jpg"}},
			{"id":2,"width":2000,"height":1500,"photographer":"B","src":{"original":"https://img.example/2.jpg"}}
		]}`)
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURLs(server.URL, server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := client.Search(context.Background(), "harbor dawn", timeline.KindPhoto, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].URL != "https://img.example/1.jpg" || results[0].Kind != timeline.KindPhoto {
		t.Fatalf("first result = %+v", results[0])
	}
	if results[1].URL != "https://img.example/2.jpg" {
		t.Fatalf("second result = %+v", results[1])
	}
}

func TestSearchVideosPrefersHD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"videos":[
			{"id":7,"width":1920,"height":1080,"duration":12,
			 "user":{"name":"C"},
			 "video_files":[
				{"quality":"sd","width":640,"height":360,"link":"https://vid.example/sd.mp4"},
				{"quality":"hd","width":1920,"height":1080,"link":"https://vid.example/hd.mp4"}
			 ]}
		]}`)
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURLs(server.URL, server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := client.Search(context.Background(), "waves", timeline.KindVideo, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://vid.example/hd.mp4" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Duration != 12 {
		t.Fatalf("duration = %f", results[0].Duration)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Search(context.Background(), "  ", timeline.KindPhoto, 1); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestSearchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := New("test-key", WithBaseURLs(server.URL, server.URL))
	if _, err := client.Search(context.Background(), "anything", timeline.KindPhoto, 1); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
