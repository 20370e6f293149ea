package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/timeline"
)

const (
	defaultPhotoURL = "https://api.pexels.com/v1/search"
	defaultVideoURL = "https://api.pexels.com/videos/search"
)

// Result is a single downloadable media candidate.
type Result struct {
	ID          int64
	Kind        timeline.MediaKind
	URL         string
	Width       int
	Height      int
	Duration    float64
	Attribution string
}

// Searcher defines the search operation used by media pairing.
type Searcher interface {
	Search(ctx context.Context, query string, kind timeline.MediaKind, count int) ([]Result, error)
}

// Client provides access to the Pexels photo and video search API.
type Client struct {
	apiKey     string
	photoURL   string
	videoURL   string
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURLs overrides the photo and video endpoints (used by tests).
func WithBaseURLs(photoURL, videoURL string) Option {
	return func(c *Client) {
		if photoURL != "" {
			c.photoURL = strings.TrimRight(photoURL, "/")
		}
		if videoURL != "" {
			c.videoURL = strings.TrimRight(videoURL, "/")
		}
	}
}

// New creates a Pexels client.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("pexels api key required")
	}
	client := &Client{
		apiKey:     apiKey,
		photoURL:   defaultPhotoURL,
		videoURL:   defaultVideoURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search queries Pexels for the supplied keywords and returns up to count
// candidates sorted by the provider's own relevance ordering.
func (c *Client) Search(ctx context.Context, query string, kind timeline.MediaKind, count int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if count <= 0 {
		count = 1
	}
	switch kind {
	case timeline.KindPhoto:
		return c.searchPhotos(ctx, query, count)
	case timeline.KindVideo:
		return c.searchVideos(ctx, query, count)
	default:
		return nil, fmt.Errorf("unsupported media kind %q", kind)
	}
}

type photoResponse struct {
	Photos []struct {
		ID           int64  `json:"id"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		Photographer string `json:"photographer"`
		Src          struct {
			Original string `json:"original"`
			Large2x  string `json:"large2x"`
			Large    string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

func (c *Client) searchPhotos(ctx context.Context, query string, count int) ([]Result, error) {
	var payload photoResponse
	if err := c.get(ctx, c.photoURL, query, count, &payload); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(payload.Photos))
	for _, photo := range payload.Photos {
		link := photo.Src.Large2x
		if link == "" {
			link = photo.Src.Original
		}
		if link == "" {
			link = photo.Src.Large
		}
		if link == "" {
			continue
		}
		results = append(results, Result{
			ID:          photo.ID,
			Kind:        timeline.KindPhoto,
			URL:         link,
			Width:       photo.Width,
			Height:      photo.Height,
			Attribution: photo.Photographer,
		})
	}
	return results, nil
}

type videoResponse struct {
	Videos []struct {
		ID         int64   `json:"id"`
		Width      int     `json:"width"`
		Height     int     `json:"height"`
		Duration   float64 `json:"duration"`
		User       struct {
			Name string `json:"name"`
		} `json:"user"`
		VideoFiles []struct {
			Quality string `json:"quality"`
			Width   int    `json:"width"`
			Height  int    `json:"height"`
			Link    string `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
}

func (c *Client) searchVideos(ctx context.Context, query string, count int) ([]Result, error) {
	var payload videoResponse
	if err := c.get(ctx, c.videoURL, query, count, &payload); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(payload.Videos))
	for _, video := range payload.Videos {
		// Prefer the hd rendition, fall back to the largest file offered.
		var link string
		var bestArea int
		for _, file := range video.VideoFiles {
			if file.Link == "" {
				continue
			}
			if file.Quality == "hd" {
				link = file.Link
				break
			}
			if area := file.Width * file.Height; area >= bestArea {
				bestArea = area
				link = file.Link
			}
		}
		if link == "" {
			continue
		}
		results = append(results, Result{
			ID:          video.ID,
			Kind:        timeline.KindVideo,
			URL:         link,
			Width:       video.Width,
			Height:      video.Height,
			Duration:    video.Duration,
			Attribution: video.User.Name,
		})
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, base, query string, count int, target any) error {
	endpoint, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse pexels url: %w", err)
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(count))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pexels search returned %d (latency=%v)", resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode pexels response: %w", err)
	}
	return nil
}
