package pixabay

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
	defaultImageURL = "https://pixabay.com/api/"
	defaultVideoURL = "https://pixabay.com/api/videos/"
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

// Client provides access to the Pixabay image and video search API.
type Client struct {
	apiKey     string
	imageURL   string
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

// WithBaseURLs overrides the image and video endpoints (used by tests).
func WithBaseURLs(imageURL, videoURL string) Option {
	return func(c *Client) {
		if imageURL != "" {
			c.imageURL = imageURL
		}
		if videoURL != "" {
			c.videoURL = videoURL
		}
	}
}

// New creates a Pixabay client.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("pixabay api key required")
	}
	client := &Client{
		apiKey:     apiKey,
		imageURL:   defaultImageURL,
		videoURL:   defaultVideoURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search queries Pixabay for the supplied keywords.
func (c *Client) Search(ctx context.Context, query string, kind timeline.MediaKind, count int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if count <= 0 {
		count = 1
	}
	// Pixabay rejects per_page below 3.
	perPage := count
	if perPage < 3 {
		perPage = 3
	}
	switch kind {
	case timeline.KindPhoto:
		return c.searchImages(ctx, query, perPage, count)
	case timeline.KindVideo:
		return c.searchVideos(ctx, query, perPage, count)
	default:
		return nil, fmt.Errorf("unsupported media kind %q", kind)
	}
}

type imageResponse struct {
	Hits []struct {
		ID            int64  `json:"id"`
		ImageWidth    int    `json:"imageWidth"`
		ImageHeight   int    `json:"imageHeight"`
		LargeImageURL string `json:"largeImageURL"`
		WebformatURL  string `json:"webformatURL"`
		User          string `json:"user"`
	} `json:"hits"`
}

func (c *Client) searchImages(ctx context.Context, query string, perPage, count int) ([]Result, error) {
	var payload imageResponse
	if err := c.get(ctx, c.imageURL, query, perPage, url.Values{"image_type": {"photo"}}, &payload); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(payload.Hits))
	for _, hit := range payload.Hits {
		link := hit.LargeImageURL
		if link == "" {
			link = hit.WebformatURL
		}
		if link == "" {
			continue
		}
		results = append(results, Result{
			ID:          hit.ID,
			Kind:        timeline.KindPhoto,
			URL:         link,
			Width:       hit.ImageWidth,
			Height:      hit.ImageHeight,
			Attribution: hit.User,
		})
		if len(results) == count {
			break
		}
	}
	return results, nil
}

type videoResponse struct {
	Hits []struct {
		ID       int64   `json:"id"`
		Duration float64 `json:"duration"`
		User     string  `json:"user"`
		Videos   struct {
			Large  videoRendition `json:"large"`
			Medium videoRendition `json:"medium"`
			Small  videoRendition `json:"small"`
		} `json:"videos"`
	} `json:"hits"`
}

type videoRendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (c *Client) searchVideos(ctx context.Context, query string, perPage, count int) ([]Result, error) {
	var payload videoResponse
	if err := c.get(ctx, c.videoURL, query, perPage, nil, &payload); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(payload.Hits))
	for _, hit := range payload.Hits {
		rendition := hit.Videos.Large
		if rendition.URL == "" {
			rendition = hit.Videos.Medium
		}
		if rendition.URL == "" {
			rendition = hit.Videos.Small
		}
		if rendition.URL == "" {
			continue
		}
		results = append(results, Result{
			ID:          hit.ID,
			Kind:        timeline.KindVideo,
			URL:         rendition.URL,
			Width:       rendition.Width,
			Height:      rendition.Height,
			Duration:    hit.Duration,
			Attribution: hit.User,
		})
		if len(results) == count {
			break
		}
	}
	return results, nil
}

func (c *Client) get(ctx context.Context, base, query string, perPage int, extra url.Values, target any) error {
	endpoint, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse pixabay url: %w", err)
	}
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("safesearch", "true")
	for key, values := range extra {
		for _, value := range values {
			params.Add(key, value)
		}
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pixabay search returned %d (latency=%v)", resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode pixabay response: %w", err)
	}
	return nil
}
