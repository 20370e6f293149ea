package mediapair

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/services"
	"reelsmith/internal/services/pexels"
	"reelsmith/internal/services/pixabay"
	"reelsmith/internal/timeline"
)

// Candidate is a downloadable search hit from any provider.
type Candidate struct {
	URL      string
	Kind     timeline.MediaKind
	Width    int
	Height   int
	Duration float64
}

// Searcher is the provider-neutral search surface.
type Searcher interface {
	Search(ctx context.Context, query string, kind timeline.MediaKind, count int) ([]Candidate, error)
}

// SearchProvider names a searcher for chain construction and logging.
type SearchProvider struct {
	Name     string
	Searcher Searcher
}

type pexelsSearcher struct{ client pexels.Searcher }

// NewPexelsSearcher adapts a pexels client to the pairing search surface.
func NewPexelsSearcher(client pexels.Searcher) Searcher {
	return pexelsSearcher{client: client}
}

func (s pexelsSearcher) Search(ctx context.Context, query string, kind timeline.MediaKind, count int) ([]Candidate, error) {
	results, err := s.client.Search(ctx, query, kind, count)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, stageName, "search", "pexels search failed", err)
	}
	candidates := make([]Candidate, 0, len(results))
	for _, result := range results {
		candidates = append(candidates, Candidate{
			URL:      result.URL,
			Kind:     result.Kind,
			Width:    result.Width,
			Height:   result.Height,
			Duration: result.Duration,
		})
	}
	return candidates, nil
}

type pixabaySearcher struct{ client pixabay.Searcher }

// NewPixabaySearcher adapts a pixabay client to the pairing search surface.
func NewPixabaySearcher(client pixabay.Searcher) Searcher {
	return pixabaySearcher{client: client}
}

func (s pixabaySearcher) Search(ctx context.Context, query string, kind timeline.MediaKind, count int) ([]Candidate, error) {
	results, err := s.client.Search(ctx, query, kind, count)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, stageName, "search", "pixabay search failed", err)
	}
	candidates := make([]Candidate, 0, len(results))
	for _, result := range results {
		candidates = append(candidates, Candidate{
			URL:      result.URL,
			Kind:     result.Kind,
			Width:    result.Width,
			Height:   result.Height,
			Duration: result.Duration,
		})
	}
	return candidates, nil
}

// download streams the candidate to destPath.
func (p *Pairer) download(ctx context.Context, candidate Candidate, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate.URL, nil)
	if err != nil {
		return services.Wrap(services.ErrProvider, stageName, "download", "build download request", err)
	}
	requestStart := time.Now()
	resp, err := p.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return services.Wrap(services.ErrProvider, stageName, "download",
			fmt.Sprintf("download failed (latency=%v)", latency), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrProvider, stageName, "download",
			fmt.Sprintf("download returned %d", resp.StatusCode), nil)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return services.Wrap(services.ErrResource, stageName, "download", "create media directory", err)
	}
	tmpPath := destPath + ".partial"
	out, err := os.Create(tmpPath)
	if err != nil {
		return services.Wrap(services.ErrResource, stageName, "download", "create media file", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return services.Wrap(services.ErrProvider, stageName, "download", "write media file", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrResource, stageName, "download", "close media file", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrResource, stageName, "download", "finalize media file", err)
	}
	return nil
}

// assetExtension picks the on-disk extension for a fetched candidate.
func assetExtension(candidate Candidate) string {
	if candidate.Kind == timeline.KindVideo {
		return ".mp4"
	}
	if ext := strings.ToLower(filepath.Ext(strings.SplitN(candidate.URL, "?", 2)[0])); ext == ".png" {
		return ".png"
	}
	return ".jpg"
}
