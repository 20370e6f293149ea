package mediapair

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/fallback"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

const stageName = "pairing"

// Config bounds the pairing stage.
type Config struct {
	MediaDir       string
	Parallelism    int
	MinStillHeight int
}

func (c Config) parallelism() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return 3
}

// Pairer fetches one asset per scene.
type Pairer struct {
	planner    *Planner
	providers  []SearchProvider
	verifier   Verifier
	cfg        Config
	logger     *slog.Logger
	httpClient *http.Client
}

// New creates a pairer. providers are tried in order; verifier may be nil.
func New(planner *Planner, providers []SearchProvider, verifier Verifier, cfg Config, logger *slog.Logger) *Pairer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pairer{
		planner:    planner,
		providers:  providers,
		verifier:   verifier,
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// WithHTTPClient overrides the download client (for testing).
func (p *Pairer) WithHTTPClient(client *http.Client) {
	if client != nil {
		p.httpClient = client
	}
}

// Pair produces exactly one asset per scene, index aligned. Scenes run in
// parallel; the placeholder renderer closes every chain so a scene can only
// fail on disk errors. progress may be nil.
func (p *Pairer) Pair(ctx context.Context, jobID string, scenes []timeline.Scene, progress func(done, total int)) ([]timeline.MediaAsset, error) {
	if len(scenes) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "pair", "no scenes to pair", nil)
	}

	assets := make([]timeline.MediaAsset, len(scenes))
	tracker := newQueryTracker()

	var mu sync.Mutex
	completed := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.parallelism())
	for index, scene := range scenes {
		group.Go(func() error {
			asset, err := p.pairScene(groupCtx, tracker, jobID, index, scene)
			if err != nil {
				return err
			}
			assets[index] = asset
			mu.Lock()
			completed++
			if progress != nil {
				progress(completed, len(scenes))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return assets, nil
}

func (p *Pairer) pairScene(ctx context.Context, tracker *queryTracker, jobID string, index int, scene timeline.Scene) (timeline.MediaAsset, error) {
	logger := p.logger.With(logging.Int(logging.FieldSceneIndex, index))

	query, err := p.planner.Plan(ctx, scene)
	if err != nil {
		return timeline.MediaAsset{}, err
	}
	query.Text = tracker.apply(query.Text)
	logger.Debug("planned media query", logging.String("query", query.Text), logging.String("kind", string(query.Kind)))

	asset, err := p.fetchScene(ctx, logger, jobID, index, scene, query)
	if err != nil {
		return timeline.MediaAsset{}, err
	}
	asset.SceneIndex = index

	p.verifyAsset(ctx, logger, asset, scene)

	if asset.Kind == timeline.KindPhoto && !asset.Metadata.Placeholder {
		if err := enhanceStill(asset.Path, p.cfg.MinStillHeight); err != nil {
			logger.Warn("still enhancement failed, using original", logging.Error(err))
		}
	}
	return asset, nil
}

func (p *Pairer) fetchScene(ctx context.Context, logger *slog.Logger, jobID string, index int, scene timeline.Scene, query Query) (timeline.MediaAsset, error) {
	providers := make([]fallback.Provider[timeline.MediaAsset], 0, len(p.providers)+1)
	for _, provider := range p.providers {
		providers = append(providers, fallback.Provider[timeline.MediaAsset]{
			Name: provider.Name,
			Run: func(ctx context.Context) (timeline.MediaAsset, error) {
				return p.fetchFromProvider(ctx, provider, jobID, index, query)
			},
		})
	}
	providers = append(providers, fallback.Provider[timeline.MediaAsset]{
		Name: "placeholder",
		Run: func(ctx context.Context) (timeline.MediaAsset, error) {
			destPath := filepath.Join(p.cfg.MediaDir, jobID, fmt.Sprintf("scene_%03d.png", index))
			return renderPlaceholder(scene, query.Text, destPath)
		},
	})

	outcome, err := fallback.Run(ctx, logger, stageName, "fetch", providers)
	if err != nil {
		return timeline.MediaAsset{}, err
	}
	asset := outcome.Value
	if asset.Metadata.Provider == "" {
		asset.Metadata.Provider = outcome.Provider
	}
	return asset, nil
}

func (p *Pairer) fetchFromProvider(ctx context.Context, provider SearchProvider, jobID string, index int, query Query) (timeline.MediaAsset, error) {
	candidates, err := provider.Searcher.Search(ctx, query.Text, query.Kind, 1)
	if err != nil {
		return timeline.MediaAsset{}, err
	}
	if len(candidates) == 0 {
		return timeline.MediaAsset{}, services.Wrap(services.ErrProvider, stageName, "search",
			fmt.Sprintf("no %s results for %q", query.Kind, query.Text), nil)
	}
	candidate := candidates[0]
	destPath := filepath.Join(p.cfg.MediaDir, jobID, fmt.Sprintf("scene_%03d%s", index, assetExtension(candidate)))
	if err := p.download(ctx, candidate, destPath); err != nil {
		return timeline.MediaAsset{}, err
	}
	return timeline.MediaAsset{
		Path: destPath,
		Kind: candidate.Kind,
		Metadata: timeline.AssetMetadata{
			PlaybackSpeed: 1.0,
			SearchQuery:   query.Text,
			Provider:      provider.Name,
			SourceURL:     candidate.URL,
		},
	}, nil
}

// verifyAsset runs the advisory vision check. Scores and failures are logged
// only; pairing never rejects an asset on verification.
func (p *Pairer) verifyAsset(ctx context.Context, logger *slog.Logger, asset timeline.MediaAsset, scene timeline.Scene) {
	if p.verifier == nil || asset.Metadata.Placeholder {
		return
	}
	result, err := p.verifier.Verify(ctx, asset, scene)
	if err != nil {
		logger.Warn("media verification unavailable", logging.Error(err))
		return
	}
	if result.Score < 50 {
		logger.Warn("media verification scored low",
			logging.Int("score", result.Score),
			logging.String("explanation", result.Explanation))
		return
	}
	logger.Debug("media verified",
		logging.Int("score", result.Score),
		logging.String("explanation", result.Explanation))
}
