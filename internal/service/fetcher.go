// Package service orchestrates the daily tracking run: bounded-concurrency
// fetching, state updates, aggregate publishing and chart ingestion.
package service

import (
	"context"
	"errors"
	"sync"

	"artist-tracker/internal/api"
	"artist-tracker/internal/auth"
	"artist-tracker/internal/constants"
	"artist-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Fetcher runs the upstream reads under one shared concurrency budget. The
// semaphore is held per attempt, not per artist, so a slow retry never
// starves the rest of the run.
type Fetcher struct {
	client      *api.Client
	sem         *semaphore.Weighted
	maxAttempts int
	logger      zerolog.Logger
}

func NewFetcher(client *api.Client, maxConcurrent, maxAttempts int, logger zerolog.Logger) *Fetcher {
	if maxConcurrent < 1 {
		maxConcurrent = constants.DefaultMaxConcurrentRequests
	}
	if maxAttempts < 1 {
		maxAttempts = constants.DefaultMaxAttempts
	}
	return &Fetcher{
		client:      client,
		sem:         semaphore.NewWeighted(int64(maxConcurrent)),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// FetchArtists fetches overviews for all ids concurrently. Failed ids are
// reported, not fatal; losing the token entirely aborts the whole fetch.
func (f *Fetcher) FetchArtists(ctx context.Context, artistIDs []string) (map[string]*domain.ArtistOverview, []string, error) {
	results := make(map[string]*domain.ArtistOverview, len(artistIDs))
	var failed []string
	var mu sync.Mutex

	group, ctx := errgroup.WithContext(ctx)
	for _, artistID := range artistIDs {
		artistID := artistID
		group.Go(func() error {
			overview, err := f.fetchOverview(ctx, artistID)
			if err != nil {
				if errors.Is(err, auth.ErrNoToken) || errors.Is(err, context.Canceled) {
					return err
				}
				f.logger.Error().Str("artistId", artistID).Err(err).Msg("artist fetch failed")
				mu.Lock()
				failed = append(failed, artistID)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			results[overview.ArtistID] = overview
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return results, failed, nil
}

func (f *Fetcher) fetchOverview(ctx context.Context, artistID string) (*domain.ArtistOverview, error) {
	var overview *domain.ArtistOverview
	err := f.withRetry(ctx, func(ctx context.Context) error {
		fetched, err := f.client.ArtistOverview(ctx, artistID)
		if err != nil {
			return err
		}
		overview = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return overview, nil
}

// EnrichTracks resolves metadata for every track id, then decorates the
// results with canvas URLs in fixed-size batches. Per-track failures only
// cost that track its enrichment.
func (f *Fetcher) EnrichTracks(ctx context.Context, trackIDs []string) (map[string]*domain.TrackMetadata, error) {
	unique := dedupeStrings(trackIDs)
	if len(unique) == 0 {
		return map[string]*domain.TrackMetadata{}, nil
	}

	results := make(map[string]*domain.TrackMetadata, len(unique))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	for _, trackID := range unique {
		trackID := trackID
		group.Go(func() error {
			var meta *domain.TrackMetadata
			err := f.withRetry(groupCtx, func(ctx context.Context) error {
				fetched, err := f.client.TrackMetadata(ctx, trackID)
				if err != nil {
					return err
				}
				meta = fetched
				return nil
			})
			if err != nil {
				if errors.Is(err, auth.ErrNoToken) || errors.Is(err, context.Canceled) {
					return err
				}
				f.logger.Warn().Str("trackId", trackID).Err(err).Msg("track metadata fetch failed")
				return nil
			}
			mu.Lock()
			results[trackID] = meta
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return results, nil
	}

	canvases, err := f.fetchCanvases(ctx, unique)
	if err != nil {
		return nil, err
	}
	for trackID, canvasURL := range canvases {
		if meta, ok := results[trackID]; ok {
			meta.CanvasURL = canvasURL
		}
	}
	return results, nil
}

func (f *Fetcher) fetchCanvases(ctx context.Context, trackIDs []string) (map[string]string, error) {
	results := make(map[string]string)
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	for start := 0; start < len(trackIDs); start += constants.CanvasBatchSize {
		end := start + constants.CanvasBatchSize
		if end > len(trackIDs) {
			end = len(trackIDs)
		}
		batch := trackIDs[start:end]
		group.Go(func() error {
			var batchResult map[string]string
			err := f.withRetry(groupCtx, func(ctx context.Context) error {
				fetched, err := f.client.CanvasBatch(ctx, batch)
				if err != nil {
					return err
				}
				batchResult = fetched
				return nil
			})
			if err != nil {
				if errors.Is(err, auth.ErrNoToken) || errors.Is(err, context.Canceled) {
					return err
				}
				f.logger.Warn().Int("tracks", len(batch)).Err(err).Msg("canvas batch failed")
				return nil
			}
			mu.Lock()
			for trackID, canvasURL := range batchResult {
				if _, exists := results[trackID]; !exists {
					results[trackID] = canvasURL
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// withRetry runs one upstream operation under the concurrency budget and the
// shared backoff policy. Auth loss and permanent client errors break out
// immediately.
func (f *Fetcher) withRetry(ctx context.Context, op func(context.Context) error) error {
	return retry.Do(ctx, api.RetryPolicy(f.maxAttempts), func(ctx context.Context) error {
		if err := f.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer f.sem.Release(1)

		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, auth.ErrNoToken) {
			return err
		}
		if api.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
