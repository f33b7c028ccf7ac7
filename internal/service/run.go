package service

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"artist-tracker/internal/auth"
	"artist-tracker/internal/config"
	"artist-tracker/internal/constants"
	"artist-tracker/internal/domain"
	"artist-tracker/internal/geo"
	"artist-tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Pipeline is the daily tracking run.
type Pipeline struct {
	cfg      *config.Config
	tokens   *auth.TokenManager
	fetcher  *Fetcher
	rankings *repository.RankingStore
	logger   zerolog.Logger
}

func NewPipeline(cfg *config.Config, tokens *auth.TokenManager, fetcher *Fetcher, rankings *repository.RankingStore, logger zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, tokens: tokens, fetcher: fetcher, rankings: rankings, logger: logger}
}

// Run executes one full cycle: resolve targets, fetch, update state, enrich
// tracks, publish aggregates.
func (p *Pipeline) Run(ctx context.Context) error {
	logger := p.logger.With().Str("runId", uuid.NewString()).Logger()
	today := domain.DayOf(time.Now().UTC())

	if err := p.rankings.EnsureLayout(); err != nil {
		return err
	}

	artistIDs := p.resolveTargetIDs(logger)
	if len(artistIDs) == 0 {
		return fmt.Errorf("no artist ids available from latest aggregates or %s", p.cfg.ArtistIDsPath)
	}
	logger.Info().Int("artists", len(artistIDs)).Msg("targets resolved")

	// One warmup exchange before fanning out. A dead credential path fails
	// the run here instead of 850 times in parallel.
	if _, err := p.tokens.GetToken(ctx); err != nil {
		return fmt.Errorf("token warmup: %w", err)
	}

	overviews, failedIDs, err := p.fetcher.FetchArtists(ctx, artistIDs)
	if err != nil {
		return err
	}
	logger.Info().Int("fetched", len(overviews)).Int("failed", len(failedIDs)).Msg("artist fetch complete")

	var trackIDs []string
	for _, overview := range overviews {
		tracks := overview.TopTracks
		if len(tracks) > constants.TopTrackLimit {
			tracks = tracks[:constants.TopTrackLimit]
		}
		for _, track := range tracks {
			trackIDs = append(trackIDs, track.TrackID)
		}
	}
	trackMeta, err := p.fetcher.EnrichTracks(ctx, trackIDs)
	if err != nil {
		return err
	}
	logger.Info().Int("tracks", len(trackMeta)).Msg("track enrichment complete")

	geoStore, err := geo.NewStore(
		filepath.Join(p.cfg.DataDir, "latest", "geo-cities.json"),
		p.cfg.CitiesPath,
		logger,
	)
	if err != nil {
		return err
	}
	artists := repository.NewArtistStore(p.cfg.DataDir, today, logger)

	// The store phase is sequential and deterministic.
	fetchedIDs := make([]string, 0, len(overviews))
	for artistID := range overviews {
		fetchedIDs = append(fetchedIDs, artistID)
	}
	sort.Strings(fetchedIDs)

	tracked := make(map[string]bool, len(artistIDs))
	for _, artistID := range artistIDs {
		tracked[artistID] = true
	}

	var topEntries []repository.TopEntry
	var formerEntries []repository.FormerEntry
	var discovered []string
	discoveredSeen := make(map[string]bool)

	for _, artistID := range fetchedIDs {
		overview := overviews[artistID]
		metrics := artists.Update(overview)
		state := artists.State(artistID)
		if err := artists.SaveDetail(overview, state, metrics, geoStore, trackMeta); err != nil {
			logger.Error().Str("artistId", artistID).Err(err).Msg("detail write failed")
			continue
		}

		if overview.WorldRank != nil && *overview.WorldRank <= constants.TopArtistLimit {
			topEntries = append(topEntries, repository.TopEntry{Overview: overview, State: state, Metrics: metrics})
		} else if state.LastTop != nil {
			days := domain.DaysBetween(*state.LastTop, today)
			formerEntries = append(formerEntries, repository.FormerEntry{
				ID:        artistID,
				Name:      overview.Name,
				Image:     firstNonEmpty(overview.ImageSmall, overview.ImageLarge),
				ML:        overview.MonthlyListeners,
				Followers: overview.Followers,
				BestRank:  state.BestRank,
				LastTop:   state.LastTop,
				DaysSince: &days,
			})
		}

		for _, relatedID := range overview.DiscoveredIDs {
			if !tracked[relatedID] && !discoveredSeen[relatedID] {
				discoveredSeen[relatedID] = true
				discovered = append(discovered, relatedID)
			}
		}
	}

	p.carryForwardFormer(artists, topEntries, &formerEntries, today)

	top := p.rankings.BuildTopPayload(topEntries, today)
	former := p.rankings.BuildFormerPayload(formerEntries, today)
	if err := p.rankings.WriteSnapshots(top, former, today); err != nil {
		return err
	}
	if err := p.rankings.WriteDiscovered(discovered, today); err != nil {
		return err
	}
	if err := geoStore.Flush(); err != nil {
		return err
	}

	if len(failedIDs) > 0 {
		preview := failedIDs
		if len(preview) > 10 {
			preview = preview[:10]
		}
		logger.Warn().Int("count", len(failedIDs)).Strs("ids", preview).Msg("some artists failed to fetch")
	}
	logger.Info().
		Int("top", len(top.Rows)).
		Int("former", len(former.Rows)).
		Int("discovered", len(discovered)).
		Msg("run complete")
	return nil
}

// resolveTargetIDs seeds today's run from yesterday's aggregates, topping up
// from the seed file when the top list runs short.
func (p *Pipeline) resolveTargetIDs(logger zerolog.Logger) []string {
	topIDs := p.rankings.ArtistIDsFromLatest("top500.json", constants.TopArtistLimit)
	formerIDs := p.rankings.ArtistIDsFromLatest("former500.json", 0)

	if len(topIDs) < constants.TopArtistLimit {
		seeded := 0
		for _, seedID := range loadArtistIDsFile(p.cfg.ArtistIDsPath, logger) {
			if containsID(topIDs, seedID) {
				continue
			}
			topIDs = append(topIDs, seedID)
			seeded++
			if len(topIDs) >= constants.TopArtistLimit {
				break
			}
		}
		if seeded > 0 {
			logger.Info().Int("seeded", seeded).Msg("supplemented targets from seed file")
		}
	}

	return dedupeStrings(append(topIDs, formerIDs...))
}

// carryForwardFormer keeps previously recorded former artists visible even
// when today's run did not fetch them, reading their last published details.
func (p *Pipeline) carryForwardFormer(
	artists *repository.ArtistStore,
	topEntries []repository.TopEntry,
	formerEntries *[]repository.FormerEntry,
	today time.Time,
) {
	inTop := make(map[string]bool, len(topEntries))
	for _, entry := range topEntries {
		inTop[entry.Overview.ArtistID] = true
	}
	recorded := make(map[string]bool, len(*formerEntries))
	for _, entry := range *formerEntries {
		recorded[entry.ID] = true
	}

	for _, prevID := range p.rankings.ArtistIDsFromLatest("former500.json", 0) {
		if inTop[prevID] || recorded[prevID] {
			continue
		}
		state := artists.State(prevID)
		if state.LastTop == nil {
			continue
		}
		detail := artists.LoadDetail(prevID)
		if detail == nil {
			continue
		}

		lastTop := state.LastTop
		if fromDoc := parseDayField(detail.Meta.Last500); fromDoc != nil {
			lastTop = fromDoc
		}
		days := domain.DaysBetween(*lastTop, today)

		name := detail.N
		if name == "" {
			name = prevID
		}
		bestRank := detail.Meta.BR
		if bestRank == nil {
			bestRank = state.BestRank
		}
		*formerEntries = append(*formerEntries, repository.FormerEntry{
			ID:        prevID,
			Name:      name,
			Image:     detail.P,
			ML:        detail.Today.ML,
			Followers: detail.Today.F,
			BestRank:  bestRank,
			LastTop:   lastTop,
			DaysSince: &days,
		})
	}
}

// loadArtistIDsFile reads one id per line, skipping blanks and # comments.
func loadArtistIDsFile(path string, logger zerolog.Logger) []string {
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Str("path", path).Err(err).Msg("seed file unreadable")
		}
		return nil
	}
	defer file.Close()

	var ids []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		ids = append(ids, line)
	}
	return ids
}

func parseDayField(value *string) *time.Time {
	if value == nil {
		return nil
	}
	day, ok := domain.ParseDay(*value)
	if !ok {
		return nil
	}
	return &day
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func containsID(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
