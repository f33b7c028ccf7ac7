package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"artist-tracker/internal/api"
	"artist-tracker/internal/constants"
	"artist-tracker/internal/domain"
	"artist-tracker/internal/repository"

	"github.com/rs/zerolog"
)

var chartRecurrences = []struct {
	slug     string
	expected string
}{
	{slug: "daily", expected: "DAILY"},
	{slug: "weekly", expected: "WEEKLY"},
}

// ChartIngest folds the global artist charts into already-tracked artist
// documents. Artists without a detail document are skipped, the chart is not
// a discovery source.
type ChartIngest struct {
	client  *api.Client
	fetcher *Fetcher
	dataDir string
	logger  zerolog.Logger
}

func NewChartIngest(client *api.Client, fetcher *Fetcher, dataDir string, logger zerolog.Logger) *ChartIngest {
	return &ChartIngest{client: client, fetcher: fetcher, dataDir: dataDir, logger: logger}
}

// Run ingests both chart recurrences. A failed recurrence is logged and the
// other one still lands.
func (c *ChartIngest) Run(ctx context.Context) error {
	artists := repository.NewArtistStore(c.dataDir, time.Now().UTC(), c.logger)

	var lastErr error
	for _, recurrence := range chartRecurrences {
		processed, upserts, err := c.ingestOne(ctx, artists, recurrence.slug, recurrence.expected)
		if err != nil {
			c.logger.Error().Str("recurrence", recurrence.expected).Err(err).Msg("chart ingest failed")
			lastErr = err
			continue
		}
		c.logger.Info().
			Str("recurrence", recurrence.expected).
			Int("processed", processed).
			Int("upserts", upserts).
			Msg("chart ingested")
	}
	return lastErr
}

func (c *ChartIngest) ingestOne(ctx context.Context, artists *repository.ArtistStore, slug, expected string) (int, int, error) {
	var payload *api.ChartPayload
	err := c.fetcher.withRetry(ctx, func(ctx context.Context) error {
		fetched, err := c.client.Chart(ctx, slug)
		if err != nil {
			return err
		}
		payload = fetched
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	date := payload.DisplayChart.Date
	recurrence := strings.ToUpper(payload.DisplayChart.ChartMetadata.Dimensions.Recurrence)
	chartType := strings.ToUpper(payload.DisplayChart.ChartMetadata.Dimensions.ChartType)

	if recurrence != expected {
		return 0, 0, fmt.Errorf("unexpected recurrence %q, wanted %q", recurrence, expected)
	}
	if chartType != "" && chartType != "ARTIST" && chartType != "TOP_ARTIST" {
		return 0, 0, fmt.Errorf("unexpected chart type %q", chartType)
	}
	if date == "" {
		return 0, 0, fmt.Errorf("chart payload missing date")
	}

	processed, upserts := 0, 0
	for _, entry := range payload.Entries {
		artistID := artistIDFromURI(entry.ArtistMetadata.ArtistURI)
		if artistID == "" {
			continue
		}
		processed++

		snapshot := domain.ChartSnapshot{
			Date:                          date,
			Recurrence:                    recurrence,
			ChartType:                     payload.DisplayChart.ChartMetadata.Dimensions.ChartType,
			ArtistName:                    entry.ArtistMetadata.ArtistName,
			CurrentRank:                   entry.ChartEntryData.CurrentRank,
			PreviousRank:                  entry.ChartEntryData.PreviousRank,
			PeakRank:                      entry.ChartEntryData.PeakRank,
			PeakDate:                      entry.ChartEntryData.PeakDate,
			AppearancesOnChart:            entry.ChartEntryData.AppearancesOnChart,
			ConsecutiveAppearancesOnChart: entry.ChartEntryData.ConsecutiveAppearancesOnChart,
			EntryStatus:                   entry.ChartEntryData.EntryStatus,
			EntryRank:                     entry.ChartEntryData.EntryRank,
			EntryDate:                     entry.ChartEntryData.EntryDate,
		}
		changed, err := upsertSnapshot(artists, artistID, recurrence, snapshot)
		if err != nil {
			c.logger.Warn().Str("artistId", artistID).Err(err).Msg("chart snapshot write failed")
			continue
		}
		if changed {
			upserts++
		}
	}
	return processed, upserts, nil
}

// upsertSnapshot merges one snapshot into the artist's chart history:
// replace-by-date unless identical, newest first, bounded length.
func upsertSnapshot(artists *repository.ArtistStore, artistID, recurrence string, snapshot domain.ChartSnapshot) (bool, error) {
	doc := artists.LoadDetail(artistID)
	if doc == nil {
		return false, nil
	}

	if doc.ChartSnapshots == nil {
		doc.ChartSnapshots = make(map[string]repository.ChartSnapshotGroup)
	}
	group := doc.ChartSnapshots[recurrence]

	rows := group.Rows
	for i, row := range rows {
		if row.Date != snapshot.Date {
			continue
		}
		if row.Equal(snapshot) {
			return false, nil
		}
		rows = append(rows[:i], rows[i+1:]...)
		break
	}

	rows = append(rows, snapshot)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })
	if len(rows) > constants.MaxSnapshotsPerRecurrence {
		rows = rows[:constants.MaxSnapshotsPerRecurrence]
	}

	group.Rows = rows
	if snapshot.ChartType != "" {
		group.ChartType = snapshot.ChartType
	}
	doc.ChartSnapshots[recurrence] = group

	return true, artists.SaveDoc(doc)
}

func artistIDFromURI(uri string) string {
	const prefix = "spotify:artist:"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimSpace(uri[len(prefix):])
}
