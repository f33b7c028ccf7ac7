package domain

import "time"

// ArtistOverview is the transient, per-run result of one overview fetch.
type ArtistOverview struct {
	ArtistID         string
	Name             string
	ImageSmall       string
	ImageLarge       string
	MonthlyListeners *int64
	Followers        *int64
	WorldRank        *int
	Biography        string
	TopTracks        []TrackInfo
	TopCities        []CityStat
	GalleryImages    []string
	DiscoveredIDs    []string
}

type TrackInfo struct {
	TrackID   string
	Name      string
	Playcount *int64
	ImageID   string
}

type CityStat struct {
	Name        string
	CountryCode string
	Listeners   *int64
	Latitude    *float64
	Longitude   *float64
}

// TrackMetadata is the side-channel enrichment for one track.
type TrackMetadata struct {
	TrackID       string
	PreviewFileID string
	Licensor      string
	Language      string
	ISRC          string
	Label         string
	ReleaseDate   string
	CanvasURL     string
}

// HistoryEntry is one observed day. At most one entry exists per calendar
// day per artist; a same-day rerun replaces it.
type HistoryEntry struct {
	Day              time.Time
	Rank             *int
	MonthlyListeners *int64
	Followers        *int64
}

// ArtistState is the durable per-artist truth owned by the store.
type ArtistState struct {
	History         []HistoryEntry
	FirstSeen       time.Time
	FirstTop        *time.Time
	LastTop         *time.Time
	TimesEnteredTop int
	DaysInTop       int
	BestRank        *int
}

// ArtistMetrics is recomputed from history every run, never stored on its own.
type ArtistMetrics struct {
	DeltaRank      *int
	Growth1        int64
	Growth7        int64
	Growth30       int64
	FreshnessScore float64
	MomentumScore  float64
	StreakDays     int
}

// CityRecord ids are assigned once per unique normalized (name, country)
// pair and stay stable even when coordinates are backfilled later.
type CityRecord struct {
	ID          int
	Name        string
	CountryCode string
	Lat         *float64
	Lon         *float64
}

// ChartSnapshot is one dated row of an artist's append-only chart log.
type ChartSnapshot struct {
	Date                          string `json:"date"`
	Recurrence                    string `json:"recurrence"`
	ChartType                     string `json:"chartType,omitempty"`
	ArtistName                    string `json:"artistName,omitempty"`
	CurrentRank                   int    `json:"currentRank"`
	PreviousRank                  *int   `json:"previousRank,omitempty"`
	PeakRank                      *int   `json:"peakRank,omitempty"`
	PeakDate                      string `json:"peakDate,omitempty"`
	AppearancesOnChart            *int   `json:"appearancesOnChart,omitempty"`
	ConsecutiveAppearancesOnChart *int   `json:"consecutiveAppearancesOnChart,omitempty"`
	EntryStatus                   string `json:"entryStatus,omitempty"`
	EntryRank                     *int   `json:"entryRank,omitempty"`
	EntryDate                     string `json:"entryDate,omitempty"`
}

// Equal reports whether two snapshots carry the same observed values.
func (s ChartSnapshot) Equal(o ChartSnapshot) bool {
	return s.Date == o.Date &&
		s.Recurrence == o.Recurrence &&
		s.ChartType == o.ChartType &&
		s.ArtistName == o.ArtistName &&
		s.CurrentRank == o.CurrentRank &&
		intPtrEqual(s.PreviousRank, o.PreviousRank) &&
		intPtrEqual(s.PeakRank, o.PeakRank) &&
		s.PeakDate == o.PeakDate &&
		intPtrEqual(s.AppearancesOnChart, o.AppearancesOnChart) &&
		intPtrEqual(s.ConsecutiveAppearancesOnChart, o.ConsecutiveAppearancesOnChart) &&
		s.EntryStatus == o.EntryStatus &&
		intPtrEqual(s.EntryRank, o.EntryRank) &&
		s.EntryDate == o.EntryDate
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
