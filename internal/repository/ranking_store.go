package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"artist-tracker/internal/constants"
	"artist-tracker/internal/domain"

	"github.com/rs/zerolog"
)

var (
	top500Fields    = []string{"i", "n", "p", "r", "ml", "f", "dr", "g1", "g7", "g30", "fs", "ms", "br", "st"}
	former500Fields = []string{"i", "n", "p", "ml", "f", "br", "lf", "ls"}
)

// RankingDoc is a dated ranking aggregate (top500.json / former500.json).
type RankingDoc struct {
	V      int      `json:"v"`
	Date   string   `json:"date"`
	Fields []string `json:"fields"`
	Rows   [][]any  `json:"rows"`
}

type metaDoc struct {
	Date     string            `json:"date"`
	Schema   string            `json:"schema"`
	Pointers map[string]string `json:"pointers"`
}

// TopEntry is one ranked artist heading into today's top aggregate.
type TopEntry struct {
	Overview *domain.ArtistOverview
	State    *domain.ArtistState
	Metrics  domain.ArtistMetrics
}

// FormerEntry is an artist that has charted before but not today.
type FormerEntry struct {
	ID        string
	Name      string
	Image     string
	ML        *int64
	Followers *int64
	BestRank  *int
	LastTop   *time.Time
	DaysSince *int
}

// RankingStore writes the dated aggregates: the rolling latest documents,
// their gzip siblings and the immutable daily copies.
type RankingStore struct {
	dataDir string
	logger  zerolog.Logger
}

func NewRankingStore(dataDir string, logger zerolog.Logger) *RankingStore {
	return &RankingStore{dataDir: dataDir, logger: logger}
}

func (s *RankingStore) latestDir() string { return filepath.Join(s.dataDir, "latest") }

func (s *RankingStore) dailyDir(today time.Time) string {
	return filepath.Join(s.dataDir, "daily",
		fmt.Sprintf("%04d", today.Year()), fmt.Sprintf("%02d", today.Month()), fmt.Sprintf("%02d", today.Day()))
}

// EnsureLayout creates the output directory tree.
func (s *RankingStore) EnsureLayout() error {
	for _, dir := range []string{
		s.dataDir,
		filepath.Join(s.dataDir, "artists"),
		s.latestDir(),
		filepath.Join(s.dataDir, "daily"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// BuildTopPayload assembles today's top aggregate, ordered by world rank and
// capped at the tracked limit.
func (s *RankingStore) BuildTopPayload(entries []TopEntry, today time.Time) *RankingDoc {
	sorted := make([]TopEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rankOrDefault(sorted[i].Overview.WorldRank) < rankOrDefault(sorted[j].Overview.WorldRank)
	})

	doc := &RankingDoc{
		V:      constants.DataVersion,
		Date:   domain.FormatDay(today),
		Fields: top500Fields,
		Rows:   [][]any{},
	}
	for _, entry := range sorted {
		if len(doc.Rows) >= constants.TopArtistLimit {
			break
		}
		o, m := entry.Overview, entry.Metrics
		doc.Rows = append(doc.Rows, []any{
			o.ArtistID,
			o.Name,
			firstNonEmpty(o.ImageSmall, o.ImageLarge),
			o.WorldRank,
			o.MonthlyListeners,
			o.Followers,
			m.DeltaRank,
			m.Growth1,
			m.Growth7,
			m.Growth30,
			round4(m.FreshnessScore),
			round4(m.MomentumScore),
			entry.State.BestRank,
			m.StreakDays,
		})
	}
	return doc
}

// BuildFormerPayload assembles the former-charters aggregate, largest
// audiences first, most recently departed breaking ties.
func (s *RankingStore) BuildFormerPayload(entries []FormerEntry, today time.Time) *RankingDoc {
	sorted := make([]FormerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		mi, mj := int64Or(sorted[i].ML, 0), int64Or(sorted[j].ML, 0)
		if mi != mj {
			return mi > mj
		}
		di, dj := daysOrMax(sorted[i].DaysSince), daysOrMax(sorted[j].DaysSince)
		if di != dj {
			return di < dj
		}
		return sorted[i].Name < sorted[j].Name
	})

	doc := &RankingDoc{
		V:      constants.DataVersion,
		Date:   domain.FormatDay(today),
		Fields: former500Fields,
		Rows:   [][]any{},
	}
	for _, entry := range sorted {
		doc.Rows = append(doc.Rows, []any{
			entry.ID,
			entry.Name,
			orNil(entry.Image),
			entry.ML,
			entry.Followers,
			entry.BestRank,
			formatDayPtr(entry.LastTop),
			entry.DaysSince,
		})
	}
	return doc
}

// WriteSnapshots publishes both aggregates to the immutable daily directory
// and the rolling latest directory, then refreshes the meta pointers.
func (s *RankingStore) WriteSnapshots(top, former *RankingDoc, today time.Time) error {
	daily := s.dailyDir(today)
	if err := writeJSONAtomic(filepath.Join(daily, "top500.json"), top); err != nil {
		return err
	}
	if err := writeJSONAtomic(filepath.Join(daily, "former500.json"), former); err != nil {
		return err
	}

	if err := writeJSONWithGzip(filepath.Join(s.latestDir(), "top500.json"), top); err != nil {
		return err
	}
	if err := writeJSONWithGzip(filepath.Join(s.latestDir(), "former500.json"), former); err != nil {
		return err
	}

	day := domain.FormatDay(today)
	meta := metaDoc{
		Date:   day,
		Schema: constants.SchemaVersion,
		Pointers: map[string]string{
			"top500":    "/data/latest/top500.json?v=" + day,
			"former500": "/data/latest/former500.json?v=" + day,
		},
	}
	return writeJSONAtomic(filepath.Join(s.latestDir(), "meta.json"), meta)
}

// WriteDiscovered records related-artist ids seen this run but not yet
// tracked, as seed candidates for future runs.
func (s *RankingStore) WriteDiscovered(ids []string, today time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return writeJSONAtomic(filepath.Join(s.latestDir(), "discovered.json"), map[string]any{
		"date": domain.FormatDay(today),
		"ids":  sorted,
	})
}

// ArtistIDsFromLatest reads the leading id column of a latest aggregate.
// Missing and malformed documents read as empty.
func (s *RankingStore) ArtistIDsFromLatest(name string, limit int) []string {
	path := filepath.Join(s.latestDir(), name)
	var doc RankingDoc
	found, err := loadJSON(path, &doc)
	if err != nil {
		s.logger.Warn().Str("path", path).Err(err).Msg("malformed ranking document, ignoring")
		return nil
	}
	if !found {
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, row := range doc.Rows {
		if len(row) == 0 {
			continue
		}
		id, ok := row[0].(string)
		if !ok || id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids
}

func rankOrDefault(rank *int) int {
	if rank == nil {
		return constants.TopArtistLimit + 1
	}
	return *rank
}

func int64Or(v *int64, fallback int64) int64 {
	if v == nil {
		return fallback
	}
	return *v
}

func daysOrMax(v *int) int {
	if v == nil {
		return int(^uint(0) >> 1)
	}
	return *v
}
