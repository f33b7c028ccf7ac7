package repository

import (
	"math"
	"path/filepath"
	"strings"
	"time"

	"artist-tracker/internal/constants"
	"artist-tracker/internal/domain"
	"artist-tracker/internal/geo"
	"artist-tracker/internal/stats"

	"github.com/rs/zerolog"
)

var topTrackFields = []string{"i", "n", "pl", "img", "preview", "licensor", "language", "isrc", "label", "rd", "canvas"}

// TableDoc is the compact columnar table used throughout the published
// documents: a field name list plus positional rows.
type TableDoc struct {
	Fields []string `json:"fields"`
	Rows   [][]any  `json:"rows"`
}

// FieldIndex maps field names to their row positions.
func (t *TableDoc) FieldIndex() map[string]int {
	index := make(map[string]int, len(t.Fields))
	for i, f := range t.Fields {
		index[f] = i
	}
	return index
}

type TodaySection struct {
	D   string  `json:"d"`
	R   *int    `json:"r"`
	ML  *int64  `json:"ml"`
	F   *int64  `json:"f"`
	DR  *int    `json:"dr"`
	G1  int64   `json:"g1"`
	G7  int64   `json:"g7"`
	G30 int64   `json:"g30"`
	FS  float64 `json:"fs"`
	MS  float64 `json:"ms"`
}

type MetaSection struct {
	FirstSeen       string  `json:"firstSeen"`
	First500        *string `json:"first500"`
	Last500         *string `json:"last500"`
	TimesEntered500 int     `json:"timesEntered500"`
	Days500         int     `json:"days500"`
	BR              *int    `json:"br"`
}

// ChartSnapshotGroup holds the chart history for one recurrence.
type ChartSnapshotGroup struct {
	ChartType string                 `json:"chartType"`
	Rows      []domain.ChartSnapshot `json:"rows"`
}

// ArtistDoc is the per-artist detail document.
type ArtistDoc struct {
	V              int                           `json:"v"`
	I              string                        `json:"i"`
	N              string                        `json:"n"`
	P              string                        `json:"p,omitempty"`
	Today          TodaySection                  `json:"today"`
	Meta           MetaSection                   `json:"meta"`
	Bio            string                        `json:"bio,omitempty"`
	Gallery        []string                      `json:"gallery,omitempty"`
	Series         *TableDoc                     `json:"series,omitempty"`
	TopTracks      TableDoc                      `json:"topTracks"`
	TopCities      TableDoc                      `json:"topCities"`
	RelatedArtists []string                      `json:"relatedArtists"`
	ChartSnapshots map[string]ChartSnapshotGroup `json:"chartSnapshots,omitempty"`
}

// ArtistStore owns the per-artist state machine and detail documents,
// sharded two levels deep by id prefix.
type ArtistStore struct {
	artistsDir string
	today      time.Time
	logger     zerolog.Logger
	states     map[string]*domain.ArtistState
}

func NewArtistStore(dataDir string, today time.Time, logger zerolog.Logger) *ArtistStore {
	return &ArtistStore{
		artistsDir: filepath.Join(dataDir, "artists"),
		today:      domain.DayOf(today),
		logger:     logger,
		states:     make(map[string]*domain.ArtistState),
	}
}

func (s *ArtistStore) artistPath(artistID string) string {
	prefix := strings.ToLower(artistID)
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(s.artistsDir, prefix, artistID+".json")
}

// LoadDetail reads an existing detail document. Malformed files are logged
// and treated as absent so one bad write never wedges an artist forever.
func (s *ArtistStore) LoadDetail(artistID string) *ArtistDoc {
	var doc ArtistDoc
	found, err := loadJSON(s.artistPath(artistID), &doc)
	if err != nil {
		s.logger.Warn().Str("artistId", artistID).Err(err).Msg("malformed detail document, starting fresh")
		return nil
	}
	if !found {
		return nil
	}
	return &doc
}

// State returns the cached state for an artist, rebuilding it from the
// persisted series and meta sections on first access.
func (s *ArtistStore) State(artistID string) *domain.ArtistState {
	if state, ok := s.states[artistID]; ok {
		return state
	}
	state := s.rebuildState(s.LoadDetail(artistID))
	s.states[artistID] = state
	return state
}

func (s *ArtistStore) rebuildState(doc *ArtistDoc) *domain.ArtistState {
	state := &domain.ArtistState{}
	if doc == nil {
		return state
	}

	if doc.Series != nil {
		index := doc.Series.FieldIndex()
		for _, row := range doc.Series.Rows {
			day, ok := domain.ParseDay(rowString(row, index, "d"))
			if !ok {
				continue
			}
			state.History = append(state.History, domain.HistoryEntry{
				Day:              day,
				MonthlyListeners: rowInt64(row, index, "ml"),
				Followers:        rowInt64(row, index, "f"),
				Rank:             rowInt(row, index, "r"),
			})
		}
	}

	if firstSeen, ok := domain.ParseDay(doc.Meta.FirstSeen); ok {
		state.FirstSeen = firstSeen
	}
	state.FirstTop = parseDayPtr(doc.Meta.First500)
	state.LastTop = parseDayPtr(doc.Meta.Last500)
	state.TimesEnteredTop = doc.Meta.TimesEntered500
	state.DaysInTop = doc.Meta.Days500
	state.BestRank = doc.Meta.BR
	return state
}

// Update folds today's observation into the artist state and returns the
// recomputed trend metrics. Re-running the same day replaces the entry
// without double counting streaks or entry counters.
func (s *ArtistStore) Update(overview *domain.ArtistOverview) domain.ArtistMetrics {
	state := s.State(overview.ArtistID)

	// A same-day entry is replaced. Counters stay suppressed only when that
	// entry already counted as an in-list day; a rerun that gains a rank
	// still records the entry.
	countedToday := false
	if n := len(state.History); n > 0 && domain.SameDay(state.History[n-1].Day, s.today) {
		replaced := state.History[n-1]
		countedToday = replaced.Rank != nil && *replaced.Rank <= constants.TopArtistLimit
		state.History = state.History[:n-1]
	}

	previousInTop := false
	if n := len(state.History); n > 0 {
		prev := state.History[n-1]
		previousInTop = prev.Rank != nil && *prev.Rank <= constants.TopArtistLimit
	}

	state.History = append(state.History, domain.HistoryEntry{
		Day:              s.today,
		Rank:             overview.WorldRank,
		MonthlyListeners: overview.MonthlyListeners,
		Followers:        overview.Followers,
	})
	if len(state.History) > constants.HistoryWindowDays {
		state.History = state.History[len(state.History)-constants.HistoryWindowDays:]
	}

	if state.FirstSeen.IsZero() {
		state.FirstSeen = s.today
	}

	inTopToday := overview.WorldRank != nil && *overview.WorldRank <= constants.TopArtistLimit
	if inTopToday {
		if !countedToday {
			state.DaysInTop++
			if !previousInTop {
				state.TimesEnteredTop++
			}
		}
		today := s.today
		state.LastTop = &today
		if state.FirstTop == nil {
			state.FirstTop = &today
		}
		if state.BestRank == nil || *overview.WorldRank < *state.BestRank {
			rank := *overview.WorldRank
			state.BestRank = &rank
		}
	}

	return stats.Compute(state)
}

// SaveDetail assembles and writes the detail document, merging freshly
// fetched track rows with whatever survives from the previous document.
func (s *ArtistStore) SaveDetail(
	overview *domain.ArtistOverview,
	state *domain.ArtistState,
	metrics domain.ArtistMetrics,
	geoStore *geo.Store,
	trackMeta map[string]*domain.TrackMetadata,
) error {
	existing := s.LoadDetail(overview.ArtistID)
	latest := state.History[len(state.History)-1]

	doc := &ArtistDoc{
		V: constants.DataVersion,
		I: overview.ArtistID,
		N: overview.Name,
		P: firstNonEmpty(overview.ImageLarge, overview.ImageSmall),
		Today: TodaySection{
			D:   domain.FormatDay(s.today),
			R:   latest.Rank,
			ML:  latest.MonthlyListeners,
			F:   overview.Followers,
			DR:  metrics.DeltaRank,
			G1:  metrics.Growth1,
			G7:  metrics.Growth7,
			G30: metrics.Growth30,
			FS:  round4(metrics.FreshnessScore),
			MS:  round4(metrics.MomentumScore),
		},
		Meta: MetaSection{
			FirstSeen:       domain.FormatDay(state.FirstSeen),
			First500:        formatDayPtr(state.FirstTop),
			Last500:         formatDayPtr(state.LastTop),
			TimesEntered500: state.TimesEnteredTop,
			Days500:         state.DaysInTop,
			BR:              state.BestRank,
		},
		RelatedArtists: overview.DiscoveredIDs,
	}
	if doc.RelatedArtists == nil {
		doc.RelatedArtists = []string{}
	}

	doc.Bio = overview.Biography
	if doc.Bio == "" && existing != nil {
		doc.Bio = strings.TrimSpace(existing.Bio)
	}
	if len(overview.GalleryImages) > 0 {
		doc.Gallery = overview.GalleryImages
	}

	if len(state.History) > 0 {
		series := &TableDoc{Fields: []string{"d", "ml", "f", "r"}}
		for _, entry := range state.History {
			series.Rows = append(series.Rows, []any{
				domain.FormatDay(entry.Day), entry.MonthlyListeners, entry.Followers, entry.Rank,
			})
		}
		doc.Series = series
	}

	doc.TopTracks = s.mergeTopTracks(overview, existing, trackMeta)

	doc.TopCities = TableDoc{Fields: []string{"cid", "l"}, Rows: [][]any{}}
	for _, city := range overview.TopCities {
		if city.Listeners == nil {
			continue
		}
		cid, ok := geoStore.EnsureCity(city.Name, city.CountryCode, city.Latitude, city.Longitude)
		if !ok {
			continue
		}
		doc.TopCities.Rows = append(doc.TopCities.Rows, []any{cid, *city.Listeners})
	}

	if existing != nil && len(existing.ChartSnapshots) > 0 {
		doc.ChartSnapshots = existing.ChartSnapshots
	}

	return writeJSONAtomic(s.artistPath(overview.ArtistID), doc)
}

// SaveDoc writes a detail document back as-is. Used by the chart ingest,
// which only touches the chartSnapshots section.
func (s *ArtistStore) SaveDoc(doc *ArtistDoc) error {
	return writeJSONAtomic(s.artistPath(doc.I), doc)
}

func (s *ArtistStore) mergeTopTracks(
	overview *domain.ArtistOverview,
	existing *ArtistDoc,
	trackMeta map[string]*domain.TrackMetadata,
) TableDoc {
	existingRows := make(map[string]map[string]any)
	var existingOrder []string
	if existing != nil {
		index := existing.TopTracks.FieldIndex()
		for _, row := range existing.TopTracks.Rows {
			id := rowString(row, index, "i")
			if id == "" {
				continue
			}
			if _, seen := existingRows[id]; seen {
				continue
			}
			fields := make(map[string]any, len(index))
			for name, i := range index {
				if i < len(row) {
					fields[name] = row[i]
				}
			}
			existingRows[id] = fields
			existingOrder = append(existingOrder, id)
		}
	}

	out := TableDoc{Fields: topTrackFields, Rows: [][]any{}}
	seen := make(map[string]bool)

	fresh := overview.TopTracks
	if len(fresh) > constants.TopTrackLimit {
		fresh = fresh[:constants.TopTrackLimit]
	}
	for _, track := range fresh {
		seen[track.TrackID] = true
		fallback := existingRows[track.TrackID]
		meta := trackMeta[track.TrackID]

		name := track.Name
		if name == "" {
			name = asRowString(fallback["n"])
		}
		if name == "" {
			name = track.TrackID
		}
		var playcount any = fallback["pl"]
		if track.Playcount != nil {
			playcount = *track.Playcount
		}
		var image any = fallback["img"]
		if track.ImageID != "" {
			image = track.ImageID
		}
		out.Rows = append(out.Rows, buildTrackRow(track.TrackID, name, playcount, image, meta, fallback))
	}

	for _, id := range existingOrder {
		if seen[id] {
			continue
		}
		if len(out.Rows) >= constants.MaxStoredTracks {
			break
		}
		fallback := existingRows[id]
		meta := trackMeta[id]
		name := asRowString(fallback["n"])
		if name == "" {
			name = id
		}
		out.Rows = append(out.Rows, buildTrackRow(id, name, fallback["pl"], fallback["img"], meta, fallback))
	}

	if len(out.Rows) > constants.MaxStoredTracks {
		out.Rows = out.Rows[:constants.MaxStoredTracks]
	}
	return out
}

// buildTrackRow takes freshly fetched metadata when present. Language and
// canvas keep the previous value when the fresh fetch came back empty, those
// two go missing transiently far more often than the rest.
func buildTrackRow(id, name string, playcount, image any, meta *domain.TrackMetadata, fallback map[string]any) []any {
	preview := fallback["preview"]
	licensor := fallback["licensor"]
	language := fallback["language"]
	isrc := fallback["isrc"]
	label := fallback["label"]
	releaseDate := fallback["rd"]
	canvasURL := fallback["canvas"]

	if meta != nil {
		preview = orNil(meta.PreviewFileID)
		licensor = orNil(meta.Licensor)
		isrc = orNil(meta.ISRC)
		label = orNil(meta.Label)
		releaseDate = orNil(meta.ReleaseDate)
		if meta.Language != "" {
			language = meta.Language
		}
		if meta.CanvasURL != "" {
			canvasURL = meta.CanvasURL
		}
	}

	return []any{id, name, playcount, image, preview, licensor, language, isrc, label, releaseDate, canvasURL}
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseDayPtr(value *string) *time.Time {
	if value == nil {
		return nil
	}
	day, ok := domain.ParseDay(*value)
	if !ok {
		return nil
	}
	return &day
}

func formatDayPtr(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := domain.FormatDay(*value)
	return &formatted
}

func rowString(row []any, index map[string]int, field string) string {
	i, ok := index[field]
	if !ok || i >= len(row) {
		return ""
	}
	return asRowString(row[i])
}

func asRowString(v any) string {
	s, _ := v.(string)
	return s
}

func rowInt(row []any, index map[string]int, field string) *int {
	i, ok := index[field]
	if !ok || i >= len(row) {
		return nil
	}
	switch n := row[i].(type) {
	case float64:
		v := int(n)
		return &v
	case int:
		v := n
		return &v
	case int64:
		v := int(n)
		return &v
	}
	return nil
}

func rowInt64(row []any, index map[string]int, field string) *int64 {
	i, ok := index[field]
	if !ok || i >= len(row) {
		return nil
	}
	switch n := row[i].(type) {
	case float64:
		v := int64(n)
		return &v
	case int:
		v := int64(n)
		return &v
	case int64:
		v := n
		return &v
	}
	return nil
}
