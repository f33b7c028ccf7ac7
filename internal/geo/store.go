// Package geo resolves free-text city/country pairs to stable city ids and
// coordinates, persisted as the geo-cities catalog document.
package geo

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"artist-tracker/internal/domain"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const firstCityID = 1000

type catalogKey struct {
	name        string
	countryCode string
}

// Store owns the durable city records. Ids are assigned once per unique
// normalized (name, country) pair, monotonically increasing, and never
// change when coordinates are backfilled later. A record is registered
// under every normalization variant of its name, so accented and plain
// spellings of the same city resolve to one id.
type Store struct {
	path       string
	logger     zerolog.Logger
	cities     map[catalogKey]*domain.CityRecord
	nextCityID int
	dirty      bool

	// coordinate catalog, keyed by every normalization variant
	catalog map[catalogKey][2]float64
}

type catalogCityEntry struct {
	Name    string   `json:"n"`
	Country string   `json:"c"`
	Lat     *float64 `json:"l"`
	Lon     *float64 `json:"L"`
}

type citiesDoc struct {
	V      int      `json:"v"`
	Fields []string `json:"fields"`
	Rows   [][]any  `json:"rows"`
}

// NewStore loads the persisted city records from citiesPath and the
// coordinate catalog from catalogPath. A missing catalog only costs
// coordinates, a missing cities document is the fresh-start case.
func NewStore(citiesPath, catalogPath string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:       citiesPath,
		logger:     logger,
		cities:     make(map[catalogKey]*domain.CityRecord),
		nextCityID: firstCityID,
		catalog:    make(map[catalogKey][2]float64),
	}
	if err := s.loadCatalog(catalogPath); err != nil {
		return nil, err
	}
	s.loadExisting()
	return s, nil
}

func (s *Store) loadCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn().Str("path", path).Msg("city catalog not found, geo records will miss coordinates")
			return nil
		}
		return fmt.Errorf("read city catalog: %w", err)
	}
	var entries []catalogCityEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse city catalog: %w", err)
	}
	for _, entry := range entries {
		if entry.Name == "" || entry.Country == "" || entry.Lat == nil || entry.Lon == nil {
			continue
		}
		cc := strings.ToUpper(entry.Country)
		for _, variant := range cityKeyVariants(entry.Name) {
			key := catalogKey{name: variant, countryCode: cc}
			if _, exists := s.catalog[key]; !exists {
				s.catalog[key] = [2]float64{*entry.Lat, *entry.Lon}
			}
		}
	}
	s.logger.Info().Int("entries", len(s.catalog)).Str("path", path).Msg("city catalog loaded")
	return nil
}

func (s *Store) loadExisting() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var doc citiesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Str("path", s.path).Err(err).Msg("malformed cities document, starting fresh")
		return
	}
	index := make(map[string]int, len(doc.Fields))
	for i, f := range doc.Fields {
		index[f] = i
	}
	maxID := firstCityID - 1
	for _, row := range doc.Rows {
		record := &domain.CityRecord{
			ID:          asInt(cell(row, index, "cid")),
			Name:        asString(cell(row, index, "name")),
			CountryCode: asString(cell(row, index, "cc")),
			Lat:         asFloat(cell(row, index, "lat")),
			Lon:         asFloat(cell(row, index, "lon")),
		}
		if record.Name == "" || record.CountryCode == "" || record.ID == 0 {
			continue
		}
		s.register(record)
		if record.ID > maxID {
			maxID = record.ID
		}
	}
	s.nextCityID = maxID + 1
}

func (s *Store) recordKeys(name, countryCode string) []catalogKey {
	cc := strings.ToUpper(countryCode)
	variants := cityKeyVariants(name)
	keys := make([]catalogKey, 0, len(variants))
	for _, variant := range variants {
		keys = append(keys, catalogKey{name: variant, countryCode: cc})
	}
	return keys
}

// find resolves a pair to its existing record, first matching variant wins.
func (s *Store) find(name, countryCode string) *domain.CityRecord {
	for _, key := range s.recordKeys(name, countryCode) {
		if record, ok := s.cities[key]; ok {
			return record
		}
	}
	return nil
}

// register indexes a record under every variant of its name. Existing
// registrations win, so two persisted records that normalize together keep
// their original ids.
func (s *Store) register(record *domain.CityRecord) {
	for _, key := range s.recordKeys(record.Name, record.CountryCode) {
		if _, exists := s.cities[key]; !exists {
			s.cities[key] = record
		}
	}
}

// EnsureCity returns the stable id for the pair, creating a record on first
// sight. Identity runs through the full normalization cascade, so "São
// Paulo"/"BR" and "Sao Paulo"/"br" share one record. Coordinates already
// known are kept; nil ones are backfilled from the arguments or the catalog
// without changing the id. The second return is false when the pair is
// unusable (empty name or country).
func (s *Store) EnsureCity(name, countryCode string, lat, lon *float64) (int, bool) {
	if name == "" || countryCode == "" || len(cityKeyVariants(name)) == 0 {
		return 0, false
	}

	if lat == nil || lon == nil {
		if coords, ok := s.lookupCoords(name, countryCode); ok {
			if lat == nil {
				lat = &coords[0]
			}
			if lon == nil {
				lon = &coords[1]
			}
		}
	}

	record := s.find(name, countryCode)
	if record == nil {
		record = &domain.CityRecord{
			ID:          s.nextCityID,
			Name:        name,
			CountryCode: strings.ToUpper(countryCode),
			Lat:         lat,
			Lon:         lon,
		}
		s.nextCityID++
		s.dirty = true
		s.register(record)
		return record.ID, true
	}

	// Index this spelling's variants too so later lookups hit directly.
	s.register(record)

	if record.Lat == nil && lat != nil {
		record.Lat = lat
		s.dirty = true
	}
	if record.Lon == nil && lon != nil {
		record.Lon = lon
		s.dirty = true
	}
	return record.ID, true
}

func (s *Store) lookupCoords(name, countryCode string) ([2]float64, bool) {
	cc := strings.ToUpper(countryCode)
	for _, variant := range cityKeyVariants(name) {
		if coords, ok := s.catalog[catalogKey{name: variant, countryCode: cc}]; ok {
			return coords, true
		}
	}
	return [2]float64{}, false
}

// Flush writes the catalog document when records changed this run.
func (s *Store) Flush() error {
	if !s.dirty {
		return nil
	}
	// The index holds one entry per variant; collapse back to records.
	seen := make(map[int]bool, len(s.cities))
	records := make([]*domain.CityRecord, 0, len(s.cities))
	for _, record := range s.cities {
		if seen[record.ID] {
			continue
		}
		seen[record.ID] = true
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	doc := citiesDoc{
		V:      1,
		Fields: []string{"cid", "name", "cc", "lat", "lon"},
		Rows:   make([][]any, 0, len(records)),
	}
	for _, record := range records {
		doc.Rows = append(doc.Rows, []any{record.ID, record.Name, record.CountryCode, record.Lat, record.Lon})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write cities document: %w", err)
	}
	s.dirty = false
	return nil
}

func cell(row []any, index map[string]int, field string) any {
	i, ok := index[field]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func asFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}
