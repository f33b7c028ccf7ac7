package repository

import (
	"os"
	"path/filepath"
	"testing"

	"artist-tracker/internal/constants"
	"artist-tracker/internal/domain"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func topEntry(id string, rank int, ml int64) TopEntry {
	return TopEntry{
		Overview: rankedOverview(id, rank, ml),
		State:    &domain.ArtistState{},
	}
}

func TestBuildTopPayloadOrdersByRank(t *testing.T) {
	store := NewRankingStore(t.TempDir(), zerolog.Nop())
	doc := store.BuildTopPayload([]TopEntry{
		topEntry("c", 300, 1),
		topEntry("a", 1, 1),
		topEntry("b", 20, 1),
	}, testToday)

	assert.Equal(t, constants.DataVersion, doc.V)
	assert.Equal(t, domain.FormatDay(testToday), doc.Date)
	assert.Equal(t, top500Fields, doc.Fields)
	require.Len(t, doc.Rows, 3)
	assert.Equal(t, "a", doc.Rows[0][0])
	assert.Equal(t, "b", doc.Rows[1][0])
	assert.Equal(t, "c", doc.Rows[2][0])
}

func TestBuildTopPayloadCapsAtLimit(t *testing.T) {
	store := NewRankingStore(t.TempDir(), zerolog.Nop())
	entries := make([]TopEntry, constants.TopArtistLimit+25)
	for i := range entries {
		entries[i] = topEntry("art", i+1, 1)
	}
	doc := store.BuildTopPayload(entries, testToday)
	assert.Len(t, doc.Rows, constants.TopArtistLimit)
}

func TestBuildFormerPayloadOrdering(t *testing.T) {
	store := NewRankingStore(t.TempDir(), zerolog.Nop())
	big, small := int64(5_000_000), int64(1_000_000)
	recent, stale := 2, 30
	doc := store.BuildFormerPayload([]FormerEntry{
		{ID: "small", Name: "Small", ML: &small},
		{ID: "big-stale", Name: "Big Stale", ML: &big, DaysSince: &stale},
		{ID: "big-recent", Name: "Big Recent", ML: &big, DaysSince: &recent},
	}, testToday)

	assert.Equal(t, former500Fields, doc.Fields)
	require.Len(t, doc.Rows, 3)
	assert.Equal(t, "big-recent", doc.Rows[0][0], "equal audiences order by recency")
	assert.Equal(t, "big-stale", doc.Rows[1][0])
	assert.Equal(t, "small", doc.Rows[2][0])
}

func TestWriteSnapshotsLayout(t *testing.T) {
	dir := t.TempDir()
	store := NewRankingStore(dir, zerolog.Nop())
	require.NoError(t, store.EnsureLayout())

	top := store.BuildTopPayload([]TopEntry{topEntry("a", 1, 10)}, testToday)
	former := store.BuildFormerPayload(nil, testToday)
	require.NoError(t, store.WriteSnapshots(top, former, testToday))

	daily := filepath.Join(dir, "daily", "2026", "08", "27")
	for _, path := range []string{
		filepath.Join(daily, "top500.json"),
		filepath.Join(daily, "former500.json"),
		filepath.Join(dir, "latest", "top500.json"),
		filepath.Join(dir, "latest", "top500.json.gz"),
		filepath.Join(dir, "latest", "former500.json"),
		filepath.Join(dir, "latest", "former500.json.gz"),
		filepath.Join(dir, "latest", "meta.json"),
	} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	var meta metaDoc
	found, err := loadJSON(filepath.Join(dir, "latest", "meta.json"), &meta)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, constants.SchemaVersion, meta.Schema)
	assert.Equal(t, "/data/latest/top500.json?v=2026-08-27", meta.Pointers["top500"])

	// The gzip sibling decompresses back to the plain document.
	f, err := os.Open(filepath.Join(dir, "latest", "top500.json.gz"))
	require.NoError(t, err)
	defer f.Close()
	r, err := gzip.NewReader(f)
	require.NoError(t, err)
	var fromGzip RankingDoc
	require.NoError(t, json.NewDecoder(r).Decode(&fromGzip))
	assert.Equal(t, top.Date, fromGzip.Date)
	require.Len(t, fromGzip.Rows, 1)
}

func TestArtistIDsFromLatest(t *testing.T) {
	dir := t.TempDir()
	store := NewRankingStore(dir, zerolog.Nop())
	require.NoError(t, store.EnsureLayout())

	top := store.BuildTopPayload([]TopEntry{
		topEntry("a", 1, 10),
		topEntry("b", 2, 10),
		topEntry("c", 3, 10),
	}, testToday)
	require.NoError(t, store.WriteSnapshots(top, store.BuildFormerPayload(nil, testToday), testToday))

	assert.Equal(t, []string{"a", "b", "c"}, store.ArtistIDsFromLatest("top500.json", 0))
	assert.Equal(t, []string{"a", "b"}, store.ArtistIDsFromLatest("top500.json", 2))
	assert.Nil(t, store.ArtistIDsFromLatest("missing.json", 0))
}

func TestArtistIDsFromLatestMalformed(t *testing.T) {
	dir := t.TempDir()
	store := NewRankingStore(dir, zerolog.Nop())
	require.NoError(t, store.EnsureLayout())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "latest", "top500.json"), []byte("{broken"), 0o644))

	assert.Nil(t, store.ArtistIDsFromLatest("top500.json", 0))
}

func TestWriteDiscovered(t *testing.T) {
	dir := t.TempDir()
	store := NewRankingStore(dir, zerolog.Nop())
	require.NoError(t, store.EnsureLayout())

	require.NoError(t, store.WriteDiscovered([]string{"z", "a"}, testToday))

	var doc struct {
		Date string   `json:"date"`
		IDs  []string `json:"ids"`
	}
	found, err := loadJSON(filepath.Join(dir, "latest", "discovered.json"), &doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"a", "z"}, doc.IDs)

	// No ids means no file.
	empty := t.TempDir()
	emptyStore := NewRankingStore(empty, zerolog.Nop())
	require.NoError(t, emptyStore.WriteDiscovered(nil, testToday))
	_, err = os.Stat(filepath.Join(empty, "latest", "discovered.json"))
	assert.True(t, os.IsNotExist(err))
}
