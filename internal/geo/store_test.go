package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, catalogJSON string) *Store {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "cities.json")
	if catalogJSON != "" {
		require.NoError(t, os.WriteFile(catalogPath, []byte(catalogJSON), 0o644))
	}
	store, err := NewStore(filepath.Join(dir, "geo-cities.json"), catalogPath, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestCityKeyVariants(t *testing.T) {
	variants := cityKeyVariants("São Paulo")
	assert.Contains(t, variants, "são paulo")
	assert.Contains(t, variants, "sao paulo")

	variants = cityKeyVariants("City of London")
	assert.Contains(t, variants, "london")

	variants = cityKeyVariants("Winston-Salem (NC)")
	assert.Contains(t, variants, "winston-salem")
	assert.Contains(t, variants, "winston salem")

	variants = cityKeyVariants("Tokyo Metropolitan Area")
	assert.Contains(t, variants, "tokyo")
}

func TestEnsureCityNormalizedVariantsShareOneID(t *testing.T) {
	store := newTestStore(t, "")

	id1, ok := store.EnsureCity("São Paulo", "BR", nil, nil)
	require.True(t, ok)
	id2, ok := store.EnsureCity("Sao Paulo", "br", nil, nil)
	require.True(t, ok)

	assert.Equal(t, id1, id2, "accented and plain spellings are one city")
	assert.Equal(t, firstCityID, id1)

	// A genuinely different city gets the next id.
	id3, ok := store.EnsureCity("Rio de Janeiro", "BR", nil, nil)
	require.True(t, ok)
	assert.Equal(t, firstCityID+1, id3)

	// Registration order doesn't matter either.
	plain, ok := store.EnsureCity("Medellin", "CO", nil, nil)
	require.True(t, ok)
	accented, ok := store.EnsureCity("Medellín", "CO", nil, nil)
	require.True(t, ok)
	assert.Equal(t, plain, accented, "plain spelling seen first")
}

func TestEnsureCityRejectsEmptyPair(t *testing.T) {
	store := newTestStore(t, "")
	_, ok := store.EnsureCity("", "BR", nil, nil)
	assert.False(t, ok)
	_, ok = store.EnsureCity("Lima", "", nil, nil)
	assert.False(t, ok)
}

func TestCatalogLookupThroughVariants(t *testing.T) {
	store := newTestStore(t, `[{"n":"Sao Paulo","c":"br","l":-23.55,"L":-46.63}]`)

	// Accented spelling resolves through the diacritic-stripped variant.
	id, ok := store.EnsureCity("São Paulo", "BR", nil, nil)
	require.True(t, ok)

	record := store.find("São Paulo", "BR")
	require.NotNil(t, record)
	assert.Equal(t, id, record.ID)
	require.NotNil(t, record.Lat)
	assert.InDelta(t, -23.55, *record.Lat, 0.001)
	require.NotNil(t, record.Lon)
	assert.InDelta(t, -46.63, *record.Lon, 0.001)
}

func TestCoordinateBackfillKeepsID(t *testing.T) {
	store := newTestStore(t, "")

	id, ok := store.EnsureCity("Lagos", "NG", nil, nil)
	require.True(t, ok)

	lat, lon := 6.52, 3.38
	id2, ok := store.EnsureCity("Lagos", "NG", &lat, &lon)
	require.True(t, ok)
	assert.Equal(t, id, id2)

	record := store.find("Lagos", "NG")
	require.NotNil(t, record)
	require.NotNil(t, record.Lat)
	assert.Equal(t, lat, *record.Lat)
}

func TestFlushAndReload(t *testing.T) {
	dir := t.TempDir()
	citiesPath := filepath.Join(dir, "geo-cities.json")
	catalogPath := filepath.Join(dir, "cities.json")

	store, err := NewStore(citiesPath, catalogPath, zerolog.Nop())
	require.NoError(t, err)

	idBerlin, _ := store.EnsureCity("Berlin", "DE", nil, nil)
	idParis, _ := store.EnsureCity("Paris", "FR", nil, nil)
	require.NoError(t, store.Flush())

	reloaded, err := NewStore(citiesPath, catalogPath, zerolog.Nop())
	require.NoError(t, err)

	gotBerlin, ok := reloaded.EnsureCity("Berlin", "DE", nil, nil)
	require.True(t, ok)
	assert.Equal(t, idBerlin, gotBerlin)

	// New cities continue after the highest persisted id.
	gotMadrid, ok := reloaded.EnsureCity("Madrid", "ES", nil, nil)
	require.True(t, ok)
	assert.Greater(t, gotMadrid, idParis)
}

func TestFlushNoopWhenClean(t *testing.T) {
	store := newTestStore(t, "")
	require.NoError(t, store.Flush())
	_, err := os.Stat(store.path)
	assert.True(t, os.IsNotExist(err), "clean store must not write")
}
