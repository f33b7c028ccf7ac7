package api

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackGID(t *testing.T) {
	gid, err := trackGID("0")
	require.NoError(t, err)
	assert.Equal(t, "00000000000000000000000000000000", gid)

	// 'A' is digit 36, "10" is 62.
	gid, err = trackGID("A")
	require.NoError(t, err)
	assert.Equal(t, "00000000000000000000000000000024", gid)

	gid, err = trackGID("10")
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000000000000000003e", gid)

	_, err = trackGID("not-base62!")
	assert.Error(t, err)

	_, err = trackGID("")
	assert.Error(t, err)

	// 22 Z digits exceed 128 bits.
	_, err = trackGID("ZZZZZZZZZZZZZZZZZZZZZZ")
	assert.Error(t, err)
}

func TestParseFlexInt(t *testing.T) {
	cases := map[string]*int64{
		"123":                 int64Ptr(123),
		`"456"`:               int64Ptr(456),
		`"1,234,567"`:         int64Ptr(1234567),
		"12.9":                int64Ptr(12),
		`{"total": 99}`:       int64Ptr(99),
		`{"count": "42"}`:     int64Ptr(42),
		`{"value": 7}`:        int64Ptr(7),
		"null":                nil,
		`""`:                  nil,
		`"n/a"`:               nil,
		`{"unrelated": true}`: nil,
	}
	for input, expected := range cases {
		got := parseFlexInt(json.RawMessage(input))
		if expected == nil {
			assert.Nil(t, got, "input %s", input)
		} else {
			require.NotNil(t, got, "input %s", input)
			assert.Equal(t, *expected, *got, "input %s", input)
		}
	}
	assert.Nil(t, parseFlexInt(nil))
}

func int64Ptr(v int64) *int64 { return &v }

func TestCleanBiography(t *testing.T) {
	raw := `<b>Star</b> rose to fame in 2019. Visit https://example.com for tour dates. ` +
		`The third sentence never survives.`
	assert.Equal(t, "Star rose to fame in 2019. Visit for tour dates.", cleanBiography(raw))

	assert.Equal(t, "", cleanBiography(""))
	assert.Equal(t, "", cleanBiography("<p></p>"))
}

func TestCleanBiographyMergesAbbreviationSplits(t *testing.T) {
	raw := "She topped the chart at No. 1 in March. A second sentence follows here."
	assert.Equal(t, "She topped the chart at No. 1 in March. A second sentence follows here.",
		cleanBiography(raw))
}

func TestPickImageID(t *testing.T) {
	small, large := 64, 640
	sources := []imageSource{
		{URL: "https://i.cdn/image/ab67large", Width: &large},
		{URL: "https://i.cdn/image/ab67small", Width: &small},
	}
	assert.Equal(t, "ab67small", pickImageID(sources, true))
	assert.Equal(t, "ab67large", pickImageID(sources, false))
	assert.Equal(t, "", pickImageID(nil, true))
	assert.Equal(t, "", pickImageID([]imageSource{{URL: ""}}, true))
}

func TestParseOverview(t *testing.T) {
	payload := `{
	  "data": {"artistUnion": {
	    "profile": {"name": "Mock Artist", "biography": {"text": "First sentence. Second sentence. Third."}},
	    "stats": {
	      "monthlyListeners": 1500000,
	      "followers": 800000,
	      "worldRank": 42,
	      "topCities": {"items": [
	        {"city": "Lima", "countryCode": "pe", "numberOfListeners": 120000, "latitude": -12.05, "longitude": -77.04},
	        {"name": "Quito", "country": "EC", "listeners": "90000"}
	      ]}
	    },
	    "visuals": {
	      "avatarImage": {"sources": [
	        {"url": "https://i.cdn/image/avatar-small", "width": 64},
	        {"url": "https://i.cdn/image/avatar-large", "width": 640}
	      ]},
	      "gallery": {"items": [
	        {"sources": [{"url": "https://i.cdn/image/gal1"}, {"url": "https://i.cdn/image/gal1"}]},
	        {"sources": [{"url": "https://i.cdn/image/gal2"}]}
	      ]}
	    },
	    "relatedContent": {"relatedArtists": {"items": [{"id": "rel1"}, {"id": "rel2"}, {"id": "rel1"}]}},
	    "discography": {"topTracks": {"items": [
	      {"track": {"id": "trk1", "name": "Hit One", "playcount": "123456",
	        "albumOfTrack": {"coverArt": {"sources": [{"url": "https://i.cdn/image/cover1", "width": 64}]}}}},
	      {"id": "trk2", "name": "Hit Two", "playcount": {"total": 999}},
	      {"track": {"id": "", "name": "dropped"}}
	    ]}}
	  }}
	}`

	var envelope overviewEnvelope
	require.NoError(t, json.Unmarshal([]byte(payload), &envelope))

	overview, err := parseOverview("art1", &envelope)
	require.NoError(t, err)

	assert.Equal(t, "Mock Artist", overview.Name)
	require.NotNil(t, overview.WorldRank)
	assert.Equal(t, 42, *overview.WorldRank)
	assert.Equal(t, "avatar-small", overview.ImageSmall)
	assert.Equal(t, "avatar-large", overview.ImageLarge)
	assert.Equal(t, "First sentence. Second sentence.", overview.Biography)
	assert.Equal(t, []string{"gal1", "gal2"}, overview.GalleryImages)
	assert.Equal(t, []string{"rel1", "rel2"}, overview.DiscoveredIDs)

	require.Len(t, overview.TopTracks, 2)
	assert.Equal(t, "trk1", overview.TopTracks[0].TrackID)
	require.NotNil(t, overview.TopTracks[0].Playcount)
	assert.Equal(t, int64(123456), *overview.TopTracks[0].Playcount)
	assert.Equal(t, "cover1", overview.TopTracks[0].ImageID)
	require.NotNil(t, overview.TopTracks[1].Playcount)
	assert.Equal(t, int64(999), *overview.TopTracks[1].Playcount)

	require.Len(t, overview.TopCities, 2)
	assert.Equal(t, "Lima", overview.TopCities[0].Name)
	assert.Equal(t, "PE", overview.TopCities[0].CountryCode)
	require.NotNil(t, overview.TopCities[1].Listeners)
	assert.Equal(t, int64(90000), *overview.TopCities[1].Listeners)
}

func TestParseOverviewUnrankedDropsRelatedIDs(t *testing.T) {
	payload := `{"data": {"artistUnion": {
	  "profile": {"name": "Niche Act"},
	  "stats": {"worldRank": 0},
	  "relatedContent": {"relatedArtists": {"items": [{"id": "rel1"}]}}
	}}}`

	var envelope overviewEnvelope
	require.NoError(t, json.Unmarshal([]byte(payload), &envelope))

	overview, err := parseOverview("art1", &envelope)
	require.NoError(t, err)
	assert.Nil(t, overview.WorldRank, "non-positive rank reads as unranked")
	assert.Empty(t, overview.DiscoveredIDs)
}

func TestParseOverviewMissingUnionIsIncomplete(t *testing.T) {
	var envelope overviewEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"data": {}}`), &envelope))

	_, err := parseOverview("art1", &envelope)
	require.ErrorIs(t, err, ErrIncompletePayload)
	assert.True(t, Retryable(err), "transiently incomplete payloads retry")
}

func TestParseTrackMetadata(t *testing.T) {
	payload := `{
	  "album": {
	    "label": "Mock Label",
	    "licensor": {"uuid": "album-licensor"},
	    "date": {"year": 2023, "month": 6, "day": 15}
	  },
	  "preview": [{"file_id": ""}, {"file_id": "preview123"}],
	  "licensor": {"uuid": "ede63b46782e46e19045255f32c0ff0f"},
	  "language_of_performance": ["", "es", "en"],
	  "external_id": [{"type": "ean", "id": "x"}, {"type": "ISRC", "id": "USABC2300001"}]
	}`

	var parsed trackMetadataPayload
	require.NoError(t, json.Unmarshal([]byte(payload), &parsed))

	meta := parseTrackMetadata("trk1", &parsed)
	assert.Equal(t, "preview123", meta.PreviewFileID)
	assert.Equal(t, "The Orchard", meta.Licensor, "known licensor uuids map to names")
	assert.Equal(t, "es", meta.Language)
	assert.Equal(t, "USABC2300001", meta.ISRC)
	assert.Equal(t, "Mock Label", meta.Label)
	assert.Equal(t, "2023-06-15", meta.ReleaseDate)
}

func TestParseTrackMetadataFallbacks(t *testing.T) {
	payload := `{"album": {"licensor": {"uuid": "mystery-uuid"}, "date": {"year": 2020}}}`
	var parsed trackMetadataPayload
	require.NoError(t, json.Unmarshal([]byte(payload), &parsed))

	meta := parseTrackMetadata("trk1", &parsed)
	assert.Equal(t, "mystery-uuid", meta.Licensor, "unknown uuids pass through")
	assert.Equal(t, "2020", meta.ReleaseDate)
	assert.Empty(t, meta.ISRC)
}

func TestFormatReleaseDate(t *testing.T) {
	assert.Equal(t, "2023-06-15", formatReleaseDate(2023, 6, 15))
	assert.Equal(t, "2023-06", formatReleaseDate(2023, 6, 0))
	assert.Equal(t, "2023", formatReleaseDate(2023, 0, 5), "a day without a month is ignored")
	assert.Equal(t, "", formatReleaseDate(0, 6, 15))
}
