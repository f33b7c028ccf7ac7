package api

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"artist-tracker/internal/domain"

	json "github.com/goccy/go-json"
)

type overviewVariables struct {
	URI               string `json:"uri"`
	Locale            string `json:"locale"`
	IncludePrerelease bool   `json:"includePrerelease"`
}

type overviewExtensions struct {
	PersistedQuery persistedQuery `json:"persistedQuery"`
}

type persistedQuery struct {
	Version    int    `json:"version"`
	SHA256Hash string `json:"sha256Hash"`
}

type imageSource struct {
	URL   string `json:"url"`
	Width *int   `json:"width"`
}

type overviewEnvelope struct {
	Data struct {
		ArtistUnion *artistUnion `json:"artistUnion"`
	} `json:"data"`
}

type artistUnion struct {
	Profile struct {
		Name      string `json:"name"`
		Biography struct {
			Text string `json:"text"`
		} `json:"biography"`
	} `json:"profile"`
	Stats struct {
		MonthlyListeners *int64 `json:"monthlyListeners"`
		Followers        *int64 `json:"followers"`
		WorldRank        *int   `json:"worldRank"`
		TopCities        struct {
			Items []cityItem `json:"items"`
		} `json:"topCities"`
	} `json:"stats"`
	Visuals struct {
		AvatarImage struct {
			Sources []imageSource `json:"sources"`
		} `json:"avatarImage"`
		Gallery struct {
			Items []struct {
				Sources []imageSource `json:"sources"`
			} `json:"items"`
		} `json:"gallery"`
	} `json:"visuals"`
	RelatedContent struct {
		RelatedArtists struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		} `json:"relatedArtists"`
	} `json:"relatedContent"`
	Discography struct {
		TopTracks struct {
			Items []topTrackItem `json:"items"`
		} `json:"topTracks"`
	} `json:"discography"`
}

type cityItem struct {
	City              string          `json:"city"`
	Name              string          `json:"name"`
	Country           string          `json:"country"`
	CountryCode       string          `json:"countryCode"`
	NumberOfListeners json.RawMessage `json:"numberOfListeners"`
	Listeners         json.RawMessage `json:"listeners"`
	Latitude          *float64        `json:"latitude"`
	Longitude         *float64        `json:"longitude"`
}

// Some payload variants nest the track under a "track" key, others inline it.
type topTrackItem struct {
	Track *trackNode `json:"track"`
	trackNode
}

type trackNode struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Playcount          json.RawMessage `json:"playcount"`
	PlaycountWithUnits json.RawMessage `json:"playcountWithUnits"`
	AlbumOfTrack       *albumNode      `json:"albumOfTrack"`
	Album              *albumNode      `json:"album"`
}

type albumNode struct {
	CoverArt struct {
		Sources []imageSource `json:"sources"`
	} `json:"coverArt"`
}

func parseOverview(artistID string, envelope *overviewEnvelope) (*domain.ArtistOverview, error) {
	union := envelope.Data.ArtistUnion
	if union == nil {
		return nil, fmt.Errorf("%w: missing artist section", ErrIncompletePayload)
	}

	name := union.Profile.Name
	if name == "" {
		name = artistID
	}

	worldRank := union.Stats.WorldRank
	if worldRank != nil && *worldRank <= 0 {
		worldRank = nil
	}

	overview := &domain.ArtistOverview{
		ArtistID:         artistID,
		Name:             name,
		ImageSmall:       pickImageID(union.Visuals.AvatarImage.Sources, true),
		ImageLarge:       pickImageID(union.Visuals.AvatarImage.Sources, false),
		MonthlyListeners: union.Stats.MonthlyListeners,
		Followers:        union.Stats.Followers,
		WorldRank:        worldRank,
		Biography:        cleanBiography(union.Profile.Biography.Text),
	}

	for _, item := range union.Discography.TopTracks.Items {
		track := item.Track
		if track == nil {
			track = &item.trackNode
		}
		if track.ID == "" || track.Name == "" {
			continue
		}
		playcount := parseFlexInt(track.Playcount)
		if playcount == nil {
			playcount = parseFlexInt(track.PlaycountWithUnits)
		}
		album := track.AlbumOfTrack
		if album == nil {
			album = track.Album
		}
		var imageID string
		if album != nil {
			imageID = pickImageID(album.CoverArt.Sources, true)
		}
		overview.TopTracks = append(overview.TopTracks, domain.TrackInfo{
			TrackID:   track.ID,
			Name:      track.Name,
			Playcount: playcount,
			ImageID:   imageID,
		})
	}

	for _, item := range union.Visuals.Gallery.Items {
		for _, source := range item.Sources {
			imageID := extractImageID(source.URL)
			if imageID == "" || containsString(overview.GalleryImages, imageID) {
				continue
			}
			overview.GalleryImages = append(overview.GalleryImages, imageID)
		}
	}

	for _, item := range union.Stats.TopCities.Items {
		cityName := item.City
		if cityName == "" {
			cityName = item.Name
		}
		if cityName == "" {
			cityName = "Unknown"
		}
		countryCode := item.CountryCode
		if countryCode == "" {
			countryCode = item.Country
		}
		listeners := parseFlexInt(item.NumberOfListeners)
		if listeners == nil {
			listeners = parseFlexInt(item.Listeners)
		}
		overview.TopCities = append(overview.TopCities, domain.CityStat{
			Name:        cityName,
			CountryCode: strings.ToUpper(countryCode),
			Listeners:   listeners,
			Latitude:    item.Latitude,
			Longitude:   item.Longitude,
		})
	}

	// Related ids only count as discoveries for ranked artists, unranked
	// profiles link too much noise.
	if worldRank != nil {
		for _, related := range union.RelatedContent.RelatedArtists.Items {
			if related.ID != "" && !containsString(overview.DiscoveredIDs, related.ID) {
				overview.DiscoveredIDs = append(overview.DiscoveredIDs, related.ID)
			}
		}
	}

	return overview, nil
}

// pickImageID selects the smallest or largest avatar/cover source by width
// and reduces its URL to the bare image id.
func pickImageID(sources []imageSource, preferSmall bool) string {
	candidates := make([]imageSource, 0, len(sources))
	for _, source := range sources {
		if source.URL != "" {
			candidates = append(candidates, source)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	width := func(s imageSource) int {
		if s.Width != nil {
			return *s.Width
		}
		if preferSmall {
			return 0
		}
		return 10000
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if preferSmall {
			return width(candidates[i]) < width(candidates[j])
		}
		return width(candidates[i]) > width(candidates[j])
	})
	return extractImageID(candidates[0].URL)
}

func extractImageID(raw string) string {
	if raw == "" {
		return ""
	}
	path := raw
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		path = parsed.Path
	}
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		path = path[idx+1:]
	}
	return strings.TrimSpace(path)
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// parseFlexInt coerces the loose playcount/listener shapes: bare numbers,
// numeric strings and {total|count|value} wrappers.
func parseFlexInt(raw json.RawMessage) *int64 {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var number int64
	if err := json.Unmarshal(raw, &number); err == nil {
		return &number
	}
	var float float64
	if err := json.Unmarshal(raw, &float); err == nil {
		n := int64(float)
		return &n
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return parseIntString(text)
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err == nil {
		for _, key := range []string{"total", "count", "value"} {
			if inner, ok := wrapper[key]; ok {
				if parsed := parseFlexInt(inner); parsed != nil {
					return parsed
				}
			}
		}
	}
	return nil
}

func parseIntString(text string) *int64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		n := int64(f)
		return &n
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return nil
	}
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return &n
	}
	return nil
}

var (
	bioTagPattern     = regexp.MustCompile(`<[^>]+>`)
	bioURLPattern     = regexp.MustCompile(`https?://\S+`)
	bioAbbrevPattern  = regexp.MustCompile(`\b(?:No|Nos|Vol|Vols|St|Mr|Mrs|Ms|Dr|Sr|Jr)\.$`)
	bioInitialPattern = regexp.MustCompile(`\b[A-Z]\.$`)
)

// cleanBiography strips markup and links from the raw biography and keeps
// its first two sentences.
func cleanBiography(raw string) string {
	if raw == "" {
		return ""
	}
	text := bioTagPattern.ReplaceAllString(raw, " ")
	text = bioURLPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	var collected []string
	for _, sentence := range splitSentences(text) {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		if len(collected) > 0 && shouldMergeSentence(collected[len(collected)-1], trimmed) {
			collected[len(collected)-1] = collected[len(collected)-1] + " " + trimmed
		} else {
			collected = append(collected, trimmed)
		}
		if len(collected) >= 2 {
			break
		}
	}
	return strings.Join(collected, " ")
}

// splitSentences breaks after terminal punctuation followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && runes[i+1] == ' ' {
			sentences = append(sentences, string(runes[start:i+1]))
			start = i + 2
			i++
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

// shouldMergeSentence undoes splits at abbreviations, initials and numbered
// references like "No. 1".
func shouldMergeSentence(previous, current string) bool {
	if previous == "" || current == "" || !strings.HasSuffix(previous, ".") {
		return false
	}
	if current[0] >= '0' && current[0] <= '9' {
		return true
	}
	return bioAbbrevPattern.MatchString(previous) || bioInitialPattern.MatchString(previous)
}

type trackMetadataPayload struct {
	Album struct {
		Label    string `json:"label"`
		Licensor struct {
			UUID string `json:"uuid"`
		} `json:"licensor"`
		Date struct {
			Year  int `json:"year"`
			Month int `json:"month"`
			Day   int `json:"day"`
		} `json:"date"`
	} `json:"album"`
	Preview []struct {
		FileID string `json:"file_id"`
	} `json:"preview"`
	Licensor struct {
		UUID string `json:"uuid"`
	} `json:"licensor"`
	LanguageOfPerformance []string `json:"language_of_performance"`
	ExternalID            []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"external_id"`
}

func parseTrackMetadata(trackID string, payload *trackMetadataPayload) *domain.TrackMetadata {
	meta := &domain.TrackMetadata{TrackID: trackID}

	for _, preview := range payload.Preview {
		if preview.FileID != "" {
			meta.PreviewFileID = preview.FileID
			break
		}
	}

	licensorUUID := payload.Licensor.UUID
	if licensorUUID == "" {
		licensorUUID = payload.Album.Licensor.UUID
	}
	if licensorUUID != "" {
		meta.Licensor = distributorName(licensorUUID)
	}

	for _, language := range payload.LanguageOfPerformance {
		if language != "" {
			meta.Language = language
			break
		}
	}

	for _, external := range payload.ExternalID {
		if strings.EqualFold(external.Type, "isrc") && external.ID != "" {
			meta.ISRC = external.ID
			break
		}
	}

	meta.Label = payload.Album.Label
	meta.ReleaseDate = formatReleaseDate(payload.Album.Date.Year, payload.Album.Date.Month, payload.Album.Date.Day)
	return meta
}

// formatReleaseDate renders the most precise date the payload carries:
// YYYY, YYYY-MM or YYYY-MM-DD.
func formatReleaseDate(year, month, day int) string {
	if year <= 0 {
		return ""
	}
	if month > 0 && day > 0 {
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
	if month > 0 {
		return fmt.Sprintf("%04d-%02d", year, month)
	}
	return fmt.Sprintf("%04d", year)
}

// ChartPayload is the latest-chart response from the charts service.
type ChartPayload struct {
	DisplayChart struct {
		Date          string `json:"date"`
		ChartMetadata struct {
			Dimensions struct {
				Recurrence string `json:"recurrence"`
				ChartType  string `json:"chartType"`
			} `json:"dimensions"`
		} `json:"chartMetadata"`
	} `json:"displayChart"`
	Entries []ChartEntry `json:"entries"`
}

type ChartEntry struct {
	ArtistMetadata struct {
		ArtistURI  string `json:"artistUri"`
		ArtistName string `json:"artistName"`
	} `json:"artistMetadata"`
	ChartEntryData struct {
		CurrentRank                   int    `json:"currentRank"`
		PreviousRank                  *int   `json:"previousRank"`
		PeakRank                      *int   `json:"peakRank"`
		PeakDate                      string `json:"peakDate"`
		AppearancesOnChart            *int   `json:"appearancesOnChart"`
		ConsecutiveAppearancesOnChart *int   `json:"consecutiveAppearancesOnChart"`
		EntryStatus                   string `json:"entryStatus"`
		EntryRank                     *int   `json:"entryRank"`
		EntryDate                     string `json:"entryDate"`
	} `json:"chartEntryData"`
}
