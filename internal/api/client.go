// Package api is the typed client for the partner GraphQL gateway, the track
// metadata service, the canvas cache and the charts service.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"artist-tracker/internal/auth"
	"artist-tracker/internal/canvas"
	"artist-tracker/internal/constants"
	"artist-tracker/internal/domain"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const (
	operationName      = "queryArtistOverview"
	persistedQueryHash = "7c5a08a226e4dc96387c0c0a5ef4bd1d2e2d95c88cbb33dcfa505928591de672"
	webPlayerVersion   = "1.2.11"
	canvasUserAgent    = "Spotify/9.0.34.593 iOS/18.4 (iPhone15,3)"
)

// Endpoints are the upstream base URLs. Tests swap them for local servers.
type Endpoints struct {
	PartnerQueryURL   string
	TrackMetadataBase string
	CanvasURL         string
	ChartsBase        string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		PartnerQueryURL:   "https://api-partner.spotify.com/pathfinder/v1/query",
		TrackMetadataBase: "https://spclient.wg.spotify.com/metadata/4/track",
		CanvasURL:         "https://spclient.wg.spotify.com/canvaz-cache/v0/canvases",
		ChartsBase:        "https://charts-spotify-com-service.spotify.com/auth/v0/charts",
	}
}

// Client issues authenticated requests. It never retries by itself; callers
// wrap the calls in the shared retry policy and use the error classifiers.
type Client struct {
	endpoints Endpoints
	tokens    *auth.TokenManager
	client    *fasthttp.Client
	userAgent string
	logger    zerolog.Logger
}

func NewClient(endpoints Endpoints, tokens *auth.TokenManager, userAgent string, logger zerolog.Logger) *Client {
	return &Client{
		endpoints: endpoints,
		tokens:    tokens,
		userAgent: userAgent,
		logger:    logger,
		client: &fasthttp.Client{
			ReadTimeout:  constants.RequestTimeout,
			WriteTimeout: constants.RequestTimeout,
		},
	}
}

// ArtistOverview fetches and parses the artist profile, stats, top tracks,
// top cities and related artist ids.
func (c *Client) ArtistOverview(ctx context.Context, artistID string) (*domain.ArtistOverview, error) {
	variables, err := json.Marshal(overviewVariables{
		URI:               "spotify:artist:" + artistID,
		Locale:            "",
		IncludePrerelease: true,
	})
	if err != nil {
		return nil, err
	}
	extensions, err := json.Marshal(overviewExtensions{
		PersistedQuery: persistedQuery{Version: 1, SHA256Hash: persistedQueryHash},
	})
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("operationName", operationName)
	params.Set("variables", string(variables))
	params.Set("extensions", string(extensions))

	body, err := c.do(ctx, fasthttp.MethodGet, c.endpoints.PartnerQueryURL+"?"+params.Encode(), map[string]string{
		"app-platform":        "WebPlayer",
		"spotify-app-version": webPlayerVersion,
		"accept":              "application/json",
	}, nil)
	if err != nil {
		return nil, err
	}

	var envelope overviewEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ParseError{Err: err}
	}
	return parseOverview(artistID, &envelope)
}

// TrackMetadata fetches label, licensor, language, isrc, preview and release
// date for one track.
func (c *Client) TrackMetadata(ctx context.Context, trackID string) (*domain.TrackMetadata, error) {
	gid, err := trackGID(trackID)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	body, err := c.do(ctx, fasthttp.MethodGet,
		fmt.Sprintf("%s/%s?market=from_token", c.endpoints.TrackMetadataBase, gid),
		map[string]string{
			"app-platform": "WebPlayer",
			"accept":       "application/json",
		}, nil)
	if err != nil {
		return nil, err
	}

	var payload trackMetadataPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ParseError{Err: err}
	}
	return parseTrackMetadata(trackID, &payload), nil
}

// CanvasBatch resolves canvas video URLs for up to one batch of track ids.
// A 404 means none of the tracks has a canvas.
func (c *Client) CanvasBatch(ctx context.Context, trackIDs []string) (map[string]string, error) {
	request := canvas.EncodeBatchRequest(trackIDs)
	if len(request) == 0 {
		return map[string]string{}, nil
	}

	body, err := c.do(ctx, fasthttp.MethodPost, c.endpoints.CanvasURL, map[string]string{
		"Accept":          "application/protobuf",
		"Accept-Language": "en",
		"User-Agent":      canvasUserAgent,
		"Content-Type":    "application/x-www-form-urlencoded",
	}, request)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == fasthttp.StatusNotFound {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return canvas.DecodeBatchResponse(body), nil
}

// Chart fetches the latest global artist chart for a recurrence, "daily" or
// "weekly".
func (c *Client) Chart(ctx context.Context, recurrence string) (*ChartPayload, error) {
	body, err := c.do(ctx, fasthttp.MethodGet,
		fmt.Sprintf("%s/artist-global-%s/latest", c.endpoints.ChartsBase, recurrence),
		map[string]string{
			"app-platform": "Browser",
			"accept":       "application/json",
		}, nil)
	if err != nil {
		return nil, err
	}

	var payload ChartPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &payload, nil
}

// do performs one authenticated exchange and returns the body bytes. An auth
// rejection drops the cached token before surfacing, so the retried attempt
// mints a fresh one.
func (c *Client) do(ctx context.Context, method, requestURL string, headers map[string]string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURL)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	if c.userAgent != "" {
		req.Header.SetUserAgent(c.userAgent)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.SetBody(body)
	}

	if err := c.client.DoTimeout(req, resp, constants.RequestTimeout); err != nil {
		return nil, fmt.Errorf("request %s: %w", requestURL, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		if status == 401 || status == 403 {
			c.tokens.Invalidate()
		}
		return nil, &StatusError{Code: status, URL: requestURL}
	}

	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return out, nil
}
