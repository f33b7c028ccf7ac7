package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"artist-tracker/internal/constants"

	json "github.com/goccy/go-json"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/singleflight"
)

// ErrNoToken means every secret version and reason combination was rejected.
// Nothing downstream can recover from it, the run must stop.
var ErrNoToken = errors.New("auth: no usable access token")

// Endpoints groups the external URLs the token exchange touches. Tests point
// them at local servers.
type Endpoints struct {
	TimeSource string // Date header observation
	TokenURL   string
	SecretsURL string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		TimeSource: "https://open.spotify.com/",
		TokenURL:   "https://open.spotify.com/api/token",
		SecretsURL: DefaultSecretsURL,
	}
}

type accessToken struct {
	value     string
	expiresAt time.Time
}

func (t accessToken) usable(now time.Time) bool {
	// Refresh a minute early so in-flight requests never straddle expiry.
	return t.value != "" && now.Add(time.Minute).Before(t.expiresAt)
}

// TokenManager mints and caches the bearer token. Concurrent callers share
// one refresh via singleflight; Invalidate drops the cached token so the next
// caller forces a fresh exchange.
type TokenManager struct {
	endpoints Endpoints
	secrets   *SecretsProvider
	spDC      string
	userAgent string
	client    *fasthttp.Client
	logger    zerolog.Logger

	mu      sync.Mutex
	current accessToken
	group   singleflight.Group
}

func NewTokenManager(endpoints Endpoints, secrets *SecretsProvider, spDC, userAgent string, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		endpoints: endpoints,
		secrets:   secrets,
		spDC:      spDC,
		userAgent: userAgent,
		logger:    logger,
		client: &fasthttp.Client{
			ReadTimeout:  constants.TokenRequestTimeout,
			WriteTimeout: constants.TokenRequestTimeout,
		},
	}
}

// GetToken returns the cached token while it is fresh, otherwise performs a
// single shared refresh. Only ErrNoToken is terminal.
func (m *TokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.current.usable(time.Now()) {
		token := m.current.value
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	value, err, _ := m.group.Do("token", func() (any, error) {
		m.mu.Lock()
		if m.current.usable(time.Now()) {
			token := m.current.value
			m.mu.Unlock()
			return token, nil
		}
		m.mu.Unlock()

		token, err := m.refresh(ctx)
		if err != nil {
			return "", err
		}
		m.mu.Lock()
		m.current = token
		m.mu.Unlock()
		return token.value, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// Invalidate discards the cached token after an upstream auth rejection.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.current = accessToken{}
	m.mu.Unlock()
}

// refresh walks every secret version with both request reasons and returns
// the first accepted token.
func (m *TokenManager) refresh(ctx context.Context) (accessToken, error) {
	if err := m.secrets.EnsureReady(); err != nil {
		return accessToken{}, fmt.Errorf("%w: %v", ErrNoToken, err)
	}

	serverTime := m.observeServerTime()

	var lastErr error
	for _, version := range m.secrets.Versions() {
		for _, reason := range []string{"transport", "init"} {
			if err := ctx.Err(); err != nil {
				return accessToken{}, err
			}
			token, err := m.exchange(version, reason, serverTime)
			if err != nil {
				lastErr = err
				m.logger.Debug().Int("totpVer", version).Str("reason", reason).Err(err).Msg("token exchange attempt rejected")
				continue
			}
			m.logger.Info().Int("totpVer", version).Str("reason", reason).
				Time("expiresAt", token.expiresAt).Msg("access token minted")
			return token, nil
		}
	}
	if lastErr != nil {
		return accessToken{}, fmt.Errorf("%w: last attempt: %v", ErrNoToken, lastErr)
	}
	return accessToken{}, ErrNoToken
}

// observeServerTime reads the Date header from the web player origin, HEAD
// first with a GET fallback. Local clock on failure.
func (m *TokenManager) observeServerTime() time.Time {
	for _, method := range []string{fasthttp.MethodHead, fasthttp.MethodGet} {
		if at, ok := m.probeDate(method); ok {
			return at
		}
	}
	m.logger.Warn().Msg("server time unavailable, using local clock")
	return time.Now()
}

func (m *TokenManager) probeDate(method string) (time.Time, bool) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(m.endpoints.TimeSource)
	req.Header.SetMethod(method)
	if m.userAgent != "" {
		req.Header.SetUserAgent(m.userAgent)
	}
	if err := m.client.DoTimeout(req, resp, constants.TokenRequestTimeout); err != nil {
		return time.Time{}, false
	}
	raw := resp.Header.Peek(fasthttp.HeaderDate)
	if len(raw) == 0 {
		return time.Time{}, false
	}
	at, err := time.Parse(time.RFC1123, string(raw))
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

func (m *TokenManager) exchange(version int, reason string, serverTime time.Time) (accessToken, error) {
	serverCode, err := m.secrets.Code(version, serverTime)
	if err != nil {
		return accessToken{}, err
	}
	localCode, err := m.secrets.Code(version, time.Now())
	if err != nil {
		return accessToken{}, err
	}

	params := url.Values{}
	params.Set("reason", reason)
	params.Set("productType", "mobile-web-player")
	params.Set("totp", localCode)
	params.Set("totpServer", serverCode)
	params.Set("totpVer", strconv.Itoa(version))
	if version < 10 {
		serverMs := serverTime.UnixMilli()
		params.Set("sTime", strconv.FormatInt(serverMs, 10))
		params.Set("cTime", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("buildDate", serverTime.UTC().Format("2006-01-02"))
		params.Set("buildVer", buildVersion(serverTime))
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(m.endpoints.TokenURL + "?" + params.Encode())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.Header.SetCookie("sp_dc", m.spDC)
	if m.userAgent != "" {
		req.Header.SetUserAgent(m.userAgent)
	}

	if err := m.client.DoTimeout(req, resp, constants.TokenRequestTimeout); err != nil {
		return accessToken{}, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return accessToken{}, fmt.Errorf("token endpoint returned %d", resp.StatusCode())
	}

	var payload struct {
		AccessToken string `json:"accessToken"`
		ExpiresAtMs int64  `json:"accessTokenExpirationTimestampMs"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return accessToken{}, fmt.Errorf("parse token payload: %w", err)
	}
	if payload.AccessToken == "" || payload.ExpiresAtMs <= 0 {
		return accessToken{}, fmt.Errorf("token payload missing credentials")
	}
	return accessToken{
		value:     payload.AccessToken,
		expiresAt: time.UnixMilli(payload.ExpiresAtMs),
	}, nil
}

func buildVersion(serverTime time.Time) string {
	nonce, err := gonanoid.Generate("0123456789abcdef", 8)
	if err != nil {
		nonce = "00000000"
	}
	return fmt.Sprintf("web-player_%s_%d_%s",
		serverTime.UTC().Format("2006-01-02"), serverTime.UnixMilli(), nonce)
}
