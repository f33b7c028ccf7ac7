// Package auth mints bearer tokens for the partner API from rotating,
// versioned secret material via a time-based one-time code.
package auth

import (
	"encoding/base32"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"artist-tracker/internal/constants"

	json "github.com/goccy/go-json"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const DefaultSecretsURL = "https://raw.githubusercontent.com/xyloflake/spot-secrets-go/refs/heads/main/secrets/secretDict.json"

// SecretsProvider downloads and caches the versioned secret map. Refreshes
// are rate limited; a failed refresh keeps the previously cached material.
type SecretsProvider struct {
	url        string
	client     *fasthttp.Client
	userAgent  string
	versionPin int
	logger     zerolog.Logger

	mu        sync.Mutex
	secrets   map[int][]int
	derived   map[int]string
	lastFetch time.Time
}

func NewSecretsProvider(url, userAgent string, versionPin int, logger zerolog.Logger) *SecretsProvider {
	if url == "" {
		url = DefaultSecretsURL
	}
	return &SecretsProvider{
		url:        url,
		userAgent:  userAgent,
		versionPin: versionPin,
		logger:     logger,
		client: &fasthttp.Client{
			ReadTimeout:  constants.TokenRequestTimeout,
			WriteTimeout: constants.TokenRequestTimeout,
		},
		derived: make(map[int]string),
	}
}

// EnsureReady guarantees usable secret material, refetching at most once per
// refresh interval. With cached material a failed refresh is only a warning;
// without it the error is fatal for the caller.
func (p *SecretsProvider) EnsureReady() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.secrets) > 0 && time.Since(p.lastFetch) < constants.SecretsRefreshEvery {
		return nil
	}

	fresh, err := p.download()
	if err != nil {
		if len(p.secrets) > 0 {
			p.logger.Warn().Err(err).Msg("secret refresh failed, keeping cached versions")
			return nil
		}
		return fmt.Errorf("download totp secrets: %w", err)
	}

	p.secrets = fresh
	p.derived = make(map[int]string)
	p.lastFetch = time.Now()
	p.logger.Info().Ints("versions", p.versionsLocked()).Msg("totp secrets initialised")
	return nil
}

func (p *SecretsProvider) download() (map[int][]int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if p.userAgent != "" {
		req.Header.SetUserAgent(p.userAgent)
	}

	if err := p.client.DoTimeout(req, resp, constants.TokenRequestTimeout); err != nil {
		return nil, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("secrets endpoint returned %d", resp.StatusCode())
	}

	var raw map[string][]int
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("parse secrets payload: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty secrets payload")
	}

	secrets := make(map[int][]int, len(raw))
	for key, value := range raw {
		version, err := strconv.Atoi(key)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("invalid secret version key %q", key)
		}
		if len(value) == 0 {
			return nil, fmt.Errorf("empty secret payload for version %d", version)
		}
		secrets[version] = value
	}
	return secrets, nil
}

// Versions lists usable secret versions in trial order: the pinned version
// first when set and present, then the rest newest-first.
func (p *SecretsProvider) Versions() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.versionsLocked()
}

func (p *SecretsProvider) versionsLocked() []int {
	versions := make([]int, 0, len(p.secrets))
	for v := range p.secrets {
		if v != p.versionPin {
			versions = append(versions, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	if _, ok := p.secrets[p.versionPin]; ok && p.versionPin > 0 {
		versions = append([]int{p.versionPin}, versions...)
	}
	return versions
}

// Code derives the 6-digit/30-second one-time code for a secret version at
// the given (server-observed) time.
func (p *SecretsProvider) Code(version int, at time.Time) (string, error) {
	p.mu.Lock()
	secret, ok := p.derived[version]
	if !ok {
		data, present := p.secrets[version]
		if !present {
			p.mu.Unlock()
			return "", fmt.Errorf("totp version %d not available", version)
		}
		secret = deriveTOTPSecret(data)
		p.derived[version] = secret
	}
	p.mu.Unlock()

	return totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    constants.TOTPPeriodSeconds,
		Digits:    otp.Digits(constants.TOTPDigits),
		Algorithm: otp.AlgorithmSHA1,
	})
}

// deriveTOTPSecret masks each secret byte by its index, joins the decimal
// values and base32-encodes the resulting ASCII bytes without padding.
func deriveTOTPSecret(data []int) string {
	var joined strings.Builder
	for i, v := range data {
		joined.WriteString(strconv.Itoa(v ^ ((i % 33) + 9)))
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(joined.String()))
}
