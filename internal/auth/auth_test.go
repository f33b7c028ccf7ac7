package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTOTPSecret(t *testing.T) {
	// 1^9=8, 2^10=8, 3^11=8 joins to "888", whose bytes base32-encode to HA4DQ.
	assert.Equal(t, "HA4DQ", deriveTOTPSecret([]int{1, 2, 3}))
	// 12^9=5, 34^10=40 joins to "540".
	assert.Equal(t, "GU2DA", deriveTOTPSecret([]int{12, 34}))
}

func TestCodeIsSixDigitsAndStablePerStep(t *testing.T) {
	p := newTestSecrets(map[int][]int{12: {37, 84, 10, 22, 76, 19}}, 0)
	at := time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC)

	code, err := p.Code(12, at)
	require.NoError(t, err)
	assert.Len(t, code, 6)

	// Same 30 second step yields the same code.
	again, err := p.Code(12, at.Add(20*time.Second))
	require.NoError(t, err)
	assert.Equal(t, code, again)

	next, err := p.Code(12, at.Add(40*time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, code, next)

	_, err = p.Code(99, at)
	assert.Error(t, err)
}

func TestVersionsNewestFirstWithPin(t *testing.T) {
	secrets := map[int][]int{9: {1}, 11: {2}, 12: {3}}

	p := newTestSecrets(secrets, 0)
	assert.Equal(t, []int{12, 11, 9}, p.Versions())

	pinned := newTestSecrets(secrets, 11)
	assert.Equal(t, []int{11, 12, 9}, pinned.Versions())

	// A pin for an unknown version is ignored.
	ghost := newTestSecrets(secrets, 42)
	assert.Equal(t, []int{12, 11, 9}, ghost.Versions())
}

func TestSecretsDownloadAndCacheOnFailure(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"12":[1,2,3],"11":[4,5,6]}`))
	}))
	defer server.Close()

	p := NewSecretsProvider(server.URL, "", 0, zerolog.Nop())
	require.NoError(t, p.EnsureReady())
	assert.Equal(t, []int{12, 11}, p.Versions())

	// A failed refresh keeps serving the cached versions.
	fail.Store(true)
	p.lastFetch = time.Now().Add(-2 * time.Hour)
	require.NoError(t, p.EnsureReady())
	assert.Equal(t, []int{12, 11}, p.Versions())
}

func TestSecretsDownloadFailureWithoutCacheIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewSecretsProvider(server.URL, "", 0, zerolog.Nop())
	assert.Error(t, p.EnsureReady())
}

func newTestSecrets(secrets map[int][]int, pin int) *SecretsProvider {
	p := NewSecretsProvider("http://invalid.local/secrets", "", pin, zerolog.Nop())
	p.secrets = secrets
	p.lastFetch = time.Now()
	return p
}

type tokenServer struct {
	*httptest.Server
	requests atomic.Int64
	handler  func(w http.ResponseWriter, r *http.Request)
}

func newTokenServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *tokenServer {
	t.Helper()
	ts := &tokenServer{handler: handler}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Date header observation endpoint.
	})
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)
		ts.handler(w, r)
	})
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestManager(server *tokenServer, secrets *SecretsProvider) *TokenManager {
	endpoints := Endpoints{
		TimeSource: server.URL + "/",
		TokenURL:   server.URL + "/api/token",
	}
	return NewTokenManager(endpoints, secrets, "dc-cookie", "test-agent", zerolog.Nop())
}

func grantToken(w http.ResponseWriter, value string, ttl time.Duration) {
	expires := strconv.FormatInt(time.Now().Add(ttl).UnixMilli(), 10)
	w.Write([]byte(`{"accessToken":"` + value + `","accessTokenExpirationTimestampMs":` + expires + `}`))
}

func TestGetTokenMintsAndCaches(t *testing.T) {
	secrets := newTestSecrets(map[int][]int{12: {1, 2, 3}}, 0)
	server := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "mobile-web-player", q.Get("productType"))
		assert.Equal(t, "12", q.Get("totpVer"))
		assert.Len(t, q.Get("totp"), 6)
		assert.Len(t, q.Get("totpServer"), 6)
		assert.Empty(t, q.Get("sTime"), "version 12 must not send legacy params")
		cookie, err := r.Cookie("sp_dc")
		require.NoError(t, err)
		assert.Equal(t, "dc-cookie", cookie.Value)
		grantToken(w, "token-one", time.Hour)
	})

	m := newTestManager(server, secrets)
	token, err := m.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-one", token)

	// Cached while fresh, no second exchange.
	token, err = m.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-one", token)
	assert.Equal(t, int64(1), server.requests.Load())
}

func TestGetTokenLegacyVersionSendsBuildParams(t *testing.T) {
	secrets := newTestSecrets(map[int][]int{9: {1, 2, 3}}, 0)
	server := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "9", q.Get("totpVer"))
		assert.NotEmpty(t, q.Get("sTime"))
		assert.NotEmpty(t, q.Get("cTime"))
		assert.NotEmpty(t, q.Get("buildDate"))
		assert.Contains(t, q.Get("buildVer"), "web-player_")
		grantToken(w, "legacy-token", time.Hour)
	})

	m := newTestManager(server, secrets)
	token, err := m.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", token)
}

func TestGetTokenFallsThroughRejectedAttempts(t *testing.T) {
	secrets := newTestSecrets(map[int][]int{12: {1, 2, 3}}, 0)
	server := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("reason") == "transport" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		grantToken(w, "second-reason", time.Hour)
	})

	m := newTestManager(server, secrets)
	token, err := m.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second-reason", token)
	assert.Equal(t, int64(2), server.requests.Load())
}

func TestGetTokenAllRejectedIsErrNoToken(t *testing.T) {
	secrets := newTestSecrets(map[int][]int{12: {1}, 11: {2}}, 0)
	server := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	m := newTestManager(server, secrets)
	_, err := m.GetToken(context.Background())
	require.ErrorIs(t, err, ErrNoToken)
	// Every version tried with both reasons before giving up.
	assert.Equal(t, int64(4), server.requests.Load())
}

func TestInvalidateForcesReExchange(t *testing.T) {
	secrets := newTestSecrets(map[int][]int{12: {1, 2, 3}}, 0)
	var counter atomic.Int64
	server := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := counter.Add(1)
		if n == 1 {
			grantToken(w, "first", time.Hour)
			return
		}
		grantToken(w, "replacement", time.Hour)
	})

	m := newTestManager(server, secrets)
	first, err := m.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", first)

	m.Invalidate()
	second, err := m.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "replacement", second)
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	secrets := newTestSecrets(map[int][]int{12: {1, 2, 3}}, 0)
	server := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		grantToken(w, "shared", time.Hour)
	})

	m := newTestManager(server, secrets)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := m.GetToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "shared", token)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), server.requests.Load())
}
