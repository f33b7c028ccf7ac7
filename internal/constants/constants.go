package constants

import "time"

const (
	// TopArtistLimit is the size of the ranked top list; ranks above it count
	// as out-of-list everywhere (membership, streaks, scoring).
	TopArtistLimit = 850
	TopTrackLimit  = 100

	// MLFloor keeps listener-ratio denominators away from zero so small
	// artists don't saturate tanh.
	MLFloor = 5_000

	// MaxStoredTracks bounds how many previously-known track rows a detail
	// document retains after the fresh top tracks are merged in.
	MaxStoredTracks = 200

	HistoryWindowDays = 365

	CanvasBatchSize = 25

	MaxSnapshotsPerRecurrence = 400
)

const (
	DefaultMaxConcurrentRequests = 24
	DefaultMaxAttempts           = 5
)

const (
	RequestTimeout      = 20 * time.Second
	TokenRequestTimeout = 15 * time.Second
	RetryBaseBackoff    = 1 * time.Second
	RetryJitter         = 750 * time.Millisecond
)

const (
	DataVersion   = 1
	SchemaVersion = "1.0.0"
)

const (
	// AbsentRankSentinel stands in for a missing rank inside scoring windows
	// only; it is never persisted.
	AbsentRankSentinel = TopArtistLimit + 100

	FreshnessGrowthWeight = 0.6
	FreshnessRankWeight   = 0.4

	MomentumGrowthWeight     = 0.5
	MomentumSlopeWeight      = 0.3
	MomentumVolatilityWeight = 0.2

	// Momentum falls back to the 30-day growth ratio alone below this many
	// usable days.
	MomentumMinDays = 5
)

const (
	TOTPDigits          = 6
	TOTPPeriodSeconds   = 30
	SecretsRefreshEvery = 1 * time.Hour
)
