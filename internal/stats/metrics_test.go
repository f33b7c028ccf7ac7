package stats

import (
	"testing"
	"time"

	"artist-tracker/internal/constants"
	"artist-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func entry(offset int, rank int, ml int64) domain.HistoryEntry {
	e := domain.HistoryEntry{Day: day(offset), MonthlyListeners: &ml}
	if rank > 0 {
		e.Rank = &rank
	}
	return e
}

func TestGrowth(t *testing.T) {
	history := []domain.HistoryEntry{
		entry(0, 100, 1_000_000),
		entry(1, 90, 1_200_000),
		entry(2, 80, 1_500_000),
	}
	assert.Equal(t, int64(300_000), Growth(history, 1))
	assert.Equal(t, int64(500_000), Growth(history, 2))
	assert.Equal(t, int64(0), Growth(history, 3), "history too short")

	history[1].MonthlyListeners = nil
	assert.Equal(t, int64(0), Growth(history, 1), "missing endpoint")
}

func TestComputeRisingArtistScenario(t *testing.T) {
	// 8 days: ml 1.5M seven days ago, rank easing from 120 to 95.
	history := []domain.HistoryEntry{
		entry(0, 130, 1_500_000),
		entry(1, 128, 1_550_000),
		entry(2, 126, 1_600_000),
		entry(3, 125, 1_700_000),
		entry(4, 124, 1_800_000),
		entry(5, 122, 1_900_000),
		entry(6, 120, 1_950_000),
		entry(7, 95, 2_000_000),
	}
	state := &domain.ArtistState{History: history}
	m := Compute(state)

	require.NotNil(t, m.DeltaRank)
	assert.Equal(t, 25, *m.DeltaRank)
	assert.Equal(t, int64(500_000), m.Growth7)
	assert.Equal(t, int64(50_000), m.Growth1)
	assert.Greater(t, m.FreshnessScore, 0.0)
	assert.LessOrEqual(t, m.FreshnessScore, 1.0)
	assert.Equal(t, 8, m.StreakDays)
}

func TestDeltaRankNilWhenEitherRankMissing(t *testing.T) {
	history := []domain.HistoryEntry{
		entry(0, 0, 1_000_000),
		entry(1, 50, 1_000_000),
	}
	m := Compute(&domain.ArtistState{History: history})
	assert.Nil(t, m.DeltaRank)
}

func TestStreak(t *testing.T) {
	over := constants.TopArtistLimit + 1
	history := []domain.HistoryEntry{
		entry(0, 10, 1000),
		entry(1, over, 1000),
		entry(2, 500, 1000),
		entry(3, constants.TopArtistLimit, 1000),
	}
	assert.Equal(t, 2, Streak(history))

	history = append(history, entry(4, 0, 1000))
	assert.Equal(t, 0, Streak(history), "absent rank resets the streak")

	assert.Equal(t, 0, Streak(nil))
}

func TestFreshnessMissingPriorRank(t *testing.T) {
	// Flat listeners, no rank a week ago: both terms contribute 0.
	var history []domain.HistoryEntry
	for i := 0; i < 8; i++ {
		e := entry(i, 100, 1_000_000)
		if i == 0 {
			e.Rank = nil
		}
		history = append(history, e)
	}
	assert.Equal(t, 0.0, Freshness(history))
}

func TestMomentumShortHistoryFallsBackToGrowthRatio(t *testing.T) {
	history := []domain.HistoryEntry{
		entry(0, 100, 1_000_000),
		entry(1, 100, 1_100_000),
	}
	// Fewer than 5 usable days, growth30 is 0: momentum is clamp(tanh(0)).
	assert.Equal(t, 0.0, Momentum(history))
}

func TestMomentumImprovingRankBeatsDecliningRank(t *testing.T) {
	improving := make([]domain.HistoryEntry, 0, 30)
	declining := make([]domain.HistoryEntry, 0, 30)
	for i := 0; i < 30; i++ {
		improving = append(improving, entry(i, 600-10*i, 1_000_000))
		declining = append(declining, entry(i, 300+10*i, 1_000_000))
	}
	assert.Greater(t, Momentum(improving), Momentum(declining))
}

func TestScoresStayWithinUnitInterval(t *testing.T) {
	history := []domain.HistoryEntry{entry(0, 1, 10)}
	for i := 1; i < 40; i++ {
		history = append(history, entry(i, 1, int64(10+1_000_000*i)))
	}
	f := Freshness(history)
	m := Momentum(history)
	assert.GreaterOrEqual(t, f, 0.0)
	assert.LessOrEqual(t, f, 1.0)
	assert.GreaterOrEqual(t, m, 0.0)
	assert.LessOrEqual(t, m, 1.0)
}
