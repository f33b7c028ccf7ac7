// Package stats derives trend metrics from an artist's observed history.
// Every function is a pure view over the chronological history slice; the
// newest entry is assumed to be "today".
package stats

import (
	"math"

	"artist-tracker/internal/constants"
	"artist-tracker/internal/domain"
)

// Compute recomputes the full metric set for the given state.
func Compute(state *domain.ArtistState) domain.ArtistMetrics {
	var m domain.ArtistMetrics
	history := state.History
	if len(history) == 0 {
		return m
	}

	latest := history[len(history)-1]
	if len(history) > 1 {
		prev := history[len(history)-2]
		if latest.Rank != nil && prev.Rank != nil {
			delta := *prev.Rank - *latest.Rank
			m.DeltaRank = &delta
		}
	}

	m.Growth1 = Growth(history, 1)
	m.Growth7 = Growth(history, 7)
	m.Growth30 = Growth(history, 30)
	m.FreshnessScore = Freshness(history)
	m.MomentumScore = Momentum(history)
	m.StreakDays = Streak(history)
	return m
}

// Growth returns monthly listeners today minus offset days ago, or 0 when
// either endpoint is missing or history is too short.
func Growth(history []domain.HistoryEntry, offset int) int64 {
	if len(history) <= offset {
		return 0
	}
	latest := history[len(history)-1].MonthlyListeners
	past := history[len(history)-1-offset].MonthlyListeners
	if latest == nil || past == nil {
		return 0
	}
	return *latest - *past
}

// Freshness blends the 7-day listener growth ratio with the 7-day rank
// movement, clamped to [0, 1]. A missing prior rank contributes 0 to the
// rank term.
func Freshness(history []domain.HistoryEntry) float64 {
	if len(history) == 0 {
		return 0
	}
	latest := history[len(history)-1]
	mlToday := int64(0)
	if latest.MonthlyListeners != nil {
		mlToday = *latest.MonthlyListeners
	}

	mlRatio := 0.0
	if mlToday != 0 {
		g7 := Growth(history, 7)
		mlRatio = float64(g7) / math.Max(float64(mlToday), constants.MLFloor)
	}

	rankToday := constants.AbsentRankSentinel
	if latest.Rank != nil {
		rankToday = *latest.Rank
	}
	rankDelta := 0.0
	if len(history) > 7 {
		if weekAgo := history[len(history)-8].Rank; weekAgo != nil {
			rankDelta = float64(*weekAgo-rankToday) / constants.TopArtistLimit
		}
	}

	score := constants.FreshnessGrowthWeight*math.Tanh(mlRatio) +
		constants.FreshnessRankWeight*math.Tanh(rankDelta)
	return clamp01(score)
}

// Momentum blends the 30-day growth ratio with the rank slope and listener
// volatility over the trailing 30 days. With fewer than MomentumMinDays
// usable days it degrades to the growth ratio alone.
func Momentum(history []domain.HistoryEntry) float64 {
	if len(history) == 0 {
		return 0
	}
	latest := history[len(history)-1]
	mlToday := int64(0)
	if latest.MonthlyListeners != nil {
		mlToday = *latest.MonthlyListeners
	}

	mlRatio := 0.0
	if mlToday != 0 {
		g30 := Growth(history, 30)
		mlRatio = float64(g30) / math.Max(float64(mlToday), constants.MLFloor)
	}

	recent := history
	if len(recent) > 30 {
		recent = recent[len(recent)-30:]
	}
	if len(recent) < constants.MomentumMinDays {
		return clamp01(math.Tanh(mlRatio))
	}

	ranks := make([]float64, len(recent))
	for i, entry := range recent {
		if entry.Rank != nil {
			ranks[i] = float64(*entry.Rank)
		} else {
			ranks[i] = constants.AbsentRankSentinel
		}
	}
	window := len(ranks)
	if window > 7 {
		window = 7
	}
	firstAvg := mean(ranks[:window])
	lastAvg := mean(ranks[len(ranks)-window:])
	rankSlope := (firstAvg - lastAvg) / constants.TopArtistLimit

	volatility := 0.0
	if mlToday != 0 {
		var listeners []float64
		for _, entry := range recent {
			if entry.MonthlyListeners != nil {
				listeners = append(listeners, float64(*entry.MonthlyListeners))
			}
		}
		if len(listeners) > 1 {
			volatility = stddev(listeners) / math.Max(float64(mlToday), constants.MLFloor)
		}
	}

	score := constants.MomentumGrowthWeight*math.Tanh(mlRatio) +
		constants.MomentumSlopeWeight*math.Tanh(rankSlope) -
		constants.MomentumVolatilityWeight*math.Tanh(volatility)
	return clamp01(score)
}

// Streak counts trailing consecutive days ranked inside the top list,
// stopping at the first day that is absent or over the limit.
func Streak(history []domain.HistoryEntry) int {
	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		rank := history[i].Rank
		if rank == nil || *rank > constants.TopArtistLimit {
			break
		}
		streak++
	}
	return streak
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}
