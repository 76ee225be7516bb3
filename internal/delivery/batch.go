package delivery

import (
	"math"

	"github.com/ignite/notify-engine/internal/domain"
)

// CalculateSuccessRate summarizes a batch of fallback results: success
// and fallback rates as percentages, plus a per-channel breakdown of
// where successful deliveries landed.
func CalculateSuccessRate(results []*domain.FallbackResult) domain.BatchSummary {
	summary := domain.BatchSummary{
		Total:            len(results),
		ChannelBreakdown: make(map[domain.Channel]int),
	}
	fallbacks := 0
	for _, r := range results {
		if r.Success {
			summary.Successful++
			summary.ChannelBreakdown[r.FinalChannel]++
		} else {
			summary.Failed++
		}
		if r.FallbackUsed {
			fallbacks++
		}
	}
	if summary.Total > 0 {
		summary.SuccessRate = roundPct(float64(summary.Successful) / float64(summary.Total) * 100)
	}
	// Fallback rate is the share of successful deliveries that needed a
	// fallback channel, not a share of the whole batch.
	if summary.Successful > 0 {
		summary.FallbackRate = roundPct(float64(fallbacks) / float64(summary.Successful) * 100)
	}
	return summary
}

func roundPct(v float64) float64 {
	return math.Round(v*100) / 100
}
