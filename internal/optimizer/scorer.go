// Package optimizer scores channels per contact, predicts send hours and
// composes delivery recommendations from engagement history.
package optimizer

import (
	"math"
	"time"

	"github.com/ignite/notify-engine/internal/domain"
)

// minSampleSize is the history size below which computed scores are not
// statistically meaningful and the channel-class prior is used instead.
const minSampleSize = 5

// Rate defaults applied when a denominator is zero.
const (
	defaultDeliveryRate = 50
	defaultOpenRate     = 20
	defaultClickRate    = 5
	defaultRecency      = 50
)

// Score weights. Delivery and open dominate; click and recency refine.
const (
	weightDelivery = 0.3
	weightOpen     = 0.3
	weightClick    = 0.2
	weightRecency  = 0.2
)

// ScoreChannel rates one channel for one contact on a 0-100 scale.
// Unavailable channels score a hard 0 that history can never override.
// Channels with fewer than minSampleSize sends get classPrior instead of
// the computed score. Pure: all time arithmetic keys off now.
func ScoreChannel(ch domain.Channel, stats *domain.ChannelStats, available bool, classPrior int, now time.Time) domain.ChannelScore {
	if !available {
		return domain.ChannelScore{
			Channel: ch,
			Score:   0,
			Reason:  "channel unavailable",
			Metrics: domain.ScoreMetrics{},
		}
	}

	metrics := computeMetrics(stats, now)

	if stats.TotalSent < minSampleSize {
		return domain.ChannelScore{
			Channel: ch,
			Score:   classPrior,
			Reason:  "default score (insufficient data)",
			Metrics: metrics,
		}
	}

	score := int(math.Round(
		weightDelivery*float64(metrics.DeliveryRate) +
			weightOpen*float64(metrics.OpenRate) +
			weightClick*float64(metrics.ClickRate) +
			weightRecency*float64(metrics.Recency)))

	return domain.ChannelScore{
		Channel: ch,
		Score:   score,
		Reason:  scoreReason(score),
		Metrics: metrics,
	}
}

func computeMetrics(stats *domain.ChannelStats, now time.Time) domain.ScoreMetrics {
	m := domain.ScoreMetrics{
		DeliveryRate: defaultDeliveryRate,
		OpenRate:     defaultOpenRate,
		ClickRate:    defaultClickRate,
		Recency:      defaultRecency,
	}
	if stats.TotalSent > 0 {
		m.DeliveryRate = percent(stats.Delivered, stats.TotalSent)
	}
	if stats.Delivered > 0 {
		m.OpenRate = percent(stats.Opened, stats.Delivered)
	}
	if stats.Opened > 0 {
		m.ClickRate = percent(stats.Clicked, stats.Opened)
	}
	if stats.LastEngagementAt != nil {
		days := int(now.Sub(*stats.LastEngagementAt).Hours() / 24)
		m.Recency = 100 - 2*days
		if m.Recency < 0 {
			m.Recency = 0
		}
	}
	// ResponseRate stays nil: there is no reply-tracking signal yet, and a
	// fabricated zero would silently look like measured disengagement.
	return m
}

func percent(num, den int) int {
	return int(math.Round(float64(num) / float64(den) * 100))
}

func scoreReason(score int) string {
	switch {
	case score >= 70:
		return "high engagement"
	case score >= 50:
		return "moderate engagement"
	case score >= 30:
		return "needs improvement"
	default:
		return "low engagement"
	}
}
