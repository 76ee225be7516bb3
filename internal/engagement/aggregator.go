// Package engagement reduces a contact's bounded message history into
// per-channel counters used by the scoring layer.
package engagement

import (
	"context"
	"time"

	"github.com/ignite/notify-engine/internal/domain"
)

// HistoryStore lists a contact's recent message records on one channel,
// newest first, bounded by limit.
type HistoryStore interface {
	ListRecent(ctx context.Context, contactID string, ch domain.Channel, limit int) ([]domain.MessageRecord, error)
}

// Aggregator computes channel stats over a sliding history window.
type Aggregator struct {
	history HistoryStore
	window  int
}

// NewAggregator creates an aggregator bounded to the given window size.
func NewAggregator(history HistoryStore, window int) *Aggregator {
	if window <= 0 {
		window = 100
	}
	return &Aggregator{history: history, window: window}
}

// Aggregate reduces the contact's recent records on one channel into
// counters. A record counts as delivered when its status is delivered or
// sent; failed sends count toward TotalSent only.
func (a *Aggregator) Aggregate(ctx context.Context, contactID string, ch domain.Channel) (*domain.ChannelStats, error) {
	records, err := a.history.ListRecent(ctx, contactID, ch, a.window)
	if err != nil {
		return nil, err
	}
	return Reduce(ch, records), nil
}

// AggregateAll computes stats for every given channel. The result is
// keyed by channel; channels with no history get zero-valued stats.
func (a *Aggregator) AggregateAll(ctx context.Context, contactID string, chs []domain.Channel) (map[domain.Channel]*domain.ChannelStats, error) {
	out := make(map[domain.Channel]*domain.ChannelStats, len(chs))
	for _, ch := range chs {
		stats, err := a.Aggregate(ctx, contactID, ch)
		if err != nil {
			return nil, err
		}
		out[ch] = stats
	}
	return out, nil
}

// Reduce folds message records into channel stats. Pure; exported so the
// scoring layer can be tested without a store.
func Reduce(ch domain.Channel, records []domain.MessageRecord) *domain.ChannelStats {
	stats := &domain.ChannelStats{Channel: ch}
	var last *time.Time
	for i := range records {
		r := &records[i]
		stats.TotalSent++
		if r.Status == domain.StatusDelivered || r.Status == domain.StatusSent {
			stats.Delivered++
		}
		if r.OpenedAt != nil {
			stats.Opened++
		}
		if r.ClickedAt != nil {
			stats.Clicked++
		}
		if ts := r.EngagementTime(); ts != nil && (last == nil || ts.After(*last)) {
			last = ts
		}
	}
	stats.LastEngagementAt = last
	return stats
}
