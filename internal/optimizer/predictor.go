package optimizer

import (
	"context"
	"log"

	"github.com/ignite/notify-engine/internal/channels"
	"github.com/ignite/notify-engine/internal/domain"
)

// minEngagedRecords is the engagement-history size below which the
// histogram is skipped in favor of the channel's default hour.
const minEngagedRecords = 5

// EngagedStore lists a contact's records carrying an open or click
// timestamp, newest first, bounded by limit.
type EngagedStore interface {
	ListEngaged(ctx context.Context, contactID string, ch domain.Channel, limit int) ([]domain.MessageRecord, error)
}

// Predictor derives the best local send hour from when a contact has
// historically engaged on a channel.
type Predictor struct {
	history EngagedStore
	sample  int
}

// NewPredictor creates a predictor bounded to the given engagement sample
// size.
func NewPredictor(history EngagedStore, sample int) *Predictor {
	if sample <= 0 {
		sample = 50
	}
	return &Predictor{history: history, sample: sample}
}

// PredictHour returns the hour [0,23] at which the contact most often
// engages on the adapter's channel. With fewer than minEngagedRecords
// engaged records (or a failed history read) it returns the channel's
// default hour. The adapter's courtesy clamp is applied last.
func (p *Predictor) PredictHour(ctx context.Context, contactID string, adapter channels.Adapter) int {
	ch := adapter.Channel()
	records, err := p.history.ListEngaged(ctx, contactID, ch, p.sample)
	if err != nil {
		log.Printf("[Predictor] Engagement history read failed for %s/%s: %v", contactID, ch, err)
		return adapter.ClampHour(adapter.DefaultHour())
	}
	if len(records) < minEngagedRecords {
		return adapter.ClampHour(adapter.DefaultHour())
	}
	return adapter.ClampHour(peakHour(records))
}

// peakHour buckets engagement timestamps by local hour and returns the
// fullest bucket, lowest hour on ties.
func peakHour(records []domain.MessageRecord) int {
	var histogram [24]int
	for i := range records {
		if ts := records[i].EngagementTime(); ts != nil {
			histogram[ts.Hour()]++
		}
	}
	best := 0
	for h := 1; h < 24; h++ {
		if histogram[h] > histogram[best] {
			best = h
		}
	}
	return best
}
