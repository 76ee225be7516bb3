package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/ignite/notify-engine/internal/channels"
	"github.com/ignite/notify-engine/internal/config"
	"github.com/ignite/notify-engine/internal/domain"
	"github.com/stretchr/testify/assert"
)

type stubEngaged struct {
	records []domain.MessageRecord
	err     error
}

func (s *stubEngaged) ListEngaged(_ context.Context, _ string, _ domain.Channel, _ int) ([]domain.MessageRecord, error) {
	return s.records, s.err
}

func engagedAt(hours ...int) []domain.MessageRecord {
	records := make([]domain.MessageRecord, 0, len(hours))
	for _, h := range hours {
		ts := time.Date(2026, 8, 1, h, 30, 0, 0, time.UTC)
		records = append(records, domain.MessageRecord{Status: domain.StatusDelivered, OpenedAt: &ts})
	}
	return records
}

func TestPredictHourHistogram(t *testing.T) {
	p := NewPredictor(&stubEngaged{records: engagedAt(14, 9, 14, 20, 14, 9)}, 50)
	email := channels.NewEmailAdapter(config.EmailConfig{})

	assert.Equal(t, 14, p.PredictHour(context.Background(), "c1", email))
}

func TestPredictHourTieBreaksLow(t *testing.T) {
	p := NewPredictor(&stubEngaged{records: engagedAt(15, 8, 15, 8, 8, 15)}, 50)
	email := channels.NewEmailAdapter(config.EmailConfig{})

	assert.Equal(t, 8, p.PredictHour(context.Background(), "c1", email))
}

func TestPredictHourCourtesyClamp(t *testing.T) {
	// Contact engages at 23:30; SMS never goes out past 20:00.
	p := NewPredictor(&stubEngaged{records: engagedAt(23, 23, 23, 23, 23)}, 50)
	sms := channels.NewSMSAdapter(config.SMSConfig{})

	assert.Equal(t, 20, p.PredictHour(context.Background(), "c1", sms))
}

func TestPredictHourDefaultsBelowSampleFloor(t *testing.T) {
	p := NewPredictor(&stubEngaged{records: engagedAt(3, 3, 3, 3)}, 50)

	for _, tc := range []struct {
		adapter channels.Adapter
		want    int
	}{
		{channels.NewEmailAdapter(config.EmailConfig{}), 10},
		{channels.NewSMSAdapter(config.SMSConfig{}), 12},
		{channels.NewChatAdapter(config.ChatConfig{}), 20},
		{channels.NewBusinessAdapter(config.BusinessConfig{}), 19},
	} {
		assert.Equal(t, tc.want, p.PredictHour(context.Background(), "c1", tc.adapter),
			"default hour for %s", tc.adapter.Channel())
	}
}

func TestPredictHourStoreFailureFallsBack(t *testing.T) {
	p := NewPredictor(&stubEngaged{err: assert.AnError}, 50)
	chat := channels.NewChatAdapter(config.ChatConfig{})

	assert.Equal(t, 20, p.PredictHour(context.Background(), "c1", chat))
}
