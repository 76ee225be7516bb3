package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/ignite/notify-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	records map[domain.Channel][]domain.MessageRecord
	gotLimit int
}

func (s *stubHistory) ListRecent(_ context.Context, _ string, ch domain.Channel, limit int) ([]domain.MessageRecord, error) {
	s.gotLimit = limit
	return s.records[ch], nil
}

func ts(s string) *time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return &t
}

func TestReduce(t *testing.T) {
	records := []domain.MessageRecord{
		{Status: domain.StatusDelivered, OpenedAt: ts("2026-08-01T10:00:00Z"), ClickedAt: ts("2026-08-01T10:05:00Z")},
		{Status: domain.StatusSent},
		{Status: domain.StatusFailed},
		{Status: domain.StatusDelivered, OpenedAt: ts("2026-08-10T09:00:00Z")},
	}

	stats := Reduce(domain.ChannelEmail, records)

	assert.Equal(t, 4, stats.TotalSent)
	assert.Equal(t, 3, stats.Delivered) // delivered or sent; failed excluded
	assert.Equal(t, 2, stats.Opened)
	assert.Equal(t, 1, stats.Clicked)
	require.NotNil(t, stats.LastEngagementAt)
	assert.Equal(t, *ts("2026-08-10T09:00:00Z"), *stats.LastEngagementAt)
}

func TestReduceEmpty(t *testing.T) {
	stats := Reduce(domain.ChannelSMS, nil)
	assert.Equal(t, 0, stats.TotalSent)
	assert.Nil(t, stats.LastEngagementAt)
}

func TestReduceClickOnlyEngagement(t *testing.T) {
	// Click without open still counts as engagement
	stats := Reduce(domain.ChannelChat, []domain.MessageRecord{
		{Status: domain.StatusDelivered, ClickedAt: ts("2026-08-05T12:00:00Z")},
	})
	require.NotNil(t, stats.LastEngagementAt)
	assert.Equal(t, *ts("2026-08-05T12:00:00Z"), *stats.LastEngagementAt)
}

func TestAggregatePassesWindow(t *testing.T) {
	h := &stubHistory{}
	a := NewAggregator(h, 100)

	_, err := a.Aggregate(context.Background(), "c1", domain.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, 100, h.gotLimit)
}

func TestAggregateAll(t *testing.T) {
	h := &stubHistory{records: map[domain.Channel][]domain.MessageRecord{
		domain.ChannelEmail: {{Status: domain.StatusDelivered}},
	}}
	a := NewAggregator(h, 50)

	all, err := a.AggregateAll(context.Background(), "c1", domain.AllChannels())
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 1, all[domain.ChannelEmail].TotalSent)
	assert.Equal(t, 0, all[domain.ChannelSMS].TotalSent)
}
