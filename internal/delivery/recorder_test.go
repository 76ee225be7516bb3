package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ignite/notify-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureHistory struct {
	records []*domain.MessageRecord
	err     error
}

func (c *captureHistory) Append(_ context.Context, rec *domain.MessageRecord) error {
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, rec)
	return nil
}

type captureAudit struct {
	audits []*domain.FallbackAudit
}

func (c *captureAudit) Append(_ context.Context, a *domain.FallbackAudit) error {
	c.audits = append(c.audits, a)
	return nil
}

func TestRecordOutcomeSuccess(t *testing.T) {
	history := &captureHistory{}
	r := NewRecorder(history, nil)

	ts := time.Now()
	r.RecordOutcome(context.Background(),
		&domain.DeliveryPayload{ContactID: "c1", TenantID: "t1", Channel: domain.ChannelSMS, SMSBody: "hi"},
		&domain.DeliveryResult{Success: true, Channel: domain.ChannelSMS, MessageID: "SM1", Timestamp: ts})

	require.Len(t, history.records, 1)
	rec := history.records[0]
	assert.Equal(t, domain.StatusSent, rec.Status)
	assert.Equal(t, domain.ChannelSMS, rec.Channel)
	assert.Equal(t, "hi", rec.Body)
	require.NotNil(t, rec.SentAt)
	assert.Equal(t, ts, *rec.SentAt)
}

func TestRecordOutcomeFailure(t *testing.T) {
	history := &captureHistory{}
	r := NewRecorder(history, nil)

	r.RecordOutcome(context.Background(),
		&domain.DeliveryPayload{ContactID: "c1", Channel: domain.ChannelEmail},
		&domain.DeliveryResult{Success: false, Channel: domain.ChannelEmail, Error: "mailbox full"})

	require.Len(t, history.records, 1)
	assert.Equal(t, domain.StatusFailed, history.records[0].Status)
	assert.Equal(t, "mailbox full", history.records[0].ErrorMsg)
	assert.Nil(t, history.records[0].SentAt)
}

func TestRecordFallbackWritesAuditOnlyWhenUsed(t *testing.T) {
	history := &captureHistory{}
	audit := &captureAudit{}
	r := NewRecorder(history, audit)

	payload := &domain.DeliveryPayload{ContactID: "c1", TenantID: "t1", Channel: domain.ChannelEmail, ChatMessage: "hi"}

	// Fallback to chat: history row on the final channel + audit entry
	r.RecordFallback(context.Background(), payload, &domain.FallbackResult{
		DeliveryResult: domain.DeliveryResult{Success: true, Channel: domain.ChannelChat, Timestamp: time.Now()},
		FinalChannel:   domain.ChannelChat,
		FallbackUsed:   true,
		Attempts:       []domain.DeliveryAttempt{{Channel: domain.ChannelEmail}, {Channel: domain.ChannelChat, Success: true}},
	})

	require.Len(t, history.records, 1)
	assert.Equal(t, domain.ChannelChat, history.records[0].Channel)
	require.Len(t, audit.audits, 1)
	assert.Equal(t, domain.ChannelEmail, audit.audits[0].OriginalChannel)
	assert.Equal(t, domain.ChannelChat, audit.audits[0].FinalChannel)

	// Direct success on the requested channel: no audit entry
	r.RecordFallback(context.Background(), payload, &domain.FallbackResult{
		DeliveryResult: domain.DeliveryResult{Success: true, Channel: domain.ChannelEmail},
		FinalChannel:   domain.ChannelEmail,
	})
	assert.Len(t, audit.audits, 1)
}

func TestRecorderSwallowsPersistenceErrors(t *testing.T) {
	r := NewRecorder(&captureHistory{err: errors.New("db down")}, nil)

	// Must not panic or propagate
	r.RecordOutcome(context.Background(),
		&domain.DeliveryPayload{ContactID: "c1", Channel: domain.ChannelEmail},
		&domain.DeliveryResult{Success: true, Channel: domain.ChannelEmail})
}

func TestRecorderNilSafe(t *testing.T) {
	var r *Recorder
	r.RecordOutcome(context.Background(), &domain.DeliveryPayload{}, &domain.DeliveryResult{})
	r.RecordFallback(context.Background(), &domain.DeliveryPayload{}, &domain.FallbackResult{})
}
