package delivery

import (
	"context"
	"log"

	"github.com/ignite/notify-engine/internal/domain"
)

// HistoryAppender persists message-history rows.
type HistoryAppender interface {
	Append(ctx context.Context, rec *domain.MessageRecord) error
}

// AuditAppender persists fallback-usage audit entries.
type AuditAppender interface {
	Append(ctx context.Context, audit *domain.FallbackAudit) error
}

// Recorder writes delivery outcomes to the history and audit stores.
// All methods are nil-safe and swallow persistence errors: losing an
// audit row must never undo a successful send.
type Recorder struct {
	history HistoryAppender
	audit   AuditAppender
}

// NewRecorder creates an outcome recorder. Either store may be nil.
func NewRecorder(history HistoryAppender, audit AuditAppender) *Recorder {
	return &Recorder{history: history, audit: audit}
}

// RecordOutcome writes one message-history row for a single-channel
// delivery call.
func (r *Recorder) RecordOutcome(ctx context.Context, payload *domain.DeliveryPayload, res *domain.DeliveryResult) {
	if r == nil || r.history == nil {
		return
	}
	rec := recordFor(payload, res)
	if err := r.history.Append(ctx, rec); err != nil {
		log.Printf("[Recorder] History write failed for contact %s: %v", payload.ContactID, err)
	}
}

// RecordFallback writes one message-history row reflecting the final
// outcome of a fallback run, plus an audit entry when the delivery
// landed on a different channel than requested.
func (r *Recorder) RecordFallback(ctx context.Context, payload *domain.DeliveryPayload, res *domain.FallbackResult) {
	if r == nil {
		return
	}
	if r.history != nil {
		final := res.DeliveryResult
		final.Channel = res.FinalChannel
		if err := r.history.Append(ctx, recordFor(payload, &final)); err != nil {
			log.Printf("[Recorder] History write failed for contact %s: %v", payload.ContactID, err)
		}
	}
	if r.audit != nil && res.FallbackUsed {
		audit := &domain.FallbackAudit{
			TenantID:        payload.TenantID,
			ContactID:       payload.ContactID,
			OriginalChannel: payload.Channel,
			FinalChannel:    res.FinalChannel,
			Attempts:        res.Attempts,
		}
		if err := r.audit.Append(ctx, audit); err != nil {
			log.Printf("[Recorder] Audit write failed for contact %s: %v", payload.ContactID, err)
		}
	}
}

func recordFor(payload *domain.DeliveryPayload, res *domain.DeliveryResult) *domain.MessageRecord {
	rec := &domain.MessageRecord{
		TenantID:   payload.TenantID,
		ContactID:  payload.ContactID,
		Channel:    res.Channel,
		CampaignID: payload.CampaignID,
		StepID:     payload.StepID,
		Subject:    payload.Subject,
		Body:       bodyFor(res.Channel, payload),
	}
	if rec.Channel == "" {
		rec.Channel = payload.Channel
	}
	if res.Success {
		rec.Status = domain.StatusSent
		ts := res.Timestamp
		rec.SentAt = &ts
	} else {
		rec.Status = domain.StatusFailed
		rec.ErrorMsg = res.Error
	}
	return rec
}

func bodyFor(ch domain.Channel, payload *domain.DeliveryPayload) string {
	switch ch {
	case domain.ChannelSMS:
		return payload.SMSBody
	case domain.ChannelChat:
		return payload.ChatMessage
	case domain.ChannelBusiness:
		return payload.BusinessMessage
	}
	if payload.TextContent != "" {
		return payload.TextContent
	}
	return payload.HTMLContent
}
