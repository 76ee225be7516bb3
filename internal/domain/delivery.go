package domain

import "time"

// DeliveryPayload is a single authored message addressed to one contact on
// a preferred channel. Channel-specific bodies may be absent; the fallback
// orchestrator back-fills them from the generic content before each
// candidate attempt so one authored message degrades gracefully across
// channels.
type DeliveryPayload struct {
	Channel    Channel `json:"channel"`
	ContactID  string  `json:"contact_id"`
	TenantID   string  `json:"tenant_id"`
	StepID     string  `json:"step_id,omitempty"`
	CampaignID string  `json:"campaign_id,omitempty"`

	// Email
	Subject     string `json:"subject,omitempty"`
	HTMLContent string `json:"html_content,omitempty"`
	TextContent string `json:"text_content,omitempty"`
	// SMS
	SMSBody string `json:"sms_body,omitempty"`
	// Chat push
	ChatMessage string `json:"chat_message,omitempty"`
	// Business messaging
	BusinessMessage  string `json:"business_message,omitempty"`
	BusinessMediaURL string `json:"business_media_url,omitempty"`
}

// DeliveryResult is the outcome of one single-channel delivery. Failures
// are values, never panics or thrown errors, so one contact's failure
// cannot abort a batch of others.
type DeliveryResult struct {
	Success   bool      `json:"success"`
	Channel   Channel   `json:"channel"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DeliveryAttempt is one channel-level try inside a fallback run. Retries
// of the same channel are folded into a single attempt carrying the final
// retry count.
type DeliveryAttempt struct {
	Channel    Channel   `json:"channel"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
}

// FallbackResult is the outcome of a full fallback run across candidate
// channels. FallbackUsed is true iff the final channel differs from the
// originally requested one AND the delivery succeeded.
type FallbackResult struct {
	DeliveryResult
	Attempts      []DeliveryAttempt `json:"attempts"`
	FinalChannel  Channel           `json:"final_channel"`
	TotalAttempts int               `json:"total_attempts"`
	FallbackUsed  bool              `json:"fallback_used"`
}

// FallbackAudit is the audit entry emitted when a delivery succeeded on a
// different channel than originally requested.
type FallbackAudit struct {
	ID              string            `json:"id" db:"id"`
	TenantID        string            `json:"tenant_id" db:"tenant_id"`
	ContactID       string            `json:"contact_id" db:"contact_id"`
	OriginalChannel Channel           `json:"original_channel" db:"original_channel"`
	FinalChannel    Channel           `json:"final_channel" db:"final_channel"`
	Attempts        []DeliveryAttempt `json:"attempts"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}

// BatchSummary aggregates the outcomes of a batch fallback run.
type BatchSummary struct {
	Total            int             `json:"total"`
	Successful       int             `json:"successful"`
	Failed           int             `json:"failed"`
	SuccessRate      float64         `json:"success_rate"`
	FallbackRate     float64         `json:"fallback_rate"`
	ChannelBreakdown map[Channel]int `json:"channel_breakdown"`
}
