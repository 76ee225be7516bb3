package domain

import "time"

// MessageStatus is the provider-reported state of a historical send.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
)

// MessageRecord is one row of the append-only message history: a single
// historical send attempt with optional engagement timestamps. Immutable
// once written.
type MessageRecord struct {
	ID         string        `json:"id" db:"id"`
	TenantID   string        `json:"tenant_id" db:"tenant_id"`
	ContactID  string        `json:"contact_id" db:"contact_id"`
	Channel    Channel       `json:"channel" db:"channel"`
	Status     MessageStatus `json:"status" db:"status"`
	CampaignID string        `json:"campaign_id,omitempty" db:"campaign_id"`
	StepID     string        `json:"step_id,omitempty" db:"step_id"`
	Subject    string        `json:"subject,omitempty" db:"subject"`
	Body       string        `json:"body,omitempty" db:"body"`
	ErrorMsg   string        `json:"error_message,omitempty" db:"error_message"`
	SentAt     *time.Time    `json:"sent_at,omitempty" db:"sent_at"`
	OpenedAt   *time.Time    `json:"opened_at,omitempty" db:"opened_at"`
	ClickedAt  *time.Time    `json:"clicked_at,omitempty" db:"clicked_at"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// Engaged reports whether the record carries an open or click timestamp.
func (m *MessageRecord) Engaged() bool {
	return m.OpenedAt != nil || m.ClickedAt != nil
}

// EngagementTime returns the open timestamp if present, otherwise the
// click timestamp, otherwise nil.
func (m *MessageRecord) EngagementTime() *time.Time {
	if m.OpenedAt != nil {
		return m.OpenedAt
	}
	return m.ClickedAt
}

// ChannelStats is the bounded-window reduction of a contact's history on
// one channel. Computed fresh on every call; never cached by this core.
type ChannelStats struct {
	Channel          Channel    `json:"channel"`
	TotalSent        int        `json:"total_sent"`
	Delivered        int        `json:"delivered"`
	Opened           int        `json:"opened"`
	Clicked          int        `json:"clicked"`
	LastEngagementAt *time.Time `json:"last_engagement_at,omitempty"`
}

// ChannelTotals are tenant-wide per-channel aggregate counters, used by
// the reporting endpoint only.
type ChannelTotals struct {
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Opened    int `json:"opened"`
	Clicked   int `json:"clicked"`
}
