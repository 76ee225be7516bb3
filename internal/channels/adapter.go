// Package channels contains the per-channel adapter implementations.
//
// Each channel implements the Adapter interface once; eligibility rules,
// payload adaptation, scoring priors, and send-hour defaults all live on
// the adapter. Adding a channel is a single new implementation, not edits
// scattered across the gate, scorer, predictor, and orchestrator.
//
// Adapters are split into individual files:
//   - email.go:    AWS SES v2
//   - sms.go:      SMS gateway (Twilio-compatible Messages API)
//   - chat.go:     chat-app push (LINE-compatible Push API)
//   - business.go: business messaging (Twilio-compatible WhatsApp-style API)
package channels

import (
	"context"

	"github.com/ignite/notify-engine/internal/domain"
)

// Adapter is the capability interface one channel implements. Everything
// channel-specific the engine needs is behind these methods.
type Adapter interface {
	// Channel identifies the transport this adapter serves.
	Channel() domain.Channel

	// CheckEligibility decides whether the contact can legally and
	// physically receive on this channel (identifier present, opt-in
	// granted). Returns the reason when not eligible.
	CheckEligibility(c *domain.Contact) (bool, string)

	// AdaptPayload back-fills the channel-specific body from the generic
	// content so a single authored message degrades gracefully. Called
	// once at candidate-selection time, never per retry.
	AdaptPayload(p *domain.DeliveryPayload)

	// ValidatePayload reports whether required channel-specific content is
	// present after adaptation. A failure here is terminal for the
	// candidate (never retried).
	ValidatePayload(p *domain.DeliveryPayload) error

	// ClassPrior is the 0-100 default score used when a contact has fewer
	// than five historical sends on this channel.
	ClassPrior() int

	// DefaultHour is the send hour used when engagement history is too
	// sparse to build a histogram.
	DefaultHour() int

	// ClampHour constrains a predicted hour to channel-appropriate hours.
	// Channels perceived as personal/intrusive clamp into courtesy hours.
	ClampHour(hour int) int

	// Send performs the delivery. Failures are returned inside the result,
	// never as a Go error, so the orchestrator's retry policy can treat
	// them uniformly.
	Send(ctx context.Context, c *domain.Contact, p *domain.DeliveryPayload) *domain.DeliveryResult
}
