// Package eligibility answers whether a specific contact may receive a
// message on a specific channel right now. Per-channel rules live on the
// channel adapters; the gate adds contact lookup and never fails hard.
package eligibility

import (
	"context"
	"errors"
	"log"

	"github.com/ignite/notify-engine/internal/channels"
	"github.com/ignite/notify-engine/internal/domain"
)

// ContactStore loads contact records for eligibility checks.
type ContactStore interface {
	GetContact(ctx context.Context, id string) (*domain.Contact, error)
}

// Result is one eligibility verdict. Reason is empty when eligible.
type Result struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// Gate evaluates channel eligibility for contacts.
type Gate struct {
	contacts ContactStore
	registry *channels.Registry
}

// NewGate creates an eligibility gate over the given contact store and
// channel registry.
func NewGate(contacts ContactStore, registry *channels.Registry) *Gate {
	return &Gate{contacts: contacts, registry: registry}
}

// Check evaluates one contact/channel pair. It always returns a verdict:
// lookup failures and unknown channels come back as ineligible with a
// reason rather than as errors, so callers can treat the gate as a pure
// predicate.
func (g *Gate) Check(ctx context.Context, contactID string, ch domain.Channel) Result {
	if !ch.Valid() {
		return Result{Eligible: false, Reason: "unknown channel: " + string(ch)}
	}
	adapter, ok := g.registry.Get(ch)
	if !ok {
		return Result{Eligible: false, Reason: "channel not registered: " + string(ch)}
	}

	contact, err := g.contacts.GetContact(ctx, contactID)
	if err != nil {
		if errors.Is(err, domain.ErrContactNotFound) {
			return Result{Eligible: false, Reason: "contact not found"}
		}
		log.Printf("[Eligibility] Contact lookup failed for %s: %v", contactID, err)
		return Result{Eligible: false, Reason: "contact lookup failed"}
	}

	return g.CheckContact(contact, adapter)
}

// CheckContact applies the adapter's rules to an already-loaded contact.
func (g *Gate) CheckContact(contact *domain.Contact, adapter channels.Adapter) Result {
	ok, reason := adapter.CheckEligibility(contact)
	return Result{Eligible: ok, Reason: reason}
}

// EligibleChannels returns, in registry order, every channel the contact
// may currently receive on.
func (g *Gate) EligibleChannels(contact *domain.Contact) []domain.Channel {
	var eligible []domain.Channel
	for _, adapter := range g.registry.Adapters() {
		if ok, _ := adapter.CheckEligibility(contact); ok {
			eligible = append(eligible, adapter.Channel())
		}
	}
	return eligible
}
