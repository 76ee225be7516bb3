package domain

import "errors"

// ErrContactNotFound is returned by contact stores when the id is unknown.
var ErrContactNotFound = errors.New("contact not found")

// ErrNoEligibleChannel is returned when a contact cannot be reached on
// any registered channel.
var ErrNoEligibleChannel = errors.New("no eligible channel")

// Contact holds the per-channel identifiers and opt-in flags for one
// recipient. The record is owned by the external contact store; this core
// only reads it.
type Contact struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Name     string `json:"name" db:"name"`

	Email          string `json:"email" db:"email"`
	Phone          string `json:"phone" db:"phone"`
	ChatUserID     string `json:"chat_user_id" db:"chat_user_id"`
	BusinessNumber string `json:"business_number" db:"business_number"`

	EmailOptIn    bool `json:"email_opt_in" db:"email_opt_in"`
	SMSOptIn      bool `json:"sms_opt_in" db:"sms_opt_in"`
	ChatOptIn     bool `json:"chat_opt_in" db:"chat_opt_in"`
	BusinessOptIn bool `json:"business_opt_in" db:"business_opt_in"`
}

// AddressFor returns the channel-specific identifier for the contact.
// Business messaging falls back to the phone number when no dedicated
// number is set.
func (c *Contact) AddressFor(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return c.Email
	case ChannelSMS:
		return c.Phone
	case ChannelChat:
		return c.ChatUserID
	case ChannelBusiness:
		if c.BusinessNumber != "" {
			return c.BusinessNumber
		}
		return c.Phone
	}
	return ""
}

// OptedIn returns the consent flag for the given channel.
func (c *Contact) OptedIn(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return c.EmailOptIn
	case ChannelSMS:
		return c.SMSOptIn
	case ChannelChat:
		return c.ChatOptIn
	case ChannelBusiness:
		return c.BusinessOptIn
	}
	return false
}
