package domain

import "fmt"

// Channel identifies a messaging transport.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelChat     Channel = "chat"     // chat-app push (LINE-style)
	ChannelBusiness Channel = "business" // WhatsApp-style business messaging
)

// AllChannels returns the closed set of channels in canonical enumeration
// order. Scoring and stats iterate in this order.
func AllChannels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelChat, ChannelBusiness}
}

// ParseChannel converts a wire string into a Channel.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelEmail, ChannelSMS, ChannelChat, ChannelBusiness:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// Valid reports whether c is one of the four known channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelChat, ChannelBusiness:
		return true
	}
	return false
}
