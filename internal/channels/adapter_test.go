package channels

import (
	"strings"
	"testing"

	"github.com/ignite/notify-engine/internal/config"
	"github.com/ignite/notify-engine/internal/domain"
	"github.com/stretchr/testify/assert"
)

func testRegistry() *Registry {
	return NewRegistry(
		NewEmailAdapter(config.EmailConfig{}),
		NewSMSAdapter(config.SMSConfig{}),
		NewChatAdapter(config.ChatConfig{}),
		NewBusinessAdapter(config.BusinessConfig{}),
	)
}

func TestRegistryOrderAndDedup(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, []domain.Channel{
		domain.ChannelEmail, domain.ChannelSMS, domain.ChannelChat, domain.ChannelBusiness,
	}, r.Channels())

	// Re-registering an existing channel is a no-op
	r.Register(NewSMSAdapter(config.SMSConfig{}))
	assert.Len(t, r.Channels(), 4)
}

func TestCheckEligibility(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		name       string
		channel    domain.Channel
		contact    domain.Contact
		wantOK     bool
		wantReason string
	}{
		{"email ok", domain.ChannelEmail, domain.Contact{Email: "a@b.com", EmailOptIn: true}, true, ""},
		{"email missing address", domain.ChannelEmail, domain.Contact{EmailOptIn: true}, false, "email address not registered"},
		{"email opted out", domain.ChannelEmail, domain.Contact{Email: "a@b.com"}, false, "email delivery opted out"},
		{"sms ok", domain.ChannelSMS, domain.Contact{Phone: "+15550001111", SMSOptIn: true}, true, ""},
		{"sms missing phone", domain.ChannelSMS, domain.Contact{SMSOptIn: true}, false, "phone number not registered"},
		{"chat not linked", domain.ChannelChat, domain.Contact{ChatOptIn: true}, false, "chat account not linked"},
		{"chat ok", domain.ChannelChat, domain.Contact{ChatUserID: "U1", ChatOptIn: true}, true, ""},
		{"business dedicated number", domain.ChannelBusiness, domain.Contact{BusinessNumber: "+15550002222", BusinessOptIn: true}, true, ""},
		{"business falls back to phone", domain.ChannelBusiness, domain.Contact{Phone: "+15550001111", BusinessOptIn: true}, true, ""},
		{"business no number at all", domain.ChannelBusiness, domain.Contact{BusinessOptIn: true}, false, "business messaging number not registered"},
		{"business opted out", domain.ChannelBusiness, domain.Contact{Phone: "+15550001111"}, false, "business messaging opted out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := r.Get(tt.channel)
			assert.True(t, ok)
			gotOK, reason := a.CheckEligibility(&tt.contact)
			assert.Equal(t, tt.wantOK, gotOK)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestAdaptPayload_SMSTruncation(t *testing.T) {
	a := NewSMSAdapter(config.SMSConfig{})

	p := &domain.DeliveryPayload{Channel: domain.ChannelSMS, TextContent: strings.Repeat("x", 200)}
	a.AdaptPayload(p)
	assert.Len(t, p.SMSBody, 140)

	// An authored SMS body is never touched
	p2 := &domain.DeliveryPayload{Channel: domain.ChannelSMS, SMSBody: "short", TextContent: strings.Repeat("x", 200)}
	a.AdaptPayload(p2)
	assert.Equal(t, "short", p2.SMSBody)

	// Multibyte content truncates on rune boundaries
	p3 := &domain.DeliveryPayload{Channel: domain.ChannelSMS, TextContent: strings.Repeat("あ", 200)}
	a.AdaptPayload(p3)
	assert.Equal(t, 140, len([]rune(p3.SMSBody)))
}

func TestAdaptPayload_ChatCascade(t *testing.T) {
	a := NewChatAdapter(config.ChatConfig{})

	p := &domain.DeliveryPayload{TextContent: "generic", SMSBody: "sms"}
	a.AdaptPayload(p)
	assert.Equal(t, "generic", p.ChatMessage)

	p = &domain.DeliveryPayload{SMSBody: "sms"}
	a.AdaptPayload(p)
	assert.Equal(t, "sms", p.ChatMessage)

	p = &domain.DeliveryPayload{ChatMessage: "authored", TextContent: "generic"}
	a.AdaptPayload(p)
	assert.Equal(t, "authored", p.ChatMessage)
}

func TestAdaptPayload_BusinessCascade(t *testing.T) {
	a := NewBusinessAdapter(config.BusinessConfig{})

	p := &domain.DeliveryPayload{TextContent: "generic", ChatMessage: "chat", SMSBody: "sms"}
	a.AdaptPayload(p)
	assert.Equal(t, "generic", p.BusinessMessage)

	p = &domain.DeliveryPayload{ChatMessage: "chat", SMSBody: "sms"}
	a.AdaptPayload(p)
	assert.Equal(t, "chat", p.BusinessMessage)

	p = &domain.DeliveryPayload{SMSBody: "sms"}
	a.AdaptPayload(p)
	assert.Equal(t, "sms", p.BusinessMessage)

	p = &domain.DeliveryPayload{}
	a.AdaptPayload(p)
	assert.Empty(t, p.BusinessMessage)
	assert.Error(t, a.ValidatePayload(p))
}

func TestValidatePayload(t *testing.T) {
	r := testRegistry()

	email, _ := r.Get(domain.ChannelEmail)
	assert.Error(t, email.ValidatePayload(&domain.DeliveryPayload{Subject: "s"}))
	assert.NoError(t, email.ValidatePayload(&domain.DeliveryPayload{Subject: "s", HTMLContent: "<p>hi</p>"}))
	assert.NoError(t, email.ValidatePayload(&domain.DeliveryPayload{Subject: "s", TextContent: "hi"}))

	sms, _ := r.Get(domain.ChannelSMS)
	assert.Error(t, sms.ValidatePayload(&domain.DeliveryPayload{}))
	assert.NoError(t, sms.ValidatePayload(&domain.DeliveryPayload{SMSBody: "hi"}))
}

func TestClassPriorsAndDefaultHours(t *testing.T) {
	r := testRegistry()

	priors := map[domain.Channel]int{
		domain.ChannelChat:     70,
		domain.ChannelBusiness: 75,
		domain.ChannelSMS:      65,
		domain.ChannelEmail:    50,
	}
	hours := map[domain.Channel]int{
		domain.ChannelEmail:    10,
		domain.ChannelSMS:      12,
		domain.ChannelChat:     20,
		domain.ChannelBusiness: 19,
	}
	for ch, want := range priors {
		a, _ := r.Get(ch)
		assert.Equal(t, want, a.ClassPrior(), "prior for %s", ch)
	}
	for ch, want := range hours {
		a, _ := r.Get(ch)
		assert.Equal(t, want, a.DefaultHour(), "default hour for %s", ch)
	}
}

func TestClampHour(t *testing.T) {
	r := testRegistry()

	sms, _ := r.Get(domain.ChannelSMS)
	chat, _ := r.Get(domain.ChannelChat)
	email, _ := r.Get(domain.ChannelEmail)
	business, _ := r.Get(domain.ChannelBusiness)

	// Courtesy-hours clamp applies to sms and chat only
	assert.Equal(t, 9, sms.ClampHour(3))
	assert.Equal(t, 20, sms.ClampHour(23))
	assert.Equal(t, 14, sms.ClampHour(14))
	assert.Equal(t, 9, chat.ClampHour(0))
	assert.Equal(t, 20, chat.ClampHour(22))

	assert.Equal(t, 3, email.ClampHour(3))
	assert.Equal(t, 23, business.ClampHour(23))
}
