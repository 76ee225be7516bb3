package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/notify-engine/internal/config"
	"github.com/ignite/notify-engine/internal/domain"
	"github.com/ignite/notify-engine/internal/pkg/httpretry"
	"github.com/ignite/notify-engine/internal/pkg/logger"
)

// BusinessAdapter delivers through a Twilio-compatible WhatsApp-style
// business messaging API.
type BusinessAdapter struct {
	accountSID string
	authToken  string
	baseURL    string
	fromNumber string
	client     httpretry.HTTPDoer
}

// NewBusinessAdapter creates the business messaging adapter.
func NewBusinessAdapter(cfg config.BusinessConfig) *BusinessAdapter {
	return &BusinessAdapter{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		fromNumber: cfg.FromNumber,
		client:     httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
	}
}

func (a *BusinessAdapter) Channel() domain.Channel { return domain.ChannelBusiness }

// CheckEligibility uses the dedicated business number when set, otherwise
// falls back to the contact's phone number before declaring ineligibility.
func (a *BusinessAdapter) CheckEligibility(c *domain.Contact) (bool, string) {
	if c.AddressFor(domain.ChannelBusiness) == "" {
		return false, "business messaging number not registered"
	}
	if !c.BusinessOptIn {
		return false, "business messaging opted out"
	}
	return true, ""
}

// AdaptPayload back-fills the business message from, in order of
// preference, the generic text content, then the chat message, then the
// SMS body.
func (a *BusinessAdapter) AdaptPayload(p *domain.DeliveryPayload) {
	if p.BusinessMessage != "" {
		return
	}
	switch {
	case p.TextContent != "":
		p.BusinessMessage = p.TextContent
	case p.ChatMessage != "":
		p.BusinessMessage = p.ChatMessage
	case p.SMSBody != "":
		p.BusinessMessage = p.SMSBody
	}
}

func (a *BusinessAdapter) ValidatePayload(p *domain.DeliveryPayload) error {
	if p.BusinessMessage == "" {
		return errors.New("business messaging requires a message body")
	}
	return nil
}

func (a *BusinessAdapter) ClassPrior() int { return 75 }

func (a *BusinessAdapter) DefaultHour() int { return 19 }

func (a *BusinessAdapter) ClampHour(h int) int { return h }

// Send posts to the gateway's Messages endpoint with whatsapp-prefixed
// addresses.
func (a *BusinessAdapter) Send(ctx context.Context, c *domain.Contact, p *domain.DeliveryPayload) *domain.DeliveryResult {
	now := time.Now()
	if a.accountSID == "" || a.authToken == "" {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelBusiness, Error: "business messaging gateway not configured", Timestamp: now}
	}

	to := c.AddressFor(domain.ChannelBusiness)
	form := url.Values{}
	form.Add("To", "whatsapp:"+to)
	form.Add("From", "whatsapp:"+a.fromNumber)
	form.Add("Body", p.BusinessMessage)
	if p.BusinessMediaURL != "" {
		form.Add("MediaUrl", p.BusinessMediaURL)
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", a.baseURL, a.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelBusiness, Error: "create request: " + err.Error(), Timestamp: now}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.accountSID, a.authToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelBusiness, Error: "send request: " + err.Error(), Timestamp: now}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return &domain.DeliveryResult{
			Success: false, Channel: domain.ChannelBusiness,
			Error:     fmt.Sprintf("business messaging error %d: %s", resp.StatusCode, string(body)),
			Timestamp: now,
		}
	}

	var result struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	json.Unmarshal(body, &result)
	log.Printf("[Business] Sent to %s (sid: %s)", logger.RedactPhone(to), result.SID)

	return &domain.DeliveryResult{Success: true, Channel: domain.ChannelBusiness, MessageID: result.SID, Timestamp: time.Now()}
}
