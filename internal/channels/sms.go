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

// smsMaxRunes is the adapted body length: two GSM segments of headroom
// when the body is derived from generic text content.
const smsMaxRunes = 140

// SMSAdapter delivers through a Twilio-compatible SMS gateway.
type SMSAdapter struct {
	accountSID string
	authToken  string
	baseURL    string
	fromNumber string
	client     httpretry.HTTPDoer
}

// NewSMSAdapter creates the SMS adapter. Transport-level retries (5xx,
// connection resets) are handled by the retrying HTTP client; channel
// retries stay with the orchestrator.
func NewSMSAdapter(cfg config.SMSConfig) *SMSAdapter {
	return &SMSAdapter{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		fromNumber: cfg.FromNumber,
		client:     httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
	}
}

func (a *SMSAdapter) Channel() domain.Channel { return domain.ChannelSMS }

func (a *SMSAdapter) CheckEligibility(c *domain.Contact) (bool, string) {
	if c.Phone == "" {
		return false, "phone number not registered"
	}
	if !c.SMSOptIn {
		return false, "SMS delivery opted out"
	}
	return true, ""
}

// AdaptPayload derives a short SMS body from the generic text content when
// none was authored.
func (a *SMSAdapter) AdaptPayload(p *domain.DeliveryPayload) {
	if p.SMSBody == "" && p.TextContent != "" {
		p.SMSBody = truncateRunes(p.TextContent, smsMaxRunes)
	}
}

func (a *SMSAdapter) ValidatePayload(p *domain.DeliveryPayload) error {
	if p.SMSBody == "" {
		return errors.New("sms requires a message body")
	}
	return nil
}

func (a *SMSAdapter) ClassPrior() int { return 65 }

func (a *SMSAdapter) DefaultHour() int { return 12 }

// ClampHour keeps SMS inside courtesy hours (9:00-20:00).
func (a *SMSAdapter) ClampHour(h int) int { return clampCourtesyHour(h) }

// Send posts to the gateway's Messages endpoint.
func (a *SMSAdapter) Send(ctx context.Context, c *domain.Contact, p *domain.DeliveryPayload) *domain.DeliveryResult {
	now := time.Now()
	if a.accountSID == "" || a.authToken == "" {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelSMS, Error: "SMS gateway not configured", Timestamp: now}
	}

	form := url.Values{}
	form.Add("To", c.Phone)
	form.Add("From", a.fromNumber)
	form.Add("Body", p.SMSBody)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", a.baseURL, a.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelSMS, Error: "create request: " + err.Error(), Timestamp: now}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.accountSID, a.authToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelSMS, Error: "send request: " + err.Error(), Timestamp: now}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return &domain.DeliveryResult{
			Success: false, Channel: domain.ChannelSMS,
			Error:     fmt.Sprintf("SMS gateway error %d: %s", resp.StatusCode, string(body)),
			Timestamp: now,
		}
	}

	var result struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	json.Unmarshal(body, &result)
	log.Printf("[SMS] Sent to %s (sid: %s)", logger.RedactPhone(c.Phone), result.SID)

	return &domain.DeliveryResult{Success: true, Channel: domain.ChannelSMS, MessageID: result.SID, Timestamp: time.Now()}
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// clampCourtesyHour constrains an hour into [9,20] for channels perceived
// as personal/intrusive.
func clampCourtesyHour(h int) int {
	if h < 9 {
		return 9
	}
	if h > 20 {
		return 20
	}
	return h
}
