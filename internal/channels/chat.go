package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/notify-engine/internal/config"
	"github.com/ignite/notify-engine/internal/domain"
	"github.com/ignite/notify-engine/internal/pkg/httpretry"
)

// ChatAdapter delivers through a LINE-compatible chat-app push API.
type ChatAdapter struct {
	accessToken string
	baseURL     string
	client      httpretry.HTTPDoer
}

// NewChatAdapter creates the chat push adapter.
func NewChatAdapter(cfg config.ChatConfig) *ChatAdapter {
	return &ChatAdapter{
		accessToken: cfg.AccessToken,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		client:      httpretry.NewRetryClient(&http.Client{Timeout: cfg.Timeout()}, 2),
	}
}

func (a *ChatAdapter) Channel() domain.Channel { return domain.ChannelChat }

func (a *ChatAdapter) CheckEligibility(c *domain.Contact) (bool, string) {
	if c.ChatUserID == "" {
		return false, "chat account not linked"
	}
	if !c.ChatOptIn {
		return false, "chat delivery opted out"
	}
	return true, ""
}

// AdaptPayload back-fills the chat message from, in order of preference,
// the generic text content, then the SMS body.
func (a *ChatAdapter) AdaptPayload(p *domain.DeliveryPayload) {
	if p.ChatMessage != "" {
		return
	}
	if p.TextContent != "" {
		p.ChatMessage = p.TextContent
	} else if p.SMSBody != "" {
		p.ChatMessage = p.SMSBody
	}
}

func (a *ChatAdapter) ValidatePayload(p *domain.DeliveryPayload) error {
	if p.ChatMessage == "" {
		return errors.New("chat requires a message body")
	}
	return nil
}

func (a *ChatAdapter) ClassPrior() int { return 70 }

func (a *ChatAdapter) DefaultHour() int { return 20 }

// ClampHour keeps chat push inside courtesy hours (9:00-20:00).
func (a *ChatAdapter) ClampHour(h int) int { return clampCourtesyHour(h) }

// Send posts a push message to the chat platform.
func (a *ChatAdapter) Send(ctx context.Context, c *domain.Contact, p *domain.DeliveryPayload) *domain.DeliveryResult {
	now := time.Now()
	if a.accessToken == "" {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelChat, Error: "chat access token not configured", Timestamp: now}
	}

	payload := map[string]any{
		"to": c.ChatUserID,
		"messages": []map[string]string{
			{"type": "text", "text": p.ChatMessage},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelChat, Error: "marshal push: " + err.Error(), Timestamp: now}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/message/push", bytes.NewReader(data))
	if err != nil {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelChat, Error: "create request: " + err.Error(), Timestamp: now}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelChat, Error: "send request: " + err.Error(), Timestamp: now}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return &domain.DeliveryResult{
			Success: false, Channel: domain.ChannelChat,
			Error:     fmt.Sprintf("chat API error %d: %s", resp.StatusCode, string(body)),
			Timestamp: now,
		}
	}

	var result struct {
		SentMessages []struct {
			ID string `json:"id"`
		} `json:"sentMessages"`
	}
	json.Unmarshal(body, &result)
	messageID := ""
	if len(result.SentMessages) > 0 {
		messageID = result.SentMessages[0].ID
	}
	log.Printf("[Chat] Pushed to contact %s (id: %s)", c.ID, messageID)

	return &domain.DeliveryResult{Success: true, Channel: domain.ChannelChat, MessageID: messageID, Timestamp: time.Now()}
}
