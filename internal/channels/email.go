package channels

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/ignite/notify-engine/internal/config"
	"github.com/ignite/notify-engine/internal/domain"
	"github.com/ignite/notify-engine/internal/pkg/logger"
)

// EmailAdapter delivers through AWS SES using the SDK v2.
type EmailAdapter struct {
	fromName  string
	fromEmail string
	client    *sesv2.Client
}

// NewEmailAdapter creates the email adapter. The SES client is only
// initialized when credentials are provided; without one, sends fail as
// transient results (the orchestrator falls back to other channels).
func NewEmailAdapter(cfg config.EmailConfig) *EmailAdapter {
	a := &EmailAdapter{
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
		if err != nil {
			log.Printf("[Email] Warning: failed to initialize AWS config: %v", err)
		} else {
			a.client = sesv2.NewFromConfig(awsCfg)
		}
	}

	return a
}

func (a *EmailAdapter) Channel() domain.Channel { return domain.ChannelEmail }

func (a *EmailAdapter) CheckEligibility(c *domain.Contact) (bool, string) {
	if c.Email == "" {
		return false, "email address not registered"
	}
	if !c.EmailOptIn {
		return false, "email delivery opted out"
	}
	return true, ""
}

// AdaptPayload is a no-op: email is the authoring channel and carries the
// full content already.
func (a *EmailAdapter) AdaptPayload(p *domain.DeliveryPayload) {}

func (a *EmailAdapter) ValidatePayload(p *domain.DeliveryPayload) error {
	if p.Subject == "" || (p.HTMLContent == "" && p.TextContent == "") {
		return errors.New("email requires a subject and body content")
	}
	return nil
}

func (a *EmailAdapter) ClassPrior() int { return 50 }

func (a *EmailAdapter) DefaultHour() int { return 10 }

func (a *EmailAdapter) ClampHour(h int) int { return h }

// Send delivers a single email through AWS SES.
func (a *EmailAdapter) Send(ctx context.Context, c *domain.Contact, p *domain.DeliveryPayload) *domain.DeliveryResult {
	now := time.Now()
	if a.client == nil {
		return &domain.DeliveryResult{
			Success: false, Channel: domain.ChannelEmail,
			Error: "SES client not initialized - check credentials", Timestamp: now,
		}
	}

	body := &types.Body{}
	if p.HTMLContent != "" {
		body.Html = &types.Content{Data: aws.String(p.HTMLContent), Charset: aws.String("UTF-8")}
	}
	if p.TextContent != "" {
		body.Text = &types.Content{Data: aws.String(p.TextContent), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(a.fromName + " <" + a.fromEmail + ">"),
		Destination:      &types.Destination{ToAddresses: []string{c.Email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(p.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("contact_id"), Value: aws.String(c.ID)},
		},
	}
	if p.CampaignID != "" {
		input.EmailTags = append(input.EmailTags,
			types.MessageTag{Name: aws.String("campaign_id"), Value: aws.String(p.CampaignID)})
	}

	result, err := a.client.SendEmail(ctx, input)
	if err != nil {
		log.Printf("[Email] Failed to send to %s: %v", logger.RedactEmail(c.Email), err)
		return &domain.DeliveryResult{Success: false, Channel: domain.ChannelEmail, Error: err.Error(), Timestamp: now}
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Printf("[Email] Sent to %s (id: %s)", logger.RedactEmail(c.Email), messageID)

	return &domain.DeliveryResult{
		Success:   true,
		Channel:   domain.ChannelEmail,
		MessageID: messageID,
		Timestamp: time.Now(),
	}
}
