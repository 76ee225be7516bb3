// Package advisor asks an LLM on AWS Bedrock for a channel suggestion.
// The suggestion only influences candidate ordering downstream; it can
// never override eligibility or skip the fallback loop.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ignite/notify-engine/internal/domain"
)

// ModelInvoker is the slice of the Bedrock runtime client the advisor
// uses.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockAdvisor suggests a delivery channel via a Claude model on AWS
// Bedrock. All data stays within AWS.
type BedrockAdvisor struct {
	client  ModelInvoker
	modelID string
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Temperature      float64         `json:"temperature,omitempty"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

const systemPrompt = `You pick the single best notification channel for a contact.
Answer with exactly one word from: email, sms, chat, business.`

// NewBedrockAdvisor creates the advisor from the default AWS credential
// chain.
func NewBedrockAdvisor(ctx context.Context, region, modelID string) (*BedrockAdvisor, error) {
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if modelID == "" {
		modelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}
	log.Printf("[Advisor] Initialized with model=%s, region=%s", modelID, region)
	return &BedrockAdvisor{client: bedrockruntime.NewFromConfig(cfg), modelID: modelID}, nil
}

// NewBedrockAdvisorWithClient creates the advisor over an existing
// client, used by tests.
func NewBedrockAdvisorWithClient(client ModelInvoker, modelID string) *BedrockAdvisor {
	return &BedrockAdvisor{client: client, modelID: modelID}
}

// SuggestChannel asks the model for the best channel given the contact's
// eligible channels and scores. Any failure, or an answer outside the
// known channel set, returns an error; callers treat that as "no
// suggestion".
func (a *BedrockAdvisor) SuggestChannel(ctx context.Context, contact *domain.Contact, scores []domain.ChannelScore) (domain.Channel, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Contact %s. Channel scores:\n", contact.ID)
	for _, s := range scores {
		fmt.Fprintf(&sb, "- %s: %d (%s)\n", s.Channel, s.Score, s.Reason)
	}
	sb.WriteString("Which channel should this notification use?")

	body, err := json.Marshal(claudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        10,
		System:           systemPrompt,
		Messages: []claudeMessage{{
			Role:    "user",
			Content: []claudeBlock{{Type: "text", Text: sb.String()}},
		}},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshal advisor request: %w", err)
	}

	output, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(a.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("invoke model: %w", err)
	}

	var resp claudeResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return "", fmt.Errorf("decode advisor response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty advisor response")
	}

	answer := strings.ToLower(strings.TrimSpace(resp.Content[0].Text))
	ch, err := domain.ParseChannel(answer)
	if err != nil {
		return "", fmt.Errorf("advisor answered %q: %w", answer, err)
	}
	return ch, nil
}
