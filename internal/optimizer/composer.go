package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ignite/notify-engine/internal/channels"
	"github.com/ignite/notify-engine/internal/domain"
	"github.com/ignite/notify-engine/internal/engagement"
)

// ContactStore loads contact records for recommendation runs.
type ContactStore interface {
	GetContact(ctx context.Context, id string) (*domain.Contact, error)
}

// preferredThreshold is the fraction of the top score a preferred channel
// must reach to override the recommendation.
const preferredThreshold = 0.7

// Composer produces a full channel recommendation for one contact: which
// channel to use, at what hour, with scores and an ordered reasoning
// trail for every decision made.
type Composer struct {
	contacts   ContactStore
	registry   *channels.Registry
	aggregator *engagement.Aggregator
	predictor  *Predictor
	now        func() time.Time
}

// NewComposer wires the recommendation composer.
func NewComposer(contacts ContactStore, registry *channels.Registry, aggregator *engagement.Aggregator, predictor *Predictor) *Composer {
	return &Composer{
		contacts:   contacts,
		registry:   registry,
		aggregator: aggregator,
		predictor:  predictor,
		now:        time.Now,
	}
}

// Recommend composes an optimization result for the contact. A missing
// contact yields the no-eligible-channels result rather than an error;
// store outages are returned so callers can degrade to their configured
// fallback order.
func (c *Composer) Recommend(ctx context.Context, contactID string, preferred domain.Channel) (*domain.OptimizationResult, error) {
	contact, err := c.contacts.GetContact(ctx, contactID)
	if err != nil && !errors.Is(err, domain.ErrContactNotFound) {
		return nil, fmt.Errorf("load contact %s: %w", contactID, err)
	}

	eligible := map[domain.Channel]bool{}
	if contact != nil {
		for _, adapter := range c.registry.Adapters() {
			if ok, _ := adapter.CheckEligibility(contact); ok {
				eligible[adapter.Channel()] = true
			}
		}
	}

	result := &domain.OptimizationResult{}
	if len(eligible) == 0 {
		result.RecommendedChannel = domain.ChannelEmail
		if email, ok := c.registry.Get(domain.ChannelEmail); ok {
			result.RecommendedHour = email.DefaultHour()
		}
		result.Reasoning = append(result.Reasoning, "no eligible channels; defaulting to email")
		return result, nil
	}
	result.Reasoning = append(result.Reasoning,
		"eligible channels: "+joinChannels(eligible, c.registry))

	// Score every registered channel, eligible or not, at one instant.
	now := c.now()
	totalSent := 0
	var ranked []domain.ChannelScore
	for _, adapter := range c.registry.Adapters() {
		ch := adapter.Channel()
		stats, err := c.aggregator.Aggregate(ctx, contactID, ch)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s history: %w", ch, err)
		}
		totalSent += stats.TotalSent
		ranked = append(ranked, ScoreChannel(ch, stats, eligible[ch], adapter.ClassPrior(), now))
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	result.ChannelScores = ranked

	var top domain.ChannelScore
	for _, s := range ranked {
		if eligible[s.Channel] {
			top = s
			break
		}
	}
	result.RecommendedChannel = top.Channel

	if preferred.Valid() && eligible[preferred] && preferred != top.Channel {
		if ps, ok := findScore(ranked, preferred); ok && float64(ps.Score) >= preferredThreshold*float64(top.Score) {
			result.RecommendedChannel = preferred
			result.Reasoning = append(result.Reasoning, fmt.Sprintf(
				"preferred channel %s (score %d) within %d%% of top score %d; honoring preference",
				preferred, ps.Score, int(preferredThreshold*100), top.Score))
		}
	}
	recommended, _ := findScore(ranked, result.RecommendedChannel)
	result.Reasoning = append(result.Reasoning, fmt.Sprintf(
		"recommended channel: %s (score %d, %s)", recommended.Channel, recommended.Score, recommended.Reason))

	if adapter, ok := c.registry.Get(result.RecommendedChannel); ok {
		result.RecommendedHour = c.predictor.PredictHour(ctx, contactID, adapter)
	}
	result.Reasoning = append(result.Reasoning, fmt.Sprintf(
		"recommended send hour: %02d:00", result.RecommendedHour))

	dataConfidence := 2 * totalSent
	if dataConfidence > 100 {
		dataConfidence = 100
	}
	result.Confidence = int(math.Round(float64(top.Score+dataConfidence) / 2))

	return result, nil
}

// RankedEligible returns the eligible channels of a result in descending
// score order, used by the fallback orchestrator as its recommendation
// order.
func RankedEligible(result *domain.OptimizationResult) []domain.Channel {
	var order []domain.Channel
	for _, s := range result.ChannelScores {
		if s.Reason == "channel unavailable" {
			continue
		}
		order = append(order, s.Channel)
	}
	return order
}

func findScore(scores []domain.ChannelScore, ch domain.Channel) (domain.ChannelScore, bool) {
	for _, s := range scores {
		if s.Channel == ch {
			return s, true
		}
	}
	return domain.ChannelScore{}, false
}

func joinChannels(set map[domain.Channel]bool, registry *channels.Registry) string {
	var names []string
	for _, ch := range registry.Channels() {
		if set[ch] {
			names = append(names, string(ch))
		}
	}
	return strings.Join(names, ", ")
}
