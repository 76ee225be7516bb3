package domain

// ScoreMetrics are the per-channel engagement rates behind a score, as
// whole percentages. ResponseRate is nil until a reply-tracking signal
// exists: it is "not yet measured", not a real zero, and must never feed
// the score weighting.
type ScoreMetrics struct {
	DeliveryRate int  `json:"delivery_rate"`
	OpenRate     int  `json:"open_rate"`
	ClickRate    int  `json:"click_rate"`
	ResponseRate *int `json:"response_rate,omitempty"`
	Recency      int  `json:"recency"`
}

// ChannelScore is a 0-100 rating of one channel for one contact, with a
// human-readable reason.
type ChannelScore struct {
	Channel Channel      `json:"channel"`
	Score   int          `json:"score"`
	Reason  string       `json:"reason"`
	Metrics ScoreMetrics `json:"metrics"`
}

// OptimizationResult is the composed recommendation for one contact.
// Reasoning is an ordered audit trail: every decision point that affected
// the outcome appends exactly one entry, in decision order.
type OptimizationResult struct {
	RecommendedChannel Channel        `json:"recommended_channel"`
	RecommendedHour    int            `json:"recommended_hour"`
	ChannelScores      []ChannelScore `json:"channel_scores"`
	Confidence         int            `json:"confidence"`
	Reasoning          []string       `json:"reasoning"`
}
