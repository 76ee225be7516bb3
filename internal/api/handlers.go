// Package api exposes the delivery engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/notify-engine/internal/delivery"
	"github.com/ignite/notify-engine/internal/domain"
	"github.com/ignite/notify-engine/internal/eligibility"
	"github.com/ignite/notify-engine/internal/pkg/httputil"
)

// Recommender composes channel recommendations for the recommendation
// endpoint.
type Recommender interface {
	Recommend(ctx context.Context, contactID string, preferred domain.Channel) (*domain.OptimizationResult, error)
}

// StatsStore serves the tenant-wide reporting endpoint.
type StatsStore interface {
	ChannelStats(ctx context.Context, tenantID string) (map[domain.Channel]domain.ChannelTotals, error)
}

// Handlers bundles the HTTP handlers and their collaborators.
type Handlers struct {
	gate         *eligibility.Gate
	recommender  Recommender
	orchestrator *delivery.Orchestrator
	stats        StatsStore
}

// NewHandlers creates the API handlers.
func NewHandlers(gate *eligibility.Gate, recommender Recommender, orchestrator *delivery.Orchestrator, stats StatsStore) *Handlers {
	return &Handlers{gate: gate, recommender: recommender, orchestrator: orchestrator, stats: stats}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "healthy"})
}

// CheckEligibility handles GET /api/eligibility?contact_id=&channel=
func (h *Handlers) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	contactID := r.URL.Query().Get("contact_id")
	if contactID == "" {
		httputil.BadRequest(w, "contact_id is required")
		return
	}
	ch, err := domain.ParseChannel(r.URL.Query().Get("channel"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, h.gate.Check(r.Context(), contactID, ch))
}

// GetRecommendation handles GET /api/recommendation?contact_id=&preferred=
func (h *Handlers) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	contactID := r.URL.Query().Get("contact_id")
	if contactID == "" {
		httputil.BadRequest(w, "contact_id is required")
		return
	}
	var preferred domain.Channel
	if p := r.URL.Query().Get("preferred"); p != "" {
		ch, err := domain.ParseChannel(p)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		preferred = ch
	}

	result, err := h.recommender.Recommend(r.Context(), contactID, preferred)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, result)
}

// Deliver handles POST /api/deliver
func (h *Handlers) Deliver(w http.ResponseWriter, r *http.Request) {
	var payload domain.DeliveryPayload
	if !httputil.Decode(w, r, &payload) {
		return
	}
	if msg := validatePayload(&payload); msg != "" {
		httputil.BadRequest(w, msg)
		return
	}
	httputil.OK(w, h.orchestrator.Deliver(r.Context(), &payload))
}

type fallbackRequest struct {
	Payload domain.DeliveryPayload `json:"payload"`
	Config  *fallbackConfig        `json:"config,omitempty"`
}

type batchRequest struct {
	Payloads []*domain.DeliveryPayload `json:"payloads"`
	Config   *fallbackConfig           `json:"config,omitempty"`
}

// fallbackConfig is the wire form of per-call policy overrides; absent
// fields keep the configured defaults.
type fallbackConfig struct {
	MaxRetries      *int     `json:"max_retries,omitempty"`
	RetryDelayMs    *int     `json:"retry_delay_ms,omitempty"`
	Order           []string `json:"order,omitempty"`
	UseOptimization *bool    `json:"use_optimization,omitempty"`
	LogAllAttempts  *bool    `json:"log_all_attempts,omitempty"`
}

func (h *Handlers) applyOverrides(cfg *fallbackConfig) *delivery.Options {
	if cfg == nil {
		return nil
	}
	opts := h.orchestrator.Defaults()
	if cfg.MaxRetries != nil {
		opts.MaxRetries = *cfg.MaxRetries
	}
	if cfg.RetryDelayMs != nil {
		opts.RetryDelay = millis(*cfg.RetryDelayMs)
	}
	if len(cfg.Order) > 0 {
		opts.FallbackOrder = nil
		for _, name := range cfg.Order {
			if ch, err := domain.ParseChannel(name); err == nil {
				opts.FallbackOrder = append(opts.FallbackOrder, ch)
			}
		}
	}
	if cfg.UseOptimization != nil {
		opts.UseOptimization = *cfg.UseOptimization
	}
	if cfg.LogAllAttempts != nil {
		opts.LogAllAttempts = *cfg.LogAllAttempts
	}
	return &opts
}

// DeliverWithFallback handles POST /api/deliver/fallback
func (h *Handlers) DeliverWithFallback(w http.ResponseWriter, r *http.Request) {
	var req fallbackRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if msg := validatePayload(&req.Payload); msg != "" {
		httputil.BadRequest(w, msg)
		return
	}
	httputil.OK(w, h.orchestrator.DeliverWithFallback(r.Context(), &req.Payload, h.applyOverrides(req.Config)))
}

// BatchDeliver handles POST /api/deliver/batch
func (h *Handlers) BatchDeliver(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Payloads) == 0 {
		httputil.BadRequest(w, "payloads is required")
		return
	}
	for _, p := range req.Payloads {
		if msg := validatePayload(p); msg != "" {
			httputil.BadRequest(w, msg)
			return
		}
	}

	results := h.orchestrator.BatchDeliverWithFallback(r.Context(), req.Payloads, h.applyOverrides(req.Config))
	httputil.OK(w, map[string]any{
		"results": results,
		"summary": delivery.CalculateSuccessRate(results),
	})
}

// ChannelStats handles GET /api/channels/stats?tenant_id=
func (h *Handlers) ChannelStats(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		httputil.BadRequest(w, "tenant_id is required")
		return
	}
	stats, err := h.stats.ChannelStats(r.Context(), tenantID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func validatePayload(p *domain.DeliveryPayload) string {
	if p == nil || p.ContactID == "" {
		return "contact_id is required"
	}
	if !p.Channel.Valid() {
		return "unknown channel"
	}
	return ""
}
