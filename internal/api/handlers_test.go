package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ignite/notify-engine/internal/channels"
	"github.com/ignite/notify-engine/internal/delivery"
	"github.com/ignite/notify-engine/internal/domain"
	"github.com/ignite/notify-engine/internal/eligibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubContacts struct{ contacts map[string]*domain.Contact }

func (s *stubContacts) GetContact(_ context.Context, id string) (*domain.Contact, error) {
	c, ok := s.contacts[id]
	if !ok {
		return nil, domain.ErrContactNotFound
	}
	return c, nil
}

type stubAdapter struct {
	channel domain.Channel
	fail    bool
}

func (s *stubAdapter) Channel() domain.Channel { return s.channel }

func (s *stubAdapter) CheckEligibility(c *domain.Contact) (bool, string) {
	if c.AddressFor(s.channel) == "" {
		return false, string(s.channel) + " address not registered"
	}
	if !c.OptedIn(s.channel) {
		return false, string(s.channel) + " delivery opted out"
	}
	return true, ""
}

func (s *stubAdapter) AdaptPayload(*domain.DeliveryPayload) {}

func (s *stubAdapter) ValidatePayload(*domain.DeliveryPayload) error { return nil }

func (s *stubAdapter) ClassPrior() int { return 50 }

func (s *stubAdapter) DefaultHour() int { return 12 }

func (s *stubAdapter) ClampHour(h int) int { return h }

func (s *stubAdapter) Send(context.Context, *domain.Contact, *domain.DeliveryPayload) *domain.DeliveryResult {
	if s.fail {
		return &domain.DeliveryResult{Success: false, Channel: s.channel, Error: "provider down", Timestamp: time.Now()}
	}
	return &domain.DeliveryResult{Success: true, Channel: s.channel, MessageID: "m1", Timestamp: time.Now()}
}

type stubRecommender struct{ result *domain.OptimizationResult }

func (s *stubRecommender) Recommend(context.Context, string, domain.Channel) (*domain.OptimizationResult, error) {
	return s.result, nil
}

type stubStats struct{ stats map[domain.Channel]domain.ChannelTotals }

func (s *stubStats) ChannelStats(context.Context, string) (map[domain.Channel]domain.ChannelTotals, error) {
	return s.stats, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	contacts := &stubContacts{contacts: map[string]*domain.Contact{
		"c1": {
			ID: "c1", TenantID: "t1",
			Email: "a@b.com", EmailOptIn: true,
			ChatUserID: "U1", ChatOptIn: true,
		},
	}}
	registry := channels.NewRegistry(
		&stubAdapter{channel: domain.ChannelEmail, fail: true},
		&stubAdapter{channel: domain.ChannelChat},
	)
	gate := eligibility.NewGate(contacts, registry)
	recommender := &stubRecommender{result: &domain.OptimizationResult{
		RecommendedChannel: domain.ChannelChat,
		RecommendedHour:    20,
		Confidence:         35,
		ChannelScores: []domain.ChannelScore{
			{Channel: domain.ChannelChat, Score: 70, Reason: "default score (insufficient data)"},
		},
	}}

	opts := delivery.Options{
		MaxRetries:     0,
		RetryDelay:     time.Millisecond,
		FallbackOrder:  []domain.Channel{domain.ChannelChat, domain.ChannelEmail},
		LogAllAttempts: true,
	}
	orchestrator := delivery.NewOrchestrator(contacts, registry, recommender, nil, opts)

	stats := &stubStats{stats: map[domain.Channel]domain.ChannelTotals{
		domain.ChannelEmail: {Sent: 10, Delivered: 9},
	}}

	return SetupRoutes(NewHandlers(gate, recommender, orchestrator, stats))
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestCheckEligibilityEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/eligibility?contact_id=c1&channel=chat", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res eligibility.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Eligible)

	// Unknown contact is a verdict, not an error
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/eligibility?contact_id=ghost&channel=chat", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Eligible)
	assert.Equal(t, "contact not found", res.Reason)
}

func TestCheckEligibilityValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/eligibility?channel=chat", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/eligibility?contact_id=c1&channel=fax", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRecommendationEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/recommendation?contact_id=c1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.OptimizationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, domain.ChannelChat, res.RecommendedChannel)
	assert.Equal(t, 35, res.Confidence)
}

func TestDeliverEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"contact_id":"c1","channel":"chat","chat_message":"hi"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/deliver", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.DeliveryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "m1", res.MessageID)
}

func TestDeliverValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/deliver", strings.NewReader(`{"channel":"chat"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/deliver", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeliverWithFallbackEndpoint(t *testing.T) {
	router := newTestRouter(t)

	// Email adapter always fails; chat picks it up
	body := `{"payload":{"contact_id":"c1","channel":"email","subject":"s","text_content":"t"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/deliver/fallback", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.FallbackResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, domain.ChannelChat, res.FinalChannel)
	assert.True(t, res.FallbackUsed)
}

func TestBatchDeliverEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"payloads":[
		{"contact_id":"c1","channel":"chat","chat_message":"1"},
		{"contact_id":"ghost","channel":"chat","chat_message":"2"}
	],"config":{"max_retries":0}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/deliver/batch", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Results []domain.FallbackResult `json:"results"`
		Summary domain.BatchSummary     `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Results, 2)
	assert.Equal(t, 1, res.Summary.Successful)
	assert.Equal(t, 1, res.Summary.Failed)
}

func TestBatchDeliverValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/deliver/batch", strings.NewReader(`{"payloads":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChannelStatsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/channels/stats?tenant_id=t1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res map[domain.Channel]domain.ChannelTotals
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 10, res[domain.ChannelEmail].Sent)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/channels/stats", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
