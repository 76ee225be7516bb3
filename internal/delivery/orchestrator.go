// Package delivery runs the multi-channel fallback loop: try the
// requested channel, then fall through recommendation order and the
// configured fallback order until a send lands or every candidate is
// exhausted.
package delivery

import (
	"context"
	"log"
	"time"

	"github.com/ignite/notify-engine/internal/channels"
	"github.com/ignite/notify-engine/internal/config"
	"github.com/ignite/notify-engine/internal/domain"
	"github.com/ignite/notify-engine/internal/optimizer"
	"github.com/ignite/notify-engine/internal/pkg/distlock"
)

// ContactStore loads contact records for delivery runs.
type ContactStore interface {
	GetContact(ctx context.Context, id string) (*domain.Contact, error)
}

// Recommender composes channel recommendations; the orchestrator only
// consumes the ranked ordering.
type Recommender interface {
	Recommend(ctx context.Context, contactID string, preferred domain.Channel) (*domain.OptimizationResult, error)
}

// ChannelAdvisor optionally suggests one extra candidate. The suggestion
// influences ordering only; it can never bypass eligibility.
type ChannelAdvisor interface {
	SuggestChannel(ctx context.Context, contact *domain.Contact, scores []domain.ChannelScore) (domain.Channel, error)
}

// Options is the per-call delivery policy. The zero value is unusable;
// derive it from config via OptionsFromConfig and override per call.
type Options struct {
	MaxRetries      int
	RetryDelay      time.Duration
	SendTimeout     time.Duration
	BatchPause      time.Duration
	FallbackOrder   []domain.Channel
	UseOptimization bool
	LogAllAttempts  bool
}

// OptionsFromConfig converts the configured fallback policy into run
// options.
func OptionsFromConfig(cfg config.FallbackConfig) Options {
	opts := Options{
		MaxRetries:      cfg.MaxRetries,
		RetryDelay:      cfg.RetryDelay(),
		SendTimeout:     cfg.SendTimeout(),
		BatchPause:      cfg.BatchPause(),
		UseOptimization: cfg.Optimize(),
		LogAllAttempts:  cfg.LogAll(),
	}
	for _, name := range cfg.Order {
		if ch, err := domain.ParseChannel(name); err == nil {
			opts.FallbackOrder = append(opts.FallbackOrder, ch)
		}
	}
	return opts
}

// lockTTL bounds how long a per-contact delivery lock may outlive a
// crashed process.
const lockTTL = 2 * time.Minute

// Orchestrator coordinates eligibility checks, payload adaptation,
// retries and channel fallback for one delivery call at a time.
type Orchestrator struct {
	contacts    ContactStore
	registry    *channels.Registry
	recommender Recommender
	advisor     ChannelAdvisor
	recorder    *Recorder
	locks       distlock.Factory
	defaults    Options

	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires the delivery orchestrator. recommender and
// recorder may be nil; the orchestrator degrades to the configured
// fallback order and skips persistence respectively.
func NewOrchestrator(contacts ContactStore, registry *channels.Registry, recommender Recommender, recorder *Recorder, defaults Options) *Orchestrator {
	return &Orchestrator{
		contacts:    contacts,
		registry:    registry,
		recommender: recommender,
		recorder:    recorder,
		defaults:    defaults,
		sleep:       sleepCtx,
	}
}

// Defaults returns a copy of the configured delivery policy, for
// callers that override individual fields per call.
func (o *Orchestrator) Defaults() Options {
	opts := o.defaults
	opts.FallbackOrder = append([]domain.Channel(nil), o.defaults.FallbackOrder...)
	return opts
}

// WithAdvisor attaches the optional LLM channel advisor.
func (o *Orchestrator) WithAdvisor(a ChannelAdvisor) *Orchestrator {
	o.advisor = a
	return o
}

// WithLocks attaches a per-contact lock factory. Lock acquisition
// failure is logged and delivery proceeds; the lock is a courtesy guard
// against cross-process duplicates, not a correctness requirement.
func (o *Orchestrator) WithLocks(f distlock.Factory) *Orchestrator {
	o.locks = f
	return o
}

// Deliver sends on the payload's channel only, with no fallback. The
// outcome is recorded to message history either way.
func (o *Orchestrator) Deliver(ctx context.Context, payload *domain.DeliveryPayload) *domain.DeliveryResult {
	contact, err := o.contacts.GetContact(ctx, payload.ContactID)
	if err != nil {
		res := failResult(payload.Channel, "contact lookup: "+err.Error())
		o.recorder.RecordOutcome(ctx, payload, res)
		return res
	}
	adapter, ok := o.registry.Get(payload.Channel)
	if !ok {
		res := failResult(payload.Channel, "unknown channel: "+string(payload.Channel))
		o.recorder.RecordOutcome(ctx, payload, res)
		return res
	}
	if ok, reason := adapter.CheckEligibility(contact); !ok {
		res := failResult(payload.Channel, "ineligible: "+reason)
		o.recorder.RecordOutcome(ctx, payload, res)
		return res
	}

	adapted := *payload
	adapter.AdaptPayload(&adapted)
	if err := adapter.ValidatePayload(&adapted); err != nil {
		res := failResult(payload.Channel, "invalid payload: "+err.Error())
		o.recorder.RecordOutcome(ctx, payload, res)
		return res
	}

	res := o.sendOnce(ctx, adapter, contact, &adapted)
	o.recorder.RecordOutcome(ctx, payload, res)
	return res
}

// DeliverWithFallback runs the full candidate loop. opts nil means the
// configured defaults.
func (o *Orchestrator) DeliverWithFallback(ctx context.Context, payload *domain.DeliveryPayload, opts *Options) *domain.FallbackResult {
	options := o.defaults
	if opts != nil {
		options = *opts
	}

	unlock := o.acquireLock(ctx, payload.ContactID)
	defer unlock()

	contact := o.loadContact(ctx, payload.ContactID)
	candidates := o.buildCandidates(ctx, contact, payload, options)
	result := o.run(ctx, contact, payload, candidates, options)

	o.recorder.RecordFallback(ctx, payload, result)
	return result
}

// DeliverByPriority runs the fallback loop over a caller-supplied
// priority order, with optimization off.
func (o *Orchestrator) DeliverByPriority(ctx context.Context, payload *domain.DeliveryPayload, order []domain.Channel) *domain.FallbackResult {
	options := o.defaults
	options.UseOptimization = false

	unlock := o.acquireLock(ctx, payload.ContactID)
	defer unlock()

	set := newOrderedSet()
	for _, ch := range order {
		set.add(ch)
	}

	contact := o.loadContact(ctx, payload.ContactID)
	result := o.run(ctx, contact, payload, set.channels(), options)

	o.recorder.RecordFallback(ctx, payload, result)
	return result
}

// BatchDeliverWithFallback processes payloads strictly one at a time
// with a courtesy pause between sends. Cancellation stops the batch
// early and returns the results gathered so far.
func (o *Orchestrator) BatchDeliverWithFallback(ctx context.Context, payloads []*domain.DeliveryPayload, opts *Options) []*domain.FallbackResult {
	options := o.defaults
	if opts != nil {
		options = *opts
	}

	results := make([]*domain.FallbackResult, 0, len(payloads))
	for i, payload := range payloads {
		if ctx.Err() != nil {
			log.Printf("[Fallback] Batch cancelled after %d of %d payloads", i, len(payloads))
			break
		}
		if i > 0 && options.BatchPause > 0 {
			if err := o.sleep(ctx, options.BatchPause); err != nil {
				break
			}
		}
		results = append(results, o.DeliverWithFallback(ctx, payload, &options))
	}
	return results
}

// SelectOptimalChannel returns the first eligible channel in preference
// order: the caller's preference first, then chat, business, sms, email.
func (o *Orchestrator) SelectOptimalChannel(ctx context.Context, contactID string, preferred domain.Channel) (domain.Channel, error) {
	contact, err := o.contacts.GetContact(ctx, contactID)
	if err != nil {
		return "", err
	}

	set := newOrderedSet()
	set.add(preferred)
	set.add(domain.ChannelChat)
	set.add(domain.ChannelBusiness)
	set.add(domain.ChannelSMS)
	set.add(domain.ChannelEmail)

	for _, ch := range set.channels() {
		adapter, ok := o.registry.Get(ch)
		if !ok {
			continue
		}
		if ok, _ := adapter.CheckEligibility(contact); ok {
			return ch, nil
		}
	}
	return "", domain.ErrNoEligibleChannel
}

// runState is the orchestrator's position in one fallback run.
type runState int

const (
	stateInit runState = iota
	stateCandidateSelected
	stateAttempting
	stateRetryWait
	stateNextCandidate
	stateDoneSuccess
	stateDoneExhausted
)

// run drives the candidate/retry state machine. Bounded: at most
// len(candidates) × (MaxRetries+1) sends.
func (o *Orchestrator) run(ctx context.Context, contact *domain.Contact, payload *domain.DeliveryPayload, candidates []domain.Channel, opts Options) *domain.FallbackResult {
	result := &domain.FallbackResult{}
	requested := payload.Channel

	// One working copy per run: adapters back-fill channel bodies on it so
	// the cascade carries across candidates.
	adapted := *payload

	var (
		state     = stateInit
		idx       int
		attempt   int
		current   channels.Adapter
		lastSend  *domain.DeliveryResult
		cancelled bool
	)

	for {
		switch state {
		case stateInit:
			idx = 0
			state = stateCandidateSelected

		case stateCandidateSelected:
			if idx >= len(candidates) {
				state = stateDoneExhausted
				continue
			}
			if ctx.Err() != nil {
				cancelled = true
				state = stateDoneExhausted
				continue
			}
			ch := candidates[idx]
			adapter, ok := o.registry.Get(ch)
			if !ok {
				log.Printf("[Fallback] Skipping unregistered channel %s", ch)
				state = stateNextCandidate
				continue
			}
			if reason := eligibilityReason(contact, adapter); reason != "" {
				log.Printf("[Fallback] Skipping %s for contact %s: %s", ch, payload.ContactID, reason)
				if opts.LogAllAttempts {
					result.Attempts = append(result.Attempts, domain.DeliveryAttempt{
						Channel: ch, Success: false,
						Error:     "ineligible: " + reason,
						Timestamp: time.Now(),
					})
				}
				state = stateNextCandidate
				continue
			}
			adapter.AdaptPayload(&adapted)
			if err := adapter.ValidatePayload(&adapted); err != nil {
				log.Printf("[Fallback] Invalid payload for %s: %v", ch, err)
				result.Attempts = append(result.Attempts, domain.DeliveryAttempt{
					Channel: ch, Success: false,
					Error:     "invalid payload: " + err.Error(),
					Timestamp: time.Now(),
				})
				state = stateNextCandidate
				continue
			}
			current = adapter
			attempt = 0
			state = stateAttempting

		case stateAttempting:
			lastSend = o.sendWithTimeout(ctx, current, contact, &adapted, opts.SendTimeout)
			if lastSend.Success {
				result.Attempts = append(result.Attempts, domain.DeliveryAttempt{
					Channel: current.Channel(), Success: true,
					Timestamp: lastSend.Timestamp, RetryCount: attempt,
				})
				state = stateDoneSuccess
				continue
			}
			log.Printf("[Fallback] Send failed on %s (attempt %d/%d): %s",
				current.Channel(), attempt+1, opts.MaxRetries+1, lastSend.Error)
			if attempt < opts.MaxRetries && ctx.Err() == nil {
				state = stateRetryWait
				continue
			}
			result.Attempts = append(result.Attempts, domain.DeliveryAttempt{
				Channel: current.Channel(), Success: false,
				Error: lastSend.Error, Timestamp: lastSend.Timestamp, RetryCount: attempt,
			})
			state = stateNextCandidate

		case stateRetryWait:
			// Linear backoff, scaled by the attempt that just failed.
			if err := o.sleep(ctx, opts.RetryDelay*time.Duration(attempt+1)); err != nil {
				result.Attempts = append(result.Attempts, domain.DeliveryAttempt{
					Channel: current.Channel(), Success: false,
					Error: lastSend.Error, Timestamp: lastSend.Timestamp, RetryCount: attempt,
				})
				cancelled = true
				state = stateDoneExhausted
				continue
			}
			attempt++
			state = stateAttempting

		case stateNextCandidate:
			idx++
			state = stateCandidateSelected

		case stateDoneSuccess:
			result.DeliveryResult = *lastSend
			result.FinalChannel = lastSend.Channel
			result.FallbackUsed = lastSend.Channel != requested
			result.TotalAttempts = countAttempts(result.Attempts)
			return result

		case stateDoneExhausted:
			result.Success = false
			result.Channel = requested
			result.Error = "all delivery channels exhausted"
			if cancelled {
				result.Error = "delivery cancelled"
			}
			result.Timestamp = time.Now()
			result.FinalChannel = requested
			if n := len(result.Attempts); n > 0 {
				result.FinalChannel = result.Attempts[n-1].Channel
			}
			result.TotalAttempts = countAttempts(result.Attempts)
			return result
		}
	}
}

// buildCandidates assembles the dedup'd candidate order: requested
// channel, advisor suggestion, recommendation ranking, configured
// fallback order.
func (o *Orchestrator) buildCandidates(ctx context.Context, contact *domain.Contact, payload *domain.DeliveryPayload, opts Options) []domain.Channel {
	set := newOrderedSet()
	set.add(payload.Channel)

	if opts.UseOptimization && o.recommender != nil {
		rec, err := o.recommender.Recommend(ctx, payload.ContactID, payload.Channel)
		if err != nil {
			log.Printf("[Fallback] Optimization unavailable for contact %s, using configured order: %v",
				payload.ContactID, err)
		} else {
			if o.advisor != nil && contact != nil {
				if ch, err := o.advisor.SuggestChannel(ctx, contact, rec.ChannelScores); err != nil {
					log.Printf("[Fallback] Advisor unavailable: %v", err)
				} else {
					set.add(ch)
				}
			}
			for _, ch := range optimizer.RankedEligible(rec) {
				set.add(ch)
			}
		}
	}
	for _, ch := range opts.FallbackOrder {
		set.add(ch)
	}
	return set.channels()
}

func (o *Orchestrator) loadContact(ctx context.Context, contactID string) *domain.Contact {
	contact, err := o.contacts.GetContact(ctx, contactID)
	if err != nil {
		log.Printf("[Fallback] Contact lookup failed for %s: %v", contactID, err)
		return nil
	}
	return contact
}

func (o *Orchestrator) acquireLock(ctx context.Context, contactID string) func() {
	if o.locks == nil || contactID == "" {
		return func() {}
	}
	lock := o.locks.LockFor("delivery:contact:"+contactID, lockTTL)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		log.Printf("[Fallback] Lock acquisition failed for contact %s, proceeding: %v", contactID, err)
		return func() {}
	}
	if !ok {
		log.Printf("[Fallback] Delivery already in flight for contact %s, proceeding unlocked", contactID)
		return func() {}
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Printf("[Fallback] Lock release failed for contact %s: %v", contactID, err)
		}
	}
}

func (o *Orchestrator) sendOnce(ctx context.Context, adapter channels.Adapter, contact *domain.Contact, payload *domain.DeliveryPayload) *domain.DeliveryResult {
	return o.sendWithTimeout(ctx, adapter, contact, payload, o.defaults.SendTimeout)
}

func (o *Orchestrator) sendWithTimeout(ctx context.Context, adapter channels.Adapter, contact *domain.Contact, payload *domain.DeliveryPayload, timeout time.Duration) *domain.DeliveryResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return adapter.Send(ctx, contact, payload)
}

func eligibilityReason(contact *domain.Contact, adapter channels.Adapter) string {
	if contact == nil {
		return "contact not found"
	}
	if ok, reason := adapter.CheckEligibility(contact); !ok {
		return reason
	}
	return ""
}

func failResult(ch domain.Channel, msg string) *domain.DeliveryResult {
	return &domain.DeliveryResult{Success: false, Channel: ch, Error: msg, Timestamp: time.Now()}
}

// countAttempts counts channel-level tries including folded retries;
// skipped candidates count once.
func countAttempts(attempts []domain.DeliveryAttempt) int {
	total := 0
	for _, a := range attempts {
		total += a.RetryCount + 1
	}
	return total
}

// orderedSet is an insertion-ordered channel set for candidate
// deduplication.
type orderedSet struct {
	seen map[domain.Channel]bool
	list []domain.Channel
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[domain.Channel]bool)}
}

func (s *orderedSet) add(ch domain.Channel) {
	if !ch.Valid() || s.seen[ch] {
		return
	}
	s.seen[ch] = true
	s.list = append(s.list, ch)
}

func (s *orderedSet) channels() []domain.Channel { return s.list }

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
