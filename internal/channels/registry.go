package channels

import "github.com/ignite/notify-engine/internal/domain"

// Registry holds the configured adapters in registration order. Order
// matters: eligible-channel enumeration and score tie-breaking both follow
// it. Duplicate registrations are ignored (insert-if-absent).
type Registry struct {
	order     []domain.Channel
	byChannel map[domain.Channel]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byChannel: make(map[domain.Channel]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter if its channel is not already present.
func (r *Registry) Register(a Adapter) {
	ch := a.Channel()
	if _, ok := r.byChannel[ch]; ok {
		return
	}
	r.byChannel[ch] = a
	r.order = append(r.order, ch)
}

// Get returns the adapter for the given channel.
func (r *Registry) Get(ch domain.Channel) (Adapter, bool) {
	a, ok := r.byChannel[ch]
	return a, ok
}

// Channels returns the registered channels in registration order.
func (r *Registry) Channels() []domain.Channel {
	out := make([]domain.Channel, len(r.order))
	copy(out, r.order)
	return out
}

// Adapters returns the registered adapters in registration order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, ch := range r.order {
		out = append(out, r.byChannel[ch])
	}
	return out
}
