// Package bridge owns the state store and fans its events out to filtered
// subscriptions. Mutation, publish, subscribe and unsubscribe share one
// exclusion scope, so a subscription's snapshot and its live events never
// overlap or leave a gap.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/typester/riverql/internal/state"
)

const defaultSubscriberBufCap = 256

// ErrNotFound is returned when a request names an output that is not live.
var ErrNotFound = errors.New("not found")

// Options configures a Bridge.
type Options struct {
	// Buffer is the per-subscription channel capacity.
	Buffer int
	// RequireOutput makes output-scoped subscriptions fail with ErrNotFound
	// when the output is not live at subscribe time.
	RequireOutput bool
	Logger        pslog.Logger
}

// Bridge serializes access to the state store and the subscription registry.
type Bridge struct {
	mu            sync.RWMutex
	store         *state.Store
	subs          map[string]*Subscription
	buffer        int
	requireOutput bool
	log           pslog.Logger
}

// Subscription is one live, filtered registration.
type Subscription struct {
	ID      string
	Filter  Filter
	TagList bool

	events chan state.Event
}

// Events returns the channel live events are delivered on. It is closed when
// the subscription is removed or evicted.
func (s *Subscription) Events() <-chan state.Event {
	return s.events
}

// New creates a bridge around an empty store.
func New(opts Options) *Bridge {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultSubscriberBufCap
	}
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(context.Background())
	}
	return &Bridge{
		store:         state.NewStore(),
		subs:          make(map[string]*Subscription),
		buffer:        opts.Buffer,
		requireOutput: opts.RequireOutput,
		log:           opts.Logger,
	}
}

// Apply mutates the store and publishes the resulting events, in order, to
// every matching subscription.
func (b *Bridge) Apply(cmd state.Command) ([]state.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	events, err := b.store.Apply(cmd)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		b.publish(ev)
	}
	return events, nil
}

// publish must be called with b.mu held.
func (b *Bridge) publish(ev state.Event) {
	b.log.Debug("event", "kind", ev.Kind, "output", ev.OutputName, "seat", ev.SeatID)
	for id, sub := range b.subs {
		if !sub.Filter.Match(ev) {
			continue
		}
		select {
		case sub.events <- ev:
		default:
			// Subscriber overrun: treat as a disconnect.
			delete(b.subs, id)
			close(sub.events)
			b.log.Info("subscriber evicted", "sub", id, "reason", "overrun", "buffer", b.buffer)
		}
	}
}

// Subscribe registers a subscription and returns it along with the snapshot
// of current state matching the filter.
func (b *Bridge) Subscribe(filter Filter, tagList bool) (*Subscription, []state.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.requireOutput && filter.OutputName != "" {
		if _, ok := b.store.Output(filter.OutputName); !ok {
			return nil, nil, fmt.Errorf("output %q: %w", filter.OutputName, ErrNotFound)
		}
	}

	var snapshot []state.Event
	for _, ev := range b.store.Snapshot() {
		if filter.Match(ev) {
			snapshot = append(snapshot, ev)
		}
	}

	sub := &Subscription{
		ID:      uuid.New().String(),
		Filter:  filter,
		TagList: tagList,
		events:  make(chan state.Event, b.buffer),
	}
	b.subs[sub.ID] = sub
	b.log.Debug("subscribe", "sub", sub.ID, "output", filter.OutputName, "subs", len(b.subs))
	return sub, snapshot, nil
}

// Unsubscribe removes a subscription. Unsubscribing twice, or after
// eviction, is a no-op.
func (b *Bridge) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if current, ok := b.subs[sub.ID]; ok && current == sub {
		delete(b.subs, sub.ID)
		close(sub.events)
		b.log.Debug("unsubscribe", "sub", sub.ID, "subs", len(b.subs))
	}
}

// Subscribers returns the number of registered subscriptions.
func (b *Bridge) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Outputs returns all live outputs ordered by id.
func (b *Bridge) Outputs() []state.Output {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Outputs()
}

// Output returns the live output with the given name.
func (b *Bridge) Output(name string) (state.Output, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.Output(name)
}

// SeatFocusedOutput returns the output focused by the default seat.
func (b *Bridge) SeatFocusedOutput() (state.Output, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seat, ok := b.store.DefaultSeat()
	if !ok {
		return state.Output{}, false
	}
	return b.store.SeatFocusedOutput(seat.ID)
}

// DefaultSeat returns the live seat with the lowest id.
func (b *Bridge) DefaultSeat() (state.Seat, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store.DefaultSeat()
}
