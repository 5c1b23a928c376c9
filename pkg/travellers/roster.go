// Package travellers keeps the roster of a travelling party in step with
// the desired number of travellers per category.
package travellers

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/staybook/pkg/observe"
	"github.com/mesh-intelligence/staybook/pkg/types"
)

// Event keys raised inside a roster batch.
const (
	EventAdd    = "add"
	EventRemove = "remove"
)

// Option configures a Roster.
type Option func(*Roster)

// WithFactory replaces types.NewTraveller as the source of blank records.
func WithFactory(f func(kind string) *types.Traveller) Option {
	return func(r *Roster) { r.factory = f }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Roster) { r.logger = l }
}

// Roster is an ordered list of travellers. It remembers, per category, the
// longest run of travellers it has seen, so that lowering a count and
// raising it again brings back the same records. A Roster is not safe for
// concurrent use.
type Roster struct {
	items   []*types.Traveller
	store   map[string][]*types.Traveller
	hub     *observe.Hub
	factory func(kind string) *types.Traveller
	logger  *zap.Logger
}

// New returns an empty roster.
func New(opts ...Option) *Roster {
	r := &Roster{
		store:   make(map[string][]*types.Traveller),
		hub:     observe.NewHub(),
		factory: types.NewTraveller,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mutate reshapes the roster so that every category in counts has exactly
// the requested number of travellers. Categories already in the roster but
// missing from counts are driven to zero. Records come back from the
// retention store before blank ones are created. Subscribers receive one
// batch per call, even when nothing changed.
//
// Negative counts fail with ErrNegativeCount before anything changes. The
// caller's map is not modified.
func (r *Roster) Mutate(counts map[string]int) error {
	for kind, n := range counts {
		if n < 0 {
			return fmt.Errorf("%w: %s=%d", types.ErrNegativeCount, kind, n)
		}
		if kind == "" {
			return fmt.Errorf("%w: empty traveller type", types.ErrInvalidValue)
		}
	}
	want := maps.Clone(counts)
	if want == nil {
		want = map[string]int{}
	}

	r.hub.Begin()
	defer r.hub.End()

	added, removed := 0, 0
	order, groups := r.group()
	for _, kind := range order {
		live := groups[kind]
		if cached, ok := r.store[kind]; !ok || len(cached) < len(live) {
			r.store[kind] = live
		}

		target := want[kind]
		if target > len(live) {
			next := len(live)
			for r.count(kind) < target {
				r.push(r.revive(kind, next))
				next++
				added++
			}
		} else {
			for r.count(kind) > target {
				if !r.RemoveType(kind) {
					break
				}
				removed++
			}
		}
		delete(want, kind)
	}

	for _, kind := range canonicalOrder(want) {
		for i := 0; i < want[kind]; i++ {
			r.push(r.factory(kind))
			added++
		}
	}

	r.logger.Debug("roster mutated",
		zap.Any("counts", counts),
		zap.Int("added", added),
		zap.Int("removed", removed),
		zap.Int("size", len(r.items)))
	return nil
}

// revive returns the stored traveller of kind at index i, or a blank one
// when the store has none there or that record is already on the roster.
func (r *Roster) revive(kind string, i int) *types.Traveller {
	if cached := r.store[kind]; i < len(cached) && cached[i] != nil && !r.contains(cached[i]) {
		return cached[i]
	}
	return r.factory(kind)
}

// RemoveType removes the last traveller of kind and reports whether one
// was found.
func (r *Roster) RemoveType(kind string) bool {
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].Type() == kind {
			t := r.items[i]
			r.items = slices.Delete(r.items, i, i+1)
			r.hub.Notify(observe.Event{Key: EventRemove, Old: t})
			return true
		}
	}
	return false
}

// Push appends travellers in order, notifying subscribers once.
func (r *Roster) Push(ts ...*types.Traveller) {
	r.hub.Batch(func() {
		for _, t := range ts {
			r.push(t)
		}
	})
}

func (r *Roster) push(t *types.Traveller) {
	r.items = append(r.items, t)
	r.hub.Notify(observe.Event{Key: EventAdd, New: t})
}

// ByType returns the travellers of kind in roster order.
func (r *Roster) ByType(kind string) []*types.Traveller {
	var out []*types.Traveller
	for _, t := range r.items {
		if t.Type() == kind {
			out = append(out, t)
		}
	}
	return out
}

// Group is the travellers of one category in roster order.
type Group struct {
	Type       string
	Travellers []*types.Traveller
}

// Groups returns the travellers grouped by category, categories in the
// order they first appear on the roster.
func (r *Roster) Groups() []Group {
	order, groups := r.group()
	out := make([]Group, 0, len(order))
	for _, kind := range order {
		out = append(out, Group{Type: kind, Travellers: groups[kind]})
	}
	return out
}

// group returns fresh per-category slices and the first-seen order.
func (r *Roster) group() ([]string, map[string][]*types.Traveller) {
	var order []string
	groups := make(map[string][]*types.Traveller)
	for _, t := range r.items {
		kind := t.Type()
		if _, ok := groups[kind]; !ok {
			order = append(order, kind)
		}
		groups[kind] = append(groups[kind], t)
	}
	return order, groups
}

// Counts returns the number of travellers per category.
func (r *Roster) Counts() map[string]int {
	out := make(map[string]int)
	for _, t := range r.items {
		out[t.Type()]++
	}
	return out
}

// All returns a copy of the roster in order.
func (r *Roster) All() []*types.Traveller {
	return slices.Clone(r.items)
}

// Len returns the number of travellers.
func (r *Roster) Len() int { return len(r.items) }

// Subscribe registers l for the batch delivered by every Mutate or Push.
func (r *Roster) Subscribe(l observe.Listener) observe.Subscription {
	return r.hub.Subscribe(observe.Wildcard, l)
}

// Unsubscribe removes a listener installed with Subscribe.
func (r *Roster) Unsubscribe(s observe.Subscription) bool {
	return r.hub.Unsubscribe(s)
}

func (r *Roster) count(kind string) int {
	n := 0
	for _, t := range r.items {
		if t.Type() == kind {
			n++
		}
	}
	return n
}

func (r *Roster) contains(t *types.Traveller) bool {
	return slices.Contains(r.items, t)
}

// canonicalOrder lists the categories of counts with the known traveller
// types first, in display order, then the rest by name.
func canonicalOrder(counts map[string]int) []string {
	rank := make(map[string]int, len(types.KnownTravellerTypes))
	for i, k := range types.KnownTravellerTypes {
		rank[k] = i
	}
	kinds := slices.Collect(maps.Keys(counts))
	sort.Slice(kinds, func(i, j int) bool {
		ri, iok := rank[kinds[i]]
		rj, jok := rank[kinds[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return kinds[i] < kinds[j]
		}
	})
	return kinds
}
