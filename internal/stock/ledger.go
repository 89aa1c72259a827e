package stock

import (
	"context"
	"sort"
)

// Store applies a signed delta to one counter atomically. A decrement that would
// take the counter below zero must fail with an InsufficientStockError and leave
// the counter untouched. Implementations run inside the caller's transaction.
type Store interface {
	ApplyDelta(ctx context.Context, key Key, delta int) (int, error)
}

// Ledger is the only writer of amenity stock counters.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Apply moves a single counter by delta and returns the new quantity.
func (l *Ledger) Apply(ctx context.Context, key Key, delta int) (int, error) {
	if !key.Kind.Valid() {
		return 0, ErrInvalidKind
	}
	if delta == 0 {
		return 0, ErrZeroDelta
	}
	return l.store.ApplyDelta(ctx, key, delta)
}

// Reconcile moves stock from the previously held selection to the next one and
// returns the stock deltas it applied. An unchanged selection touches nothing.
// Credits run before debits and each group runs in key order, keeping lock
// acquisition deterministic across writers.
func (l *Ledger) Reconcile(ctx context.Context, previous, next Selection) (Selection, error) {
	deltas := Diff(previous, next)
	for _, key := range orderedKeys(deltas) {
		if _, err := l.Apply(ctx, key, deltas[key]); err != nil {
			return nil, err
		}
	}
	return deltas, nil
}

// Release credits back everything in held.
func (l *Ledger) Release(ctx context.Context, held Selection) (Selection, error) {
	return l.Reconcile(ctx, held, nil)
}

// Diff returns the stock movement that takes a holder from previous to next:
// positive values return units to stock, negative values take them out.
// Counters dropped from next are credited their full previous quantity.
func Diff(previous, next Selection) Selection {
	deltas := make(Selection)
	for key, qty := range next {
		if d := previous[key] - qty; d != 0 {
			deltas[key] = d
		}
	}
	for key, qty := range previous {
		if _, kept := next[key]; !kept && qty != 0 {
			deltas[key] = qty
		}
	}
	return deltas
}

func orderedKeys(deltas Selection) []Key {
	keys := make([]Key, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := deltas[keys[i]] > 0, deltas[keys[j]] > 0
		if ci != cj {
			return ci
		}
		return keys[i].String() < keys[j].String()
	})
	return keys
}
