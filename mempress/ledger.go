package mempress

import (
	"errors"
	"slices"
)

var (
	// ErrNotAllocated is returned when releasing a key that was never
	// allocated.
	ErrNotAllocated = errors.New("release of a key that was never allocated")

	// ErrOverRelease is returned when releasing a key whose count is
	// already zero.
	ErrOverRelease = errors.New("release of a key with no outstanding allocation")
)

// LedgerEntry is one key of a ledger with its count.
type LedgerEntry[K comparable] struct {
	Key   K
	Count int
}

// Ledger is a reference count per key that remembers the order in which
// keys were first inserted.
type Ledger[K comparable] struct {
	counts     map[K]int
	order      []K
	dropOnZero bool
}

// NewLedger creates an empty ledger. If dropOnZero is set, a key is removed
// as soon as its count returns to zero; otherwise it stays with count 0.
func NewLedger[K comparable](dropOnZero bool) *Ledger[K] {
	return &Ledger[K]{
		counts:     make(map[K]int),
		dropOnZero: dropOnZero,
	}
}

// Acquire increments the count of key and returns the new count.
func (l *Ledger[K]) Acquire(key K) int {
	n, ok := l.counts[key]
	if !ok {
		l.order = append(l.order, key)
	}

	l.counts[key] = n + 1

	return n + 1
}

// Release decrements the count of key and returns the new count.
func (l *Ledger[K]) Release(key K) (int, error) {
	n, ok := l.counts[key]
	if !ok {
		return 0, ErrNotAllocated
	}

	if n <= 0 {
		return n, ErrOverRelease
	}

	n--
	if n == 0 && l.dropOnZero {
		l.remove(key)
		return 0, nil
	}

	l.counts[key] = n

	return n, nil
}

func (l *Ledger[K]) remove(key K) {
	delete(l.counts, key)

	if i := slices.Index(l.order, key); i >= 0 {
		l.order = slices.Delete(l.order, i, i+1)
	}
}

// Count returns the count of key and whether the key is present.
func (l *Ledger[K]) Count(key K) (int, bool) {
	n, ok := l.counts[key]
	return n, ok
}

// Len returns the number of keys in the ledger.
func (l *Ledger[K]) Len() int {
	return len(l.order)
}

// Outstanding returns the sum of all positive counts.
func (l *Ledger[K]) Outstanding() int {
	sum := 0

	for _, n := range l.counts {
		if n > 0 {
			sum += n
		}
	}

	return sum
}

// Entries returns the entries in insertion order.
func (l *Ledger[K]) Entries() []LedgerEntry[K] {
	entries := make([]LedgerEntry[K], 0, len(l.order))
	for _, k := range l.order {
		entries = append(entries, LedgerEntry[K]{Key: k, Count: l.counts[k]})
	}

	return entries
}
