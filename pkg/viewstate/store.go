// Package viewstate keeps an in-memory mirror of server rows for a client.
//
// Rows enter a Store only through reducer operations (Upsert, Remove,
// Replace) applied with a Ticket taken before the request was issued. A
// result whose ticket was superseded, or that arrives after Close, is
// discarded.
package viewstate

import (
	"sort"
	"sync"
)

// ScopeAll is the scope used for whole-collection fetches.
const ScopeAll = "*"

// Ticket identifies one outstanding request against a Store.
type Ticket struct {
	scope string
	seq   uint64
}

// Scope returns the scope the ticket was issued for.
func (t Ticket) Scope() string { return t.scope }

// Op is a reducer over the rows of a Store.
type Op[K comparable, V any] struct {
	kind  opKind
	key   K
	value V
	all   []V
}

type opKind uint8

const (
	opUpsert opKind = iota + 1
	opRemove
	opReplace
	opMerge
)

// Upsert inserts or overwrites one row.
func Upsert[K comparable, V any](v V) Op[K, V] {
	return Op[K, V]{kind: opUpsert, value: v}
}

// Remove drops the row stored under key.
func Remove[K comparable, V any](key K) Op[K, V] {
	return Op[K, V]{kind: opRemove, key: key}
}

// Merge upserts every row in rows.
func Merge[K comparable, V any](rows []V) Op[K, V] {
	return Op[K, V]{kind: opMerge, all: rows}
}

// Replace swaps the full contents of the store.
func Replace[K comparable, V any](rows []V) Op[K, V] {
	return Op[K, V]{kind: opReplace, all: rows}
}

// Store is a keyed collection of rows for one entity.
type Store[K comparable, V any] struct {
	mu        sync.RWMutex
	keyOf     func(V) K
	less      func(a, b V) bool
	rows      map[K]V
	seq       uint64
	latest    map[string]uint64
	floor     uint64
	closed    bool
	listeners []func()
}

// Option configures a Store.
type Option[K comparable, V any] func(*Store[K, V])

// WithOrder sets the order List returns rows in.
func WithOrder[K comparable, V any](less func(a, b V) bool) Option[K, V] {
	return func(s *Store[K, V]) { s.less = less }
}

// OnChange registers fn to run after every applied operation.
func OnChange[K comparable, V any](fn func()) Option[K, V] {
	return func(s *Store[K, V]) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// New builds an empty store keyed by keyOf.
func New[K comparable, V any](keyOf func(V) K, opts ...Option[K, V]) *Store[K, V] {
	s := &Store[K, V]{
		keyOf:  keyOf,
		rows:   make(map[K]V),
		latest: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin issues a ticket for scope. A later Begin on the same scope makes the
// earlier ticket stale.
func (s *Store[K, V]) Begin(scope string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.latest[scope] = s.seq
	return Ticket{scope: scope, seq: s.seq}
}

// Current reports whether t would still be applied.
func (s *Store[K, V]) Current(t Ticket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocked(t)
}

func (s *Store[K, V]) currentLocked(t Ticket) bool {
	if s.closed || t.seq == 0 {
		return false
	}
	if s.latest[t.scope] != t.seq {
		return false
	}
	return t.seq > s.floor
}

// Apply runs op if t is current and reports whether it did. Applying a
// ticket retires it. A Replace also retires every ticket issued before it.
func (s *Store[K, V]) Apply(t Ticket, op Op[K, V]) bool {
	s.mu.Lock()
	if !s.currentLocked(t) {
		s.mu.Unlock()
		return false
	}
	delete(s.latest, t.scope)

	switch op.kind {
	case opUpsert:
		s.rows[s.keyOf(op.value)] = op.value
	case opRemove:
		delete(s.rows, op.key)
	case opMerge:
		for _, v := range op.all {
			s.rows[s.keyOf(v)] = v
		}
	case opReplace:
		rows := make(map[K]V, len(op.all))
		for _, v := range op.all {
			rows[s.keyOf(v)] = v
		}
		s.rows = rows
		s.floor = t.seq
	default:
		s.mu.Unlock()
		return false
	}
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true
}

// Close discards every outstanding ticket. Results arriving afterwards are
// never applied.
func (s *Store[K, V]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.latest = make(map[string]uint64)
}

func (s *Store[K, V]) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rows[key]
	return v, ok
}

func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// List returns a copy of the rows, ordered when WithOrder was given.
func (s *Store[K, V]) List() []V {
	s.mu.RLock()
	out := make([]V, 0, len(s.rows))
	for _, v := range s.rows {
		out = append(out, v)
	}
	less := s.less
	s.mu.RUnlock()

	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}
