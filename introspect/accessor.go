package introspect

import (
	"reflect"
	"sync/atomic"

	"github.com/kestrelang/kestrel/value"
)

// Accessor is a reusable closure produced by resolution that performs one
// specific get/set/call against a known receiver reflect.Type (spec §4.2).
type Accessor struct {
	receiverType reflect.Type
	get          func(recv reflect.Value) (reflect.Value, bool)
	set          func(recv reflect.Value, v value.Value) bool
	invoke       func(recv reflect.Value, args []reflect.Value) (reflect.Value, bool)

	// method is the resolved target of an invoke Accessor, kept so a cache
	// hit can re-run argument conversion against the call's current
	// arguments instead of replaying the arguments captured at resolution
	// time. Zero value (Func invalid) for get/set accessors.
	method reflect.Method
}

// Site is a per-call-site cache slot. It is safe for concurrent use by
// many host threads executing the same compiled program: every resolution
// race produces a functionally identical Accessor, and the last stored
// value wins (spec §4.2, §5 "benign races").
type Site struct {
	slot atomic.Pointer[Accessor]

	hits   atomic.Int64
	misses atomic.Int64
}

// Load returns the cached accessor if it still matches recv's type.
func (s *Site) Load(recv reflect.Value) (*Accessor, bool) {
	a := s.slot.Load()
	if a == nil || a.receiverType != recv.Type() {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return a, true
}

// Store installs a newly resolved accessor, replacing any existing one.
// Concurrent Store calls racing on the same transition are harmless: the
// last write wins and both candidates are behaviorally identical.
func (s *Site) Store(a *Accessor) { s.slot.Store(a) }

// CacheStats reports hit/miss counters for a call site (SPEC_FULL §12, a
// natural adjunct to the caching contract for hosts tuning sandbox rules).
type CacheStats struct {
	Hits, Misses int64
}

func (s *Site) Stats() CacheStats {
	return CacheStats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}
