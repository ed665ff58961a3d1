// Package expireset implements the ordered-by-earliest-expiry index used by
// the keyspace engine to find and lazily or actively expire keys. It is a
// direct generalisation of ValentinKolb-dKV's lib/db/util MapHeap (a
// container/heap priority queue paired with a map for O(1) key lookup):
// here the key type is a string instead of a uint64, and a single record
// may carry either one whole-key expiration or a set of per-subkey
// expirations (for hash/set field TTLs).
package expireset

import (
	"container/heap"
)

// Record is the expiration state tracked for one key. A whole-key TTL is
// stored under the empty subkey name "". A key with mixed whole-key and
// subkey expirations is legal; MinWhen always reflects the earliest of all
// its entries.
type Record struct {
	Key     string
	entries map[string]int64 // subkey ("" = whole key) -> when_ms
	MinWhen int64
	index   int // heap.Interface bookkeeping
}

// Entries exposes the subkey->when_ms map for introspection; callers must
// not mutate the returned map.
func (r *Record) Entries() map[string]int64 { return r.entries }

// WholeKeyWhen returns the whole-key expiration time, if any.
func (r *Record) WholeKeyWhen() (int64, bool) {
	w, ok := r.entries[""]
	return w, ok
}

func (r *Record) recomputeMin() {
	min := int64(1<<63 - 1)
	for _, w := range r.entries {
		if w < min {
			min = w
		}
	}
	r.MinWhen = min
}

// ExpireSet is a min-heap of Records ordered by MinWhen, with O(1) lookup
// by key via an auxiliary map, mirroring MapHeap's item/itemsMap pairing.
type ExpireSet struct {
	records []*Record
	byKey   map[string]*Record
}

// New returns an empty ExpireSet.
func New() *ExpireSet {
	return &ExpireSet{byKey: make(map[string]*Record)}
}

func (s *ExpireSet) Len() int { return len(s.records) }

func (s *ExpireSet) Less(i, j int) bool { return s.records[i].MinWhen < s.records[j].MinWhen }

func (s *ExpireSet) Swap(i, j int) {
	s.records[i], s.records[j] = s.records[j], s.records[i]
	s.records[i].index = i
	s.records[j].index = j
}

func (s *ExpireSet) Push(x any) {
	r := x.(*Record)
	r.index = len(s.records)
	s.records = append(s.records, r)
}

func (s *ExpireSet) Pop() any {
	old := s.records
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	s.records = old[:n-1]
	return r
}

// Find returns the Record for key, if one exists.
func (s *ExpireSet) Find(key string) (*Record, bool) {
	r, ok := s.byKey[key]
	return r, ok
}

// Contains reports whether key has any expiration entry.
func (s *ExpireSet) Contains(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Set installs or updates the expiration for key (subkey "" for a
// whole-key TTL), creating the key's record if it has none.
func (s *ExpireSet) Set(key string, subkey string, whenMs int64) {
	if r, exists := s.byKey[key]; exists {
		r.entries[subkey] = whenMs
		r.recomputeMin()
		heap.Fix(s, r.index)
		return
	}
	r := &Record{Key: key, entries: map[string]int64{subkey: whenMs}, MinWhen: whenMs}
	heap.Push(s, r)
	s.byKey[key] = r
}

// Remove deletes the whole record for key (used when a key is deleted or
// overwritten with clear_expire semantics).
func (s *ExpireSet) Remove(key string) bool {
	r, ok := s.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(s, r.index)
	delete(s.byKey, key)
	return true
}

// RemoveSubkey deletes one subkey's entry. If it was the last entry on the
// record, the whole record is removed too; the second return value reports
// that cascade so the caller can clear the owning Value's has_expiration
// flag.
func (s *ExpireSet) RemoveSubkey(key string, subkey string) (removed, recordCleared bool) {
	r, ok := s.byKey[key]
	if !ok {
		return false, false
	}
	if _, ok := r.entries[subkey]; !ok {
		return false, false
	}
	delete(r.entries, subkey)
	if len(r.entries) == 0 {
		heap.Remove(s, r.index)
		delete(s.byKey, key)
		return true, true
	}
	r.recomputeMin()
	heap.Fix(s, r.index)
	return true, false
}

// PeekEarliest returns the record with the smallest MinWhen without
// removing it.
func (s *ExpireSet) PeekEarliest() (*Record, bool) {
	if len(s.records) == 0 {
		return nil, false
	}
	return s.records[0], true
}

// ExpireBefore invokes fn for every record whose MinWhen is <= nowMs, in
// ascending order of expiry, removing each from the set as it is visited.
// This is the engine's active-expiration probe: the caller is responsible
// for deleting the underlying key from the Dict and emitting the
// associated side effects; ExpireSet only manages its own index.
func (s *ExpireSet) ExpireBefore(nowMs int64, fn func(r *Record)) {
	for {
		earliest, ok := s.PeekEarliest()
		if !ok || earliest.MinWhen > nowMs {
			return
		}
		heap.Pop(s)
		delete(s.byKey, earliest.Key)
		fn(earliest)
	}
}

// Size returns the number of distinct keys carrying an expiration.
func (s *ExpireSet) Size() int { return len(s.records) }

// All invokes fn once per record currently in the set, in no particular
// order. Used by snapshot merge to fold a child layer's expirations into
// its parent; fn must not mutate the set.
func (s *ExpireSet) All(fn func(r *Record)) {
	for _, r := range s.records {
		fn(r)
	}
}
