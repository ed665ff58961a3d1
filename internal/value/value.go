// Package value defines the opaque payload type stored under every key in
// the keyspace engine. The engine itself never interprets the bytes inside
// a Value; it only reasons about type tags, reference counts, and the
// access/MVCC metadata needed for eviction policy and replication merge.
package value

import (
	"bytes"
	"encoding/gob"
	"time"

	"go.uber.org/atomic"
)

// Type is the discriminant tag for a Value's payload shape. The keyspace
// engine never branches on Type except to reject an operation via
// WrongType; the payload formats themselves live in the store package.
type Type uint8

const (
	TypeString Type = iota
	TypeList
	TypeHash
	TypeSet
	TypeZSet
	TypeStream
	TypeModule
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	case TypeStream:
		return "stream"
	case TypeModule:
		return "module"
	default:
		return "unknown"
	}
}

// Encoding hints at the internal representation without committing the
// engine to understanding it; it is carried through for introspection and
// copy-on-write decisions only.
type Encoding uint8

const (
	EncodingRaw Encoding = iota
	EncodingCompact
)

func init() {
	// Payload is an opaque any (owned by the store package's type-specific
	// representations); gob requires every concrete type that ever crosses
	// an interface{} boundary to be registered up front. []byte and string
	// cover this package's own tests and the simple-string case; a store
	// package wiring a richer type (hash, list, set, zset) registers its
	// own concrete type the same way before any Duplicate call can reach
	// it.
	gob.Register([]byte(nil))
	gob.Register("")
}

// SharedSentinel marks a Value that lives in a process-wide immutable pool
// (e.g. small integers). Such values are never copied on materialisation;
// they are shared by pointer and must never be mutated in place.
const SharedSentinel int32 = -1

// AccessPolicy selects which recency scheme Introspect and raw_lookup
// maintain on every touch.
type AccessPolicy uint8

const (
	AccessLRU AccessPolicy = iota
	AccessLFU
)

// Access captures the recency/frequency metadata used by an eviction
// policy. Only one of the two sub-fields is meaningful depending on the
// configured AccessPolicy, but both are kept so switching policy at
// runtime does not lose history.
type Access struct {
	LRUClock       uint32 // minute-resolution clock stamp
	LFUCounter     uint8  // logarithmic counter, saturating at 255
	LFUDecayMinute uint32 // last minute the counter was decayed
}

// Value is the opaque object referenced by every live Dict entry. Payload
// is never inspected by the keyspace engine; it is read and written only
// by the type-specific store implementations.
type Value struct {
	Type      Type
	Encoding  Encoding
	Payload   any
	refCount  atomic.Int32
	access    Access
	mvcc      atomic.Uint64
	hasExpire atomic.Bool
}

// New wraps payload as an owned, single-referenced Value of the given type.
func New(t Type, payload any) *Value {
	v := &Value{Type: t, Encoding: EncodingRaw, Payload: payload}
	v.refCount.Store(1)
	v.mvcc.Store(uint64(time.Now().UnixNano()))
	return v
}

// NewShared wraps payload as a value living in the shared immutable pool.
// Shared values must never be mutated in place; writers duplicate them via
// Duplicate before applying any change.
func NewShared(t Type, payload any) *Value {
	v := &Value{Type: t, Encoding: EncodingCompact, Payload: payload}
	v.refCount.Store(SharedSentinel)
	return v
}

// IsShared reports whether this Value must be treated as copy-on-write
// before any in-place mutation.
func (v *Value) IsShared() bool {
	return v.refCount.Load() == SharedSentinel
}

// Retain increments the reference count. Calling Retain on a shared value
// is a no-op: the sentinel count never changes.
func (v *Value) Retain() {
	if v.IsShared() {
		return
	}
	v.refCount.Inc()
}

// Release decrements the reference count and reports whether it reached
// zero, meaning the caller holding the last reference must destroy the
// Value (synchronously or via a lazy-free worker).
func (v *Value) Release() bool {
	if v.IsShared() {
		return false
	}
	return v.refCount.Dec() == 0
}

// RefCount returns the current reference count, or SharedSentinel.
func (v *Value) RefCount() int32 {
	return v.refCount.Load()
}

// Duplicate returns an owned, single-referenced deep copy of v, obtained by
// round-tripping the payload through gob. This realises the
// copy-on-materialise rule: any value crossing from a shared pool or a
// frozen snapshot layer into a mutable position must not alias storage with
// its origin.
func (v *Value) Duplicate() (*Value, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v.Payload); err != nil {
		return nil, err
	}
	var payload any
	if err := gob.NewDecoder(&buf).Decode(&payload); err != nil {
		return nil, err
	}
	dup := New(v.Type, payload)
	dup.Encoding = v.Encoding
	dup.mvcc.Store(v.mvcc.Load())
	dup.access = v.access
	dup.hasExpire.Store(v.hasExpire.Load())
	return dup, nil
}

// MVCC returns the value's last-write timestamp, used by replication merge
// to decide a last-writer-wins outcome.
func (v *Value) MVCC() uint64 { return v.mvcc.Load() }

// StampMVCC assigns a fresh MVCC timestamp, strictly increasing with
// respect to the previous one when the wall clock cooperates.
func (v *Value) StampMVCC(now uint64) {
	for {
		cur := v.mvcc.Load()
		if now <= cur {
			now = cur + 1
		}
		if v.mvcc.CompareAndSwap(cur, now) {
			return
		}
	}
}

// HasExpiration reports the cached flag mirroring ExpireSet membership.
func (v *Value) HasExpiration() bool { return v.hasExpire.Load() }

// SetHasExpiration updates the cached flag. The keyspace API is the only
// caller; it keeps this in lockstep with ExpireSet membership.
func (v *Value) SetHasExpiration(b bool) { v.hasExpire.Store(b) }

// Access returns a copy of the current access metadata for introspection.
func (v *Value) Access() Access { return v.access }

// TouchLRU stamps the LRU clock to now (minute resolution).
func (v *Value) TouchLRU(minuteClock uint32) { v.access.LRUClock = minuteClock }

// TouchLFU applies the logarithmic counter increment with time decay, the
// same discipline the reference implementation's updateLFU uses: the
// counter saturates, and decays by one per elapsed decay period before the
// probabilistic increment is applied.
func (v *Value) TouchLFU(nowMinute uint32, decayPeriodMinutes uint32, incrProbability float64, rand func() float64) {
	if decayPeriodMinutes > 0 {
		elapsed := nowMinute - v.access.LFUDecayMinute
		periods := elapsed / decayPeriodMinutes
		if periods > 0 {
			if uint32(v.access.LFUCounter) > periods {
				v.access.LFUCounter -= uint8(periods)
			} else {
				v.access.LFUCounter = 0
			}
			v.access.LFUDecayMinute = nowMinute
		}
	}
	if v.access.LFUCounter == 255 {
		return
	}
	if rand() < incrProbability {
		v.access.LFUCounter++
	}
}
