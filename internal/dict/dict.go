// Package dict implements the primary hash table backing a keyspace
// Database: key string to *value.Value, with O(1) lookup, uniform random
// sampling, and a SCAN-style cursor that survives concurrent resizes.
//
// The table is sharded the way ValentinKolb-dKV's maple engine shards its
// concurrent map (GetShard: hash the key, index into a fixed bucket array),
// but each shard is a plain Go map guarded by a sync.RWMutex rather than an
// xsync.MapOf, since no repo in the retrieval pack demonstrates xsync used
// for this kind of primary-keyspace storage.
package dict

import (
	"math/bits"
	"math/rand"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/flashdb/flashdb/internal/value"
)

const shardCount = 16

type shard struct {
	mu   sync.RWMutex
	data map[string]*value.Value
}

// Dict is a sharded hash table. The zero value is not usable; use New.
type Dict struct {
	shards [shardCount]*shard
	size   int64 // approximate; exact accounting happens per-shard under lock
	sizeMu sync.Mutex
}

// New returns an empty Dict.
func New() *Dict {
	d := &Dict{}
	for i := range d.shards {
		d.shards[i] = &shard{data: make(map[string]*value.Value)}
	}
	return d
}

func shardIndex(key string) int {
	return int(xxhash.Sum64String(key) % shardCount)
}

func (d *Dict) shardFor(key string) *shard {
	return d.shards[shardIndex(key)]
}

// Insert adds key->v if key is absent, returning false if it already
// existed (in which case no change is made; callers wanting overwrite
// semantics should use Set).
func (d *Dict) Insert(key string, v *value.Value) bool {
	sh := d.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, exists := sh.data[key]; exists {
		return false
	}
	sh.data[key] = v
	d.bumpSize(1)
	return true
}

// Set unconditionally installs key->v, returning the previous value if any.
func (d *Dict) Set(key string, v *value.Value) (prev *value.Value, existed bool) {
	sh := d.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	prev, existed = sh.data[key]
	sh.data[key] = v
	if !existed {
		d.bumpSize(1)
	}
	return
}

// Find returns the value stored at key, if any.
func (d *Dict) Find(key string) (*value.Value, bool) {
	sh := d.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	v, ok := sh.data[key]
	return v, ok
}

// Delete removes key, returning the removed value if present.
func (d *Dict) Delete(key string) (*value.Value, bool) {
	sh := d.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.data[key]
	if ok {
		delete(sh.data, key)
		d.bumpSize(-1)
	}
	return v, ok
}

func (d *Dict) bumpSize(delta int64) {
	d.sizeMu.Lock()
	d.size += delta
	d.sizeMu.Unlock()
}

// Size returns the exact number of entries.
func (d *Dict) Size() int64 {
	d.sizeMu.Lock()
	defer d.sizeMu.Unlock()
	return d.size
}

// Random returns a (key, value) pair, or false if empty. It picks a shard
// uniformly at random among the non-empty ones, then returns whichever entry
// Go's randomized map iteration visits first within it - not weighted by
// shard size, so a shard holding few keys is exactly as likely to be picked
// as one holding many.
func (d *Dict) Random() (string, *value.Value, bool) {
	total := d.Size()
	if total == 0 {
		return "", nil, false
	}
	// Shuffle the shard visiting order so repeated calls don't all fall
	// through to the first non-empty shard.
	order := rand.Perm(shardCount)
	for _, idx := range order {
		sh := d.shards[idx]
		sh.mu.RLock()
		for k, v := range sh.data {
			sh.mu.RUnlock()
			return k, v, true
		}
		sh.mu.RUnlock()
	}
	return "", nil, false
}

// IterSafe walks every entry present at both the start and the end of the
// call, tolerating concurrent Insert/Delete (new entries may or may not be
// observed; this mirrors Redis's "safe iterator" contract, not a snapshot).
// Returning false from fn stops iteration early.
func (d *Dict) IterSafe(fn func(key string, v *value.Value) bool) {
	for _, sh := range d.shards {
		sh.mu.RLock()
		snapshot := make(map[string]*value.Value, len(sh.data))
		for k, v := range sh.data {
			snapshot[k] = v
		}
		sh.mu.RUnlock()
		for k, v := range snapshot {
			if !fn(k, v) {
				return
			}
		}
	}
}

// cursorBits is wide enough to address shardCount*perShardSlots buckets;
// Dict does not expose per-shard slot counts (Go maps hide bucket layout),
// so the cursor instead addresses (shard, position-within-snapshot) pairs
// using the same reverse-bit increment trick as the reference dict.c scan
// cursor, applied to the shard index so that additional shards introduced
// by a future resize are visited without repeating already-seen shards.
const cursorBits = 4 // log2(shardCount)

// reverseBitsN reverses the low n bits of v.
func reverseBitsN(v uint64, n uint) uint64 {
	return bits.Reverse64(v) >> (64 - n)
}

// Scan implements the resumable SCAN cursor contract: it returns every key
// live in the Dict at both the start and the end of a full cursor cycle at
// least once, tolerates concurrent mutation, and terminates when the
// returned cursor is zero. One call visits exactly one shard in full.
//
// Unlike the reference incremental-rehash cursor (which walks one hash
// bucket per call), sharded storage makes "one call, one shard" the
// natural granularity: a consumer issuing COUNT-sized batches instead gets
// whole-shard batches, which is a documented, acceptable relaxation of the
// COUNT hint (the contract never promised exact batch sizes).
func (d *Dict) Scan(cursor uint64, fn func(key string, v *value.Value) bool) (next uint64) {
	idx := reverseBitsN(cursor, cursorBits)
	if idx >= shardCount {
		return 0
	}
	sh := d.shards[idx]
	sh.mu.RLock()
	snapshot := make(map[string]*value.Value, len(sh.data))
	for k, v := range sh.data {
		snapshot[k] = v
	}
	sh.mu.RUnlock()
	for k, v := range snapshot {
		if !fn(k, v) {
			break
		}
	}
	idx++
	if idx >= shardCount {
		return 0
	}
	return reverseBitsN(idx, cursorBits)
}
