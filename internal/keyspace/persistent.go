package keyspace

import (
	"sync"

	"github.com/flashdb/flashdb/internal/dict"
	"github.com/flashdb/flashdb/internal/expireset"
	"github.com/flashdb/flashdb/internal/value"
)

// persistentData is one layer of the copy-on-write snapshot chain: a live
// Dict plus its ExpireSet, an optional parent layer, and the tombstone set
// recording keys deleted here that still exist in the parent. This is the
// direct analogue of the reference redisDbPersistentData / redisDbPersistentDataSnapshot
// split (db.cpp's lookupKey / syncDelete / iterate_threadsafe), collapsed
// into a single type parameterised by "is this a snapshot" via refCount.
type persistentData struct {
	mu sync.RWMutex

	dict       *dict.Dict
	expires    *expireset.ExpireSet
	tombstones map[string]struct{}

	parent *persistentData // nil at the bottom of the chain
	child  *persistentData // the layer that stole our structures, or nil

	refCount int // concurrent readers/snapshot-holders; head layer's refCount is ignored

	// change tracking, mirroring trackChanges/trackkey in the reference.
	trackingDepth int
	changedKeys   map[string]struct{}
	allChanged    bool

	hooks Hooks
	dbID  int
}

func newPersistentData(hooks Hooks, dbID int) *persistentData {
	return &persistentData{
		dict:       dict.New(),
		expires:    expireset.New(),
		tombstones: make(map[string]struct{}),
		hooks:      hooks,
		dbID:       dbID,
	}
}

// find looks up key in this layer, falling through to the parent chain and
// materialising the value into this layer when found there, unless masked
// by a tombstone. This mutates the top layer on a cross-layer hit, so
// callers needing a pure read should use findThreadsafe instead.
func (p *persistentData) find(key string) (*value.Value, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findLocked(key)
}

func (p *persistentData) findLocked(key string) (*value.Value, bool) {
	if v, ok := p.dict.Find(key); ok {
		return v, true
	}
	if p.parent == nil {
		return nil, false
	}
	if _, tombstoned := p.tombstones[key]; tombstoned {
		return nil, false
	}
	pv, rec, ok := p.parent.findThreadsafeLockedWithExpire(key)
	if !ok {
		return nil, false
	}
	materialised := pv
	if !pv.IsShared() {
		dup, err := pv.Duplicate()
		if err == nil {
			materialised = dup
		}
	}
	p.dict.Insert(key, materialised)
	if rec != nil {
		for subkey, when := range rec.Entries() {
			p.expires.Set(key, subkey, when)
		}
	}
	return materialised, true
}

// findThreadsafe performs a read-only lookup across the whole chain without
// ever materialising into a higher layer. Used by offloaded scans that run
// without the coarse lock held.
func (p *persistentData) findThreadsafe(key string) (*value.Value, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.findThreadsafeLocked(key)
}

func (p *persistentData) findThreadsafeLocked(key string) (*value.Value, bool) {
	v, _, ok := p.findThreadsafeLockedWithExpire(key)
	return v, ok
}

// findThreadsafeLockedWithExpire is findThreadsafeLocked's sibling: it also
// reports the expireset.Record owned by whichever layer the key is found at,
// so a cross-layer materialisation (findLocked) can carry the key's TTL
// forward instead of silently dropping it.
func (p *persistentData) findThreadsafeLockedWithExpire(key string) (*value.Value, *expireset.Record, bool) {
	cur := p
	for cur != nil {
		if v, ok := cur.dict.Find(key); ok {
			rec, _ := cur.expires.Find(key)
			return v, rec, true
		}
		if cur.parent != nil {
			if _, tombstoned := cur.tombstones[key]; tombstoned {
				return nil, nil, false
			}
		}
		cur = cur.parent
	}
	return nil, nil, false
}

// insert adds key->v to this layer only, failing if it is already present
// here (the AlreadyExists contract is enforced by the caller, Keyspace.Add,
// which panics; insert itself just reports success/failure).
func (p *persistentData) insert(key string, v *value.Value) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok := p.dict.Insert(key, v)
	if ok {
		delete(p.tombstones, key)
		p.trackChanged(key)
	}
	return ok
}

// overwriteLocked replaces the value stored at key in this layer. Caller
// must already hold p.mu.
func (p *persistentData) overwriteLocked(key string, v *value.Value) {
	p.dict.Set(key, v)
	delete(p.tombstones, key)
	p.trackChanged(key)
}

// syncDelete removes key from this layer and, if a parent snapshot exists,
// records a tombstone so the parent's (possibly still-live) entry is no
// longer visible through this layer.
func (p *persistentData) syncDelete(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, existedHere := p.dict.Delete(key)
	existedDeeper := false
	if p.parent != nil {
		if _, ok := p.tombstones[key]; !ok {
			_, existedDeeper = p.parent.findThreadsafeLocked(key)
			if existedDeeper {
				p.tombstones[key] = struct{}{}
			}
		}
	}
	if existedHere || existedDeeper {
		p.trackChanged(key)
		return true
	}
	return false
}

// size approximates the effective key count: this layer's count plus the
// parent's size (computed the same way, recursively), minus this layer's
// tombstones. A key present in more than one layer (materialised or
// overwritten after a snapshot) is counted once per layer, so the result
// can exceed the exact count.
func (p *persistentData) size() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := p.dict.Size()
	if p.parent != nil {
		n += p.parent.size() - int64(len(p.tombstones))
	}
	return n
}

// random performs the weighted coin-flip sample described in §4.3: with
// probability proportional to the parent's share of the effective
// keyspace, sample the parent's own dict (returning its entry as is,
// without materialising it into this layer); otherwise sample this layer
// directly.
func (p *persistentData) random(coin func() float64) (string, *value.Value, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ownSize := p.dict.Size()
	parentSize := int64(0)
	if p.parent != nil {
		parentSize = p.parent.size() - int64(len(p.tombstones))
		if parentSize < 0 {
			parentSize = 0
		}
	}
	total := ownSize + parentSize
	if total == 0 {
		return "", nil, false
	}
	if p.parent != nil && coin() < float64(parentSize)/float64(total) {
		for tries := 0; tries < 8; tries++ {
			k, v, ok := p.parent.dict.Random()
			if !ok {
				break
			}
			if _, tombstoned := p.tombstones[k]; tombstoned {
				continue
			}
			return k, v, true
		}
	}
	return p.dict.Random()
}

// trackChanged records key as dirty while tracking is active (trackingDepth
// > 0), for a subsequent flush to the storage hook via endTracking.
func (p *persistentData) trackChanged(key string) {
	if p.trackingDepth <= 0 {
		return
	}
	if p.changedKeys == nil {
		p.changedKeys = make(map[string]struct{})
	}
	p.changedKeys[key] = struct{}{}
}

// beginTracking increments the reentrant tracking counter.
func (p *persistentData) beginTracking() {
	p.trackingDepth++
}

// endTracking decrements the counter and, on reaching zero, flushes the
// accumulated change set to the storage hook.
func (p *persistentData) endTracking() {
	p.trackingDepth--
	if p.trackingDepth > 0 {
		return
	}
	if p.hooks == nil {
		p.changedKeys = nil
		p.allChanged = false
		return
	}
	if p.allChanged {
		p.hooks.StorageClear(p.dbID)
	} else {
		for key := range p.changedKeys {
			if v, ok := p.dict.Find(key); ok {
				_ = v
				p.hooks.StorageInsert(p.dbID, key, nil)
			} else {
				p.hooks.StorageErase(p.dbID, key)
			}
		}
	}
	p.changedKeys = nil
	p.allChanged = false
}
