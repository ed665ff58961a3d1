// Package keyspace implements the core in-memory key-value engine: the
// mapping from string keys to opaque value.Value objects, per-key and
// per-subkey expiration, copy-on-write snapshot isolation for long-running
// scans, and the last-writer-wins merge rule used by active-active
// replication.
package keyspace

import (
	"math/rand"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/rs/zerolog"

	"github.com/flashdb/flashdb/internal/logging"
	"github.com/flashdb/flashdb/internal/value"
)

// logger is this package's single structured logger, carrying
// component=keyspace on every entry (SPEC_FULL.md §10.1). SetLevel lets
// cmd/flashdb raise or lower it once the configured log level is known.
var logger = logging.New("keyspace", zerolog.InfoLevel)

// SetLevel adjusts the keyspace package logger's level.
func SetLevel(lvl zerolog.Level) { logger = logger.Level(lvl) }

// LookupFlags modifies the side effects of a lookup, mirroring the
// reference's LOOKUP_* bit flags.
type LookupFlags uint8

const (
	LookupNone LookupFlags = 0
	// LookupNoTouch suppresses the access-recency update.
	LookupNoTouch LookupFlags = 1 << iota
	// LookupUpdateMVCC stamps a fresh MVCC timestamp on this access,
	// marking the key as changed for replication/tracking purposes.
	LookupUpdateMVCC
	// LookupNoNotify suppresses the keymiss keyspace event on a miss.
	LookupNoNotify
)

// Keyspace is the top-level handle applications hold: a fixed number of
// numbered Databases plus the configuration and collaborator hooks shared
// across all of them.
type Keyspace struct {
	mu        sync.Mutex // coarse global lock, per §5
	databases []*Database
	hooks     Hooks
	cfg       Config

	childForkActive bool // suppresses recency updates during a save fork
	inScript        bool
	scriptNowMs     int64

	rngMu sync.Mutex
	rng   *rand.Rand

	hits    *metrics.Counter
	misses  *metrics.Counter
	expired *metrics.Counter
}

// NewKeyspace constructs a Keyspace with dbCount numbered Databases.
func NewKeyspace(dbCount int, hooks Hooks, cfg Config) *Keyspace {
	if hooks == nil {
		hooks = NoopHooks{}
	}
	if cfg.Now == nil {
		cfg.Now = nowMillis
	}
	ks := &Keyspace{
		databases: make([]*Database, dbCount),
		hooks:     hooks,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		hits:      metrics.GetOrCreateCounter("flashdb_keyspace_hits_total"),
		misses:    metrics.GetOrCreateCounter("flashdb_keyspace_misses_total"),
		expired:   metrics.GetOrCreateCounter("flashdb_keyspace_expired_keys_total"),
	}
	for i := range ks.databases {
		ks.databases[i] = NewDatabase(i, hooks)
	}
	return ks
}

// DB returns the numbered Database, or an OutOfRange error.
func (ks *Keyspace) DB(id int) (*Database, error) {
	if id < 0 || id >= len(ks.databases) {
		return nil, ErrOutOfRange
	}
	return ks.databases[id], nil
}

func (ks *Keyspace) coin() float64 {
	ks.rngMu.Lock()
	defer ks.rngMu.Unlock()
	return ks.rng.Float64()
}

func (ks *Keyspace) now() int64 {
	if ks.inScript {
		return ks.scriptNowMs
	}
	return ks.cfg.Now()
}

func (ks *Keyspace) minuteClock() uint32 {
	return uint32(ks.now() / 60000)
}

// LookupRead fetches key for a read operation, enforcing lazy expiration
// and the primary/replica read-only distinction from §4.4 step 1.
func (ks *Keyspace) LookupRead(db *Database, key string, flags LookupFlags) *value.Value {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	expired := ks.expireIfNeededLocked(db, key)
	if expired {
		if ks.cfg.IsReplica {
			// Replica: the primary will propagate the DEL; until then the
			// key is logically gone from a read-only caller's perspective.
			ks.reportMiss(db, key, flags)
			return nil
		}
		ks.reportMiss(db, key, flags)
		return nil
	}

	v := ks.rawLookupLocked(db, key, flags)
	if v == nil {
		ks.reportMiss(db, key, flags)
		return nil
	}
	ks.hits.Inc()
	return v
}

func (ks *Keyspace) reportMiss(db *Database, key string, flags LookupFlags) {
	ks.misses.Inc()
	if flags&LookupNoNotify == 0 {
		ks.hooks.NotifyKeyspaceEvent(EventGeneric, "keymiss", key, db.ID)
	}
}

// RawLookup fetches key without enforcing expiration, updating access
// metadata per §4.4's raw_lookup contract.
func (ks *Keyspace) RawLookup(db *Database, key string, flags LookupFlags) *value.Value {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.rawLookupLocked(db, key, flags)
}

func (ks *Keyspace) rawLookupLocked(db *Database, key string, flags LookupFlags) *value.Value {
	v, ok := db.live.find(key)
	if !ok {
		return nil
	}
	if flags&LookupNoTouch == 0 && !ks.childForkActive {
		if ks.cfg.Policy == PolicyLFU {
			v.TouchLFU(ks.minuteClock(), ks.cfg.LFUDecayMinutes, ks.cfg.LFUIncrProbability, ks.coin)
		} else {
			v.TouchLRU(ks.minuteClock())
		}
	}
	if flags&LookupUpdateMVCC != 0 {
		v.StampMVCC(uint64(ks.now()))
		db.live.mu.Lock()
		db.live.trackChanged(key)
		db.live.mu.Unlock()
	}
	return v
}

// LookupWrite fetches key for a write operation: expiration is always
// enforced and MVCC is always refreshed.
func (ks *Keyspace) LookupWrite(db *Database, key string) *value.Value {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.expireIfNeededLocked(db, key) {
		return nil
	}
	return ks.rawLookupLocked(db, key, LookupUpdateMVCC)
}

// Introspection is the access-metadata snapshot returned by Introspect,
// surfacing the opaque Value's recency/frequency bookkeeping without
// touching it (an OBJECT FREQ/IDLETIME equivalent, per SPEC_FULL.md §10.3).
type Introspection struct {
	Policy     Policy
	LRUClock   uint32
	LFUCounter uint8
	RefCount   int32
}

// Introspect reports key's access metadata without affecting it: no
// expiration check, no recency update, no miss notification. Returns false
// if key is not present in the top layer: a tombstoned or not-yet-
// materialised parent-layer key is treated as absent (unlike LookupRead,
// which finds and materialises such a key).
func (ks *Keyspace) Introspect(db *Database, key string) (Introspection, bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	v, ok := db.live.dict.Find(key)
	if !ok {
		return Introspection{}, false
	}
	access := v.Access()
	return Introspection{
		Policy:     ks.cfg.Policy,
		LRUClock:   access.LRUClock,
		LFUCounter: access.LFUCounter,
		RefCount:   v.RefCount(),
	}, true
}

// Add inserts a brand-new key. Per §4.4, calling Add on a key that already
// exists is a programmer-error contract violation and panics, matching the
// reference dbAddCore's serverAssert.
func (ks *Keyspace) Add(db *Database, key string, v *value.Value) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if !db.live.insert(key, v) {
		panic(ErrKeyExists)
	}
	if ks.cfg.ClusterEnabled {
		ks.hooks.SlotToKeyAdd(key)
	}
	ks.hooks.SignalKeyReady(db.ID, key)
	ks.hooks.NotifyKeyspaceEvent(EventNew, "new", key, db.ID)
}

// Overwrite replaces the value stored at key. If clearExpire is set, any
// existing expiration is dropped; otherwise the expire bit carries forward
// onto the new value per §4.4.
func (ks *Keyspace) Overwrite(db *Database, key string, newVal *value.Value, updateMVCC bool, clearExpire bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.overwriteLocked(db, key, newVal, updateMVCC, clearExpire)
}

func (ks *Keyspace) overwriteLocked(db *Database, key string, newVal *value.Value, updateMVCC bool, clearExpire bool) {
	db.live.mu.Lock()
	old, hadOld := db.live.dict.Find(key)
	hadExpire := db.live.expires.Contains(key)
	if clearExpire {
		if hadExpire {
			db.live.expires.Remove(key)
		}
		newVal.SetHasExpiration(false)
	} else if hadExpire {
		newVal.SetHasExpiration(true)
	}
	if updateMVCC {
		newVal.StampMVCC(uint64(ks.now()))
	}
	db.live.overwriteLocked(key, newVal)
	db.live.mu.Unlock()

	if hadOld {
		old.Release()
	}
	ks.hooks.TouchWatchedKey(db.ID, key)
	ks.hooks.TrackingInvalidateKey(key)
}

// Merge implements the active-active replication upsert: absent keys are
// always inserted; present keys are overwritten only when the incoming
// value's MVCC timestamp is not older than the current one (last-writer-
// wins), matching dbMerge's fReplace contract.
func (ks *Keyspace) Merge(db *Database, key string, incoming *value.Value, replace bool) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	existing, ok := db.live.find(key)
	if !ok {
		db.live.insert(key, incoming)
		ks.hooks.NotifyKeyspaceEvent(EventGeneric, "new", key, db.ID)
		return true
	}
	if !replace {
		return false
	}
	if existing.MVCC() > incoming.MVCC() {
		return false
	}
	ks.overwriteLocked(db, key, incoming, false, true)
	return true
}

// SetKey is the unconditional upsert used by plain SET: always clears any
// prior expiration.
func (ks *Keyspace) SetKey(db *Database, key string, v *value.Value) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if _, ok := db.live.find(key); ok {
		ks.overwriteLocked(db, key, v, true, true)
		return
	}
	db.live.insert(key, v)
	ks.hooks.SignalKeyReady(db.ID, key)
	if ks.cfg.ClusterEnabled {
		ks.hooks.SlotToKeyAdd(key)
	}
}

// RandomKey returns a randomly chosen non-expired key, retrying up to
// cfg.RandomKeyTries times. If every try lands on a logically expired key,
// a replica (cfg.IsReplica) returns the last such candidate to avoid
// livelock when every key is volatile, while a primary returns false
// (S6; SPEC_FULL.md §10.3 makes the try budget configurable).
func (ks *Keyspace) RandomKey(db *Database) (string, bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	tries := ks.cfg.RandomKeyTries
	if tries <= 0 {
		tries = 100
	}
	var lastKey string
	var lastOK bool
	now := ks.now()
	for i := 0; i < tries; i++ {
		key, _, ok := db.live.random(ks.coin)
		if !ok {
			return "", false
		}
		lastKey, lastOK = key, true
		// random() may return a key straight out of a deeper, not-yet-
		// materialised parent layer, so its TTL record can likewise still
		// live there rather than in db.live.expires: look it up across the
		// whole chain, not just the top layer.
		if _, r, found := db.live.findThreadsafeLockedWithExpire(key); found && r != nil {
			if when, ok := r.WholeKeyWhen(); ok && when <= now {
				continue
			}
		}
		return key, true
	}
	// All-volatile guard: a replica returns the last candidate rather than
	// spin forever; a primary reports no key.
	if !ks.cfg.IsReplica {
		return "", false
	}
	return lastKey, lastOK
}

// DeleteSync removes key immediately, recording a tombstone if needed.
func (ks *Keyspace) DeleteSync(db *Database, key string) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.deleteLocked(db, key)
}

// DeleteAsync removes key from the indices synchronously but defers the
// Value's destruction to the caller's lazy-free worker by returning it
// instead of releasing it in place.
func (ks *Keyspace) DeleteAsync(db *Database, key string) (*value.Value, bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	db.live.mu.Lock()
	v, existed := db.live.dict.Find(key)
	db.live.mu.Unlock()
	if !ks.deleteLockedNoRelease(db, key) {
		return nil, false
	}
	return v, existed
}

func (ks *Keyspace) deleteLocked(db *Database, key string) bool {
	v, existed := db.live.dict.Find(key)
	if !ks.deleteLockedNoRelease(db, key) {
		return false
	}
	if existed && v != nil {
		v.Release()
	}
	return true
}

func (ks *Keyspace) deleteLockedNoRelease(db *Database, key string) bool {
	db.live.expires.Remove(key)
	ok := db.live.syncDelete(key)
	if ok {
		if ks.cfg.ClusterEnabled {
			ks.hooks.SlotToKeyDel(key)
		}
		ks.hooks.NotifyKeyspaceEvent(EventGeneric, "del", key, db.ID)
		ks.hooks.TouchWatchedKey(db.ID, key)
		ks.hooks.TrackingInvalidateKey(key)
	}
	return ok
}

// UnshareString materialises an owned, single-referenced, raw-encoded copy
// of the value at key if it is currently shared or compactly encoded, so the
// caller can safely mutate it in place. Returns the (possibly unchanged) value.
func (ks *Keyspace) UnshareString(db *Database, key string) (*value.Value, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	v, ok := db.live.find(key)
	if !ok {
		return nil, nil
	}
	if !v.IsShared() && v.RefCount() == 1 && v.Encoding != value.EncodingCompact {
		return v, nil
	}
	dup, err := v.Duplicate()
	if err != nil {
		return nil, err
	}
	dup.Encoding = value.EncodingRaw
	db.live.mu.Lock()
	db.live.overwriteLocked(key, dup)
	db.live.mu.Unlock()
	if !v.IsShared() {
		v.Release()
	}
	return dup, nil
}

// Rename moves the value at src to dst within the same Database, preserving
// any expiration. nx rejects the rename if dst already exists.
func (ks *Keyspace) Rename(db *Database, src, dst string, nx bool) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	v, ok := db.live.find(src)
	if !ok {
		return ErrNoSuchKey
	}
	if src == dst {
		if nx {
			return ErrKeyExists
		}
		return nil
	}

	// db.live.find(src) above already materialised src (and, per
	// persistentData.findLocked, its expiration record) into the top layer
	// if it was sourced from a deeper snapshot layer, so this lookup always
	// sees the correct TTL regardless of which layer originally owned it.
	var expireWhen int64
	hasExpire := false
	if r, found := db.live.expires.Find(src); found {
		if when, ok := r.WholeKeyWhen(); ok {
			expireWhen, hasExpire = when, true
		}
	}

	if _, dstExists := db.live.find(dst); dstExists {
		if nx {
			return ErrKeyExists
		}
		ks.deleteLocked(db, dst)
	}

	ks.deleteLockedNoRelease(db, src)
	db.live.insert(dst, v)
	if hasExpire {
		db.live.expires.Set(dst, "", expireWhen)
		v.SetHasExpiration(true)
	} else {
		v.SetHasExpiration(false)
	}

	ks.hooks.NotifyKeyspaceEvent(EventRenameFrom, "rename_from", src, db.ID)
	ks.hooks.NotifyKeyspaceEvent(EventRenameTo, "rename_to", dst, db.ID)
	ks.hooks.TouchWatchedKey(db.ID, src)
	ks.hooks.TouchWatchedKey(db.ID, dst)
	return nil
}

// Move transfers key from srcDB to dstDB. It fails if the two Databases are
// the same, if key is absent in srcDB, if key already exists in dstDB, or
// if cluster mode is enabled (cluster keyspaces are not independently
// addressable by database index).
func (ks *Keyspace) Move(srcDB, dstDB *Database, key string) error {
	if srcDB.ID == dstDB.ID {
		return ErrSameDatabase
	}
	if ks.cfg.ClusterEnabled {
		return ErrSyntax
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()

	v, ok := srcDB.live.find(key)
	if !ok {
		return ErrNoSuchKey
	}
	if _, exists := dstDB.live.find(key); exists {
		return ErrKeyExists
	}

	// srcDB.live.find(key) above already materialised key's expiration
	// record into the top layer if it lived deeper in the chain; see the
	// matching comment in Rename.
	var expireWhen int64
	hasExpire := false
	if r, found := srcDB.live.expires.Find(key); found {
		if when, ok := r.WholeKeyWhen(); ok {
			expireWhen, hasExpire = when, true
		}
	}

	ks.deleteLockedNoRelease(srcDB, key)
	dstDB.live.insert(key, v)
	if hasExpire {
		dstDB.live.expires.Set(key, "", expireWhen)
	}

	ks.hooks.NotifyKeyspaceEvent(EventMove, "move_from", key, srcDB.ID)
	ks.hooks.NotifyKeyspaceEvent(EventMove, "move_to", key, dstDB.ID)
	return nil
}

// SwapDB exchanges the entire keyspace contents (dict, expire set, snapshot
// chain) of two Databases in place, while each Database struct itself keeps
// its original blocking/ready/watched-key indices, per §4.4. After the
// swap, any pending blocking waiters are re-checked against the new
// contents and signalled if satisfied.
func (ks *Keyspace) SwapDB(a, b *Database) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	a.live, b.live = b.live, a.live
	a.live.dbID, b.live.dbID = a.ID, b.ID
	a.snapshotHead, b.snapshotHead = b.snapshotHead, a.snapshotHead

	for _, db := range [2]*Database{a, b} {
		db.mu.Lock()
		pending := make([]string, 0, len(db.blockingKeys))
		for key := range db.blockingKeys {
			pending = append(pending, key)
		}
		db.mu.Unlock()
		for _, key := range pending {
			if _, ok := db.live.find(key); ok {
				ks.hooks.SignalKeyReady(db.ID, key)
			}
		}
	}
}

// ScanOptions parameterises Scan, matching the MATCH/COUNT/TYPE trio
// recognised by the reference SCAN family (§6).
type ScanOptions struct {
	Match string
	Count int
	Type  value.Type
	HasType bool
}

// ScanResult is one (key, value) pair surfaced by Scan.
type ScanResult struct {
	Key   string
	Value *value.Value
}

// Scan walks db's top-level keyspace using the resumable cursor contract
// from §4.4: not a snapshot, tolerant of concurrent mutation, terminates
// when the returned cursor is zero.
func (ks *Keyspace) Scan(db *Database, cursor uint64, opts ScanOptions) (next uint64, results []ScanResult, err error) {
	if opts.Count < 0 {
		return 0, nil, ErrSyntax
	}
	// COUNT is accepted for protocol compatibility but not enforced as an
	// exact per-call batch size: Dict.Scan's documented relaxation returns
	// one whole shard per call regardless of the requested hint.
	matcher, err := compileGlob(opts.Match)
	if err != nil {
		return 0, nil, ErrSyntax
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	now := ks.now()
	// Every key this callback sees came from db.live.dict, so its TTL (if
	// any) is always in db.live.expires too: persistentData.findLocked
	// copies a key's expiration record alongside the value whenever it
	// materialises one from a deeper layer, so the two never drift apart.
	next = db.live.dict.Scan(cursor, func(key string, v *value.Value) bool {
		if opts.HasType && v.Type != opts.Type {
			return true
		}
		if r, ok := db.live.expires.Find(key); ok {
			if when, ok := r.WholeKeyWhen(); ok && when <= now {
				return true
			}
		}
		if matcher != nil && !matcher(key) {
			return true
		}
		results = append(results, ScanResult{Key: key, Value: v})
		return true
	})
	return next, results, nil
}
