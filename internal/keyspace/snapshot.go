package keyspace

import (
	"github.com/google/uuid"

	"github.com/flashdb/flashdb/internal/dict"
	"github.com/flashdb/flashdb/internal/expireset"
	"github.com/flashdb/flashdb/internal/value"
)

// Snapshot is a handle to a frozen, read-only layer of a Database's
// PersistentData chain, returned by SnapshotEngine.Create. Consumers must
// call SnapshotEngine.Release exactly once per handle.
type Snapshot struct {
	ID       uuid.UUID
	layer    *persistentData
	checkpoint uint64
}

// SnapshotEngine owns creation, reference counting, and merge-on-release of
// the layered snapshot chain rooted at a Database's live PersistentData.
// This realises §4.3's create_snapshot/end_snapshot contract and §4.6's
// failure semantics (creation is infallible; release never fails, though it
// may report ErrTransientBusy while a save fork holds the chain busy).
type SnapshotEngine struct {
	db *Database

	// saveForkActive mirrors the reference's "don't release a snapshot
	// while a background save is forked" guard from Design Note 9's
	// resolved open question: Release returns ErrTransientBusy while
	// this is true.
	saveForkActive bool
}

func newSnapshotEngine(db *Database) *SnapshotEngine {
	return &SnapshotEngine{db: db}
}

// Create returns a snapshot of db's current state as of mvccCheckpoint. If
// the current head snapshot already covers this checkpoint, it is reused
// (its ref count incremented) rather than layering a new one.
func (e *SnapshotEngine) Create(mvccCheckpoint uint64) *Snapshot {
	live := e.db.live
	live.mu.Lock()
	defer live.mu.Unlock()

	if head := e.db.snapshotHead; head != nil && mvccCheckpoint <= head.checkpoint {
		head.layer.refCount++
		return head
	}

	frozen := &persistentData{
		dict:       live.dict,
		expires:    live.expires,
		tombstones: live.tombstones,
		parent:     live.parent,
		refCount:   1,
		hooks:      live.hooks,
		dbID:       live.dbID,
	}
	// The live layer keeps its parent chain reachable only through the
	// frozen copy now; it gets fresh, empty structures to mutate going
	// forward.
	live.dict = dict.New()
	live.expires = expireset.New()
	live.tombstones = make(map[string]struct{})
	live.parent = frozen
	frozen.child = live

	// Every deeper snapshot in the chain must stay alive at least as long
	// as this new one, since reads through it may still fall through.
	for cur := frozen.parent; cur != nil; cur = cur.parent {
		cur.refCount++
	}

	snap := &Snapshot{ID: newSnapshotID(), layer: frozen, checkpoint: mvccCheckpoint}
	e.db.snapshotHead = snap
	logger.Debug().Int("db", e.db.ID).Str("snapshot", snap.ID.String()).Msg("snapshot created")
	return snap
}

// Release decrements the snapshot's ref count. When it drops to zero and
// the snapshot is the bottommost, merge its contents into its child layer
// and unlink it, cascading upward while ancestors are also unreferenced.
func (e *SnapshotEngine) Release(s *Snapshot) error {
	if e.saveForkActive {
		return ErrTransientBusy
	}
	e.db.live.mu.Lock()
	defer e.db.live.mu.Unlock()

	s.layer.refCount--
	if s.layer.refCount > 0 {
		return nil
	}
	e.mergeUpwardLocked(s.layer)
	if e.db.snapshotHead != nil && e.db.snapshotHead.layer == s.layer {
		e.db.snapshotHead = nil
	}
	logger.Debug().Int("db", e.db.ID).Str("snapshot", s.ID.String()).Msg("snapshot released")
	return nil
}

// mergeUpwardLocked merges frozen (ref count already zero) into its child,
// then, if the child is itself a zero-refcount snapshot (not the live
// layer), recurses. Caller holds db.live.mu.
func (e *SnapshotEngine) mergeUpwardLocked(frozen *persistentData) {
	child := frozen.child
	if child == nil {
		// Bottommost with no child: nothing references it and nothing
		// depends on it; just drop it.
		return
	}

	// For every tombstone recorded in child, erase the matching key from
	// frozen so the merged result doesn't resurrect it.
	for key := range child.tombstones {
		frozen.dict.Delete(key)
		frozen.expires.Remove(key)
	}
	// For every live key in child, overwrite (or insert) into frozen, then
	// fold in child's expiration entries on top.
	child.dict.IterSafe(func(key string, v *value.Value) bool {
		frozen.dict.Set(key, v)
		return true
	})
	child.expires.All(func(r *expireset.Record) {
		for subkey, when := range r.Entries() {
			frozen.expires.Set(r.Key, subkey, when)
		}
	})

	// child now adopts frozen's (merged) structures and its parent.
	child.dict = frozen.dict
	child.expires = frozen.expires
	child.tombstones = make(map[string]struct{})
	child.parent = frozen.parent
	if frozen.parent != nil {
		frozen.parent.child = child
	}

	if child != e.db.live && child.refCount == 0 {
		e.mergeUpwardLocked(child)
	}
}

func newSnapshotID() uuid.UUID {
	return uuid.New()
}
