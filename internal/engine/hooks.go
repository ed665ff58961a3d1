package engine

import (
	"github.com/flashdb/flashdb/internal/cdc"
	"github.com/flashdb/flashdb/internal/hotkeys"
	"github.com/flashdb/flashdb/internal/keyspace"
	"github.com/flashdb/flashdb/internal/slotindex"
	"github.com/flashdb/flashdb/internal/wal"
)

// keyspaceHooks wires the keyspace engine's collaborator contract (§6) to
// this repository's existing infrastructure: the WAL backs
// feed_append_only/storage.*, the CDC stream backs keyspace notifications,
// the hotkeys tracker observes every notified key, and a SlotIndex backs
// the cluster slot hooks. Watched-key invalidation and client-ready
// signalling are left as the embedded NoopHooks no-ops; nothing in this
// repository overrides TouchWatchedKey or SignalKeyReady.
type keyspaceHooks struct {
	keyspace.NoopHooks

	wal       *wal.WAL
	cdc       *cdc.Stream
	hotkeys   *hotkeys.Tracker
	slots     *slotindex.SlotIndex
}

func newKeyspaceHooks(w *wal.WAL, c *cdc.Stream, h *hotkeys.Tracker, s *slotindex.SlotIndex) *keyspaceHooks {
	return &keyspaceHooks{wal: w, cdc: c, hotkeys: h, slots: s}
}

func (k *keyspaceHooks) NotifyKeyspaceEvent(kind keyspace.EventKind, event string, key string, dbID int) {
	k.hotkeys.Record(key)
	op := cdc.OpSet
	switch kind {
	case keyspace.EventExpired:
		op = cdc.OpDel
	case keyspace.EventGeneric:
		if event == "del" {
			op = cdc.OpDel
		}
	}
	k.cdc.Record(op, key, "", "")
}

func (k *keyspaceHooks) FeedAppendOnly(dbID int, argv []string) {
	if len(argv) == 0 {
		return
	}
	switch argv[0] {
	case "DEL":
		if len(argv) >= 2 {
			_ = k.wal.Append(wal.Record{Type: wal.OpDelete, Key: []byte(argv[1])})
		}
	}
}

func (k *keyspaceHooks) FeedReplicas(dbID int, argv []string) {
	// Replica propagation transport is an external collaborator (§1); this
	// engine only guarantees the hook fires with the right argv shape.
}

func (k *keyspaceHooks) SlotToKeyAdd(key string) { k.slots.Add(key) }
func (k *keyspaceHooks) SlotToKeyDel(key string) { k.slots.Del(key) }

func (k *keyspaceHooks) StorageInsert(dbID int, key string, payload []byte) {
	_ = k.wal.Append(wal.Record{Type: wal.OpSet, Key: []byte(key), Value: payload})
}

func (k *keyspaceHooks) StorageErase(dbID int, key string) {
	_ = k.wal.Append(wal.Record{Type: wal.OpDelete, Key: []byte(key)})
}
