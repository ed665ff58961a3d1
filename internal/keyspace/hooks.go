package keyspace

// EventKind classifies a keyspace notification, mirroring the class bits
// the reference notifyKeyspaceEvent uses (generic, expired, string, ...).
type EventKind uint8

const (
	EventGeneric EventKind = iota
	EventExpired
	EventExpire
	EventRenameFrom
	EventRenameTo
	EventMove
	EventRestore
	EventNew
)

// Hooks bundles every external collaborator the keyspace engine calls out
// to. A caller that doesn't need a given side effect wires in a no-op; the
// engine always calls through the interface rather than checking for nil,
// so NoopHooks exists to make that convenient.
type Hooks interface {
	// NotifyKeyspaceEvent fires a pub/sub keyspace notification.
	NotifyKeyspaceEvent(kind EventKind, event string, key string, dbID int)

	// TouchWatchedKey invalidates any MULTI/EXEC WATCH on key.
	TouchWatchedKey(dbID int, key string)

	// TrackingInvalidateKey informs client-side caching of a key change.
	TrackingInvalidateKey(key string)

	// SignalKeyReady wakes blocked clients (BLPOP-style) waiting on key.
	SignalKeyReady(dbID int, key string)

	// FeedAppendOnly propagates a command to the append-only log.
	FeedAppendOnly(dbID int, argv []string)

	// FeedReplicas propagates a command to connected replicas.
	FeedReplicas(dbID int, argv []string)

	// SlotToKeyAdd/Del maintain the cluster hash-slot to key index.
	SlotToKeyAdd(key string)
	SlotToKeyDel(key string)

	// StorageInsert/Erase/Retrieve/Clear back an optional on-disk tier fed
	// by PersistentData's change tracking.
	StorageInsert(dbID int, key string, payload []byte)
	StorageErase(dbID int, key string)
	StorageRetrieve(dbID int, key string) ([]byte, bool)
	StorageClear(dbID int)
}

// NoopHooks implements Hooks with every method a no-op. Embed and override
// selectively, or use as-is when no collaborator is wired yet.
type NoopHooks struct{}

func (NoopHooks) NotifyKeyspaceEvent(EventKind, string, string, int)    {}
func (NoopHooks) TouchWatchedKey(int, string)                          {}
func (NoopHooks) TrackingInvalidateKey(string)                         {}
func (NoopHooks) SignalKeyReady(int, string)                           {}
func (NoopHooks) FeedAppendOnly(int, []string)                         {}
func (NoopHooks) FeedReplicas(int, []string)                           {}
func (NoopHooks) SlotToKeyAdd(string)                                  {}
func (NoopHooks) SlotToKeyDel(string)                                  {}
func (NoopHooks) StorageInsert(int, string, []byte)                    {}
func (NoopHooks) StorageErase(int, string)                             {}
func (NoopHooks) StorageRetrieve(int, string) ([]byte, bool)           { return nil, false }
func (NoopHooks) StorageClear(int)                                     {}

var _ Hooks = NoopHooks{}
