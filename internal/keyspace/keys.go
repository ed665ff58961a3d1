package keyspace

import (
	"sync"

	"github.com/flashdb/flashdb/internal/value"
)

// KeysAsync implements the pattern-enumeration contract from §4.4: for a
// non-trivial scan of the whole keyspace, take a snapshot, walk it off the
// main lock on a worker goroutine, stream results through the returned
// channel, and release the snapshot once the walk (or an early consumer
// close) completes. The caller drains the channel until it closes; closing
// cancel early still guarantees the snapshot is released.
func (ks *Keyspace) KeysAsync(db *Database, pattern string) (results <-chan ScanResult, cancel func(), err error) {
	matcher, err := compileGlob(pattern)
	if err != nil {
		return nil, nil, ErrSyntax
	}

	ks.mu.Lock()
	checkpoint := uint64(ks.now())
	ks.mu.Unlock()

	snap := db.Snapshots().Create(checkpoint)

	out := make(chan ScanResult, 64)
	var closeOnce sync.Once
	stop := make(chan struct{})
	cancelFn := func() {
		closeOnce.Do(func() { close(stop) })
	}

	go func() {
		defer func() {
			_ = db.Snapshots().Release(snap)
			close(out)
		}()
		now := ks.now()
		seen := make(map[string]struct{})
		canceled := false
		for cur := snap.layer; cur != nil && !canceled; cur = cur.parent {
			cur.dict.IterSafe(func(key string, v *value.Value) bool {
				select {
				case <-stop:
					canceled = true
					return false
				default:
				}
				if _, already := seen[key]; already {
					return true
				}
				seen[key] = struct{}{}
				if r, ok := cur.expires.Find(key); ok {
					if when, ok := r.WholeKeyWhen(); ok && when <= now {
						return true
					}
				}
				if matcher != nil && !matcher(key) {
					return true
				}
				select {
				case out <- ScanResult{Key: key, Value: v}:
				case <-stop:
					canceled = true
					return false
				}
				return true
			})
			for key := range cur.tombstones {
				seen[key] = struct{}{}
			}
		}
	}()

	return out, cancelFn, nil
}
