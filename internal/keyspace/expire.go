package keyspace

// expireIfNeededLocked implements §4.5's lazy expiration protocol. Caller
// must already hold ks.mu. Returns true iff key is expired as of now,
// whether or not it was actually removed (a non-active replica reports
// expired without deleting; the primary's DEL will arrive separately).
func (ks *Keyspace) expireIfNeededLocked(db *Database, key string) bool {
	// The TTL record may still live in a deeper, not-yet-materialised parent
	// layer (the common case right after SnapshotEngine.Create), so this
	// must walk the whole chain rather than only the live layer's own
	// ExpireSet — same reasoning as Database.KeyCount and keys.go's
	// KeysAsync.
	_, r, ok := db.live.findThreadsafeLockedWithExpire(key)
	if !ok || r == nil {
		return false
	}
	when, ok := r.WholeKeyWhen()
	if !ok {
		return false
	}
	now := ks.now()
	if now <= when {
		return false
	}

	if ks.cfg.IsReplica && !ks.cfg.ActiveReplica {
		return true
	}

	ks.expired.Inc()
	ks.hooks.FeedAppendOnly(db.ID, []string{"DEL", key})
	ks.hooks.FeedReplicas(db.ID, []string{"DEL", key})
	ks.hooks.NotifyKeyspaceEvent(EventExpired, "expired", key, db.ID)
	ks.deleteLocked(db, key)
	logger.Debug().Int("db", db.ID).Str("key", key).Msg("key expired")
	return true
}

// SetExpire installs or updates the expiration for key (subkey "" for a
// whole-key TTL), per §4.5. The key-string stored in the ExpireRecord
// always aliases the Dict's own copy, since ExpireSet.Set receives the
// same string passed in rather than a freshly allocated one — Go strings
// are immutable value types, so there is no separate ownership concern the
// reference implementation has with sds buffers.
func (ks *Keyspace) SetExpire(db *Database, key string, whenMs int64, subkey string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	v, ok := db.live.find(key)
	if !ok {
		return ErrNoSuchKey
	}
	if v.IsShared() {
		dup, err := v.Duplicate()
		if err != nil {
			return err
		}
		db.live.mu.Lock()
		db.live.overwriteLocked(key, dup)
		db.live.mu.Unlock()
		v = dup
	}
	db.live.expires.Set(key, subkey, whenMs)
	v.SetHasExpiration(true)
	db.avgTTL.observe(float64(whenMs - ks.now()))

	ks.hooks.NotifyKeyspaceEvent(EventExpire, "expire", key, db.ID)
	ks.hooks.TouchWatchedKey(db.ID, key)
	return nil
}

// RemoveExpire clears the whole expiration record for key (all subkeys),
// per removeExpire. Returns false if key carried no expiration.
func (ks *Keyspace) RemoveExpire(db *Database, key string) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if !db.live.expires.Remove(key) {
		return false
	}
	if v, ok := db.live.dict.Find(key); ok {
		v.SetHasExpiration(false)
	}
	return true
}

// RemoveSubkeyExpire clears one subkey's expiration entry. If that was the
// last entry on the record, the whole record is removed and the owning
// Value's has_expiration flag is cleared, per removeSubkeyExpire.
func (ks *Keyspace) RemoveSubkeyExpire(db *Database, key, subkey string) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	removed, cleared := db.live.expires.RemoveSubkey(key, subkey)
	if !removed {
		return false
	}
	if cleared {
		if v, ok := db.live.dict.Find(key); ok {
			v.SetHasExpiration(false)
		}
	}
	return true
}

// ProbeActive runs one batch of active expiration: it walks db's ExpireSet
// in earliest-first order, expiring every whole-key record already past
// now, bounded by budget entries. It returns the number of keys expired,
// for a caller-side duty-cycle controller to throttle the polling rate
// against, matching the "probe the next N candidates" contract of §4.5.
func (ks *Keyspace) ProbeActive(db *Database, budget int) int {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	now := ks.now()
	expiredCount := 0
	for i := 0; i < budget; i++ {
		rec, ok := db.live.expires.PeekEarliest()
		if !ok || rec.MinWhen > now {
			break
		}
		if _, isWholeKey := rec.WholeKeyWhen(); isWholeKey {
			ks.expireIfNeededLocked(db, rec.Key)
			expiredCount++
			continue
		}
		// Earliest entry is a subkey-only expiration; whole-key lazy
		// expiration does not apply, so just advance past it by removing
		// the expired subkey directly.
		for subkey, when := range rec.Entries() {
			if when <= now {
				db.live.expires.RemoveSubkey(rec.Key, subkey)
				break
			}
		}
		expiredCount++
	}
	if expiredCount > 0 {
		logger.Debug().Int("db", db.ID).Int("count", expiredCount).Msg("active expiration probe")
	}
	return expiredCount
}
