package keyspace

// Policy selects the recency-tracking discipline applied on every read,
// per §4.4's raw_lookup contract.
type Policy uint8

const (
	PolicyLRU Policy = iota
	PolicyLFU
)

// Config carries the engine-wide parameters that the reference
// implementation keeps as global mutable server state (Design Note 9); here
// they are passed explicitly into NewKeyspace instead; see
// SPEC_FULL.md §10.1.
type Config struct {
	Policy Policy

	// IsReplica marks this instance as a read replica of some primary;
	// lookup_read enforces read-only expiry semantics when true (§4.4).
	IsReplica bool

	// ActiveReplica marks a writable replica participating in
	// active-active replication: lazy expiration deletes expired keys on
	// it as a primary would. Merge does not consult this flag.
	ActiveReplica bool

	// ClusterEnabled toggles SlotIndex maintenance and forbids Move.
	ClusterEnabled bool

	// RandomKeyTries bounds RandomKey's retry budget before it gives up
	// skipping expired candidates (SPEC_FULL.md §10.3).
	RandomKeyTries int

	// LFUDecayMinutes and LFUIncrProbability parameterise
	// value.Value.TouchLFU.
	LFUDecayMinutes    uint32
	LFUIncrProbability float64

	// Now returns the current wall-clock time in milliseconds. Overridable
	// for deterministic tests; defaults to nowMillis.
	Now func() int64
}

// DefaultConfig returns the configuration used when no collaborator
// overrides anything.
func DefaultConfig() Config {
	return Config{
		Policy:             PolicyLRU,
		RandomKeyTries:     100,
		LFUDecayMinutes:    1,
		LFUIncrProbability: 1.0,
		Now:                nowMillis,
	}
}
