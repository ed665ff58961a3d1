package keyspace

import "github.com/cockroachdb/errors"

// Sentinel errors for the recoverable half of the error taxonomy. Lookup
// misses are not represented here: they return a nil *value.Value, never an
// error, matching the reference lookupKeyRead contract. AlreadyExists is a
// programmer-error contract violation and is raised as a panic instead
// (see Keyspace.Add, which panics with ErrKeyExists) rather than returned.
var (
	// ErrWrongType is returned when an operation is applied to a key whose
	// Value.Type does not support it. The keyspace engine only asserts this
	// in debug builds; production callers are expected to check the type
	// themselves before calling in.
	ErrWrongType = errors.New("keyspace: wrong type for operation")

	// ErrOutOfRange is returned for a database index outside [0, dbCount).
	ErrOutOfRange = errors.New("keyspace: database index out of range")

	// ErrSyntax is returned for malformed SCAN-family options.
	ErrSyntax = errors.New("keyspace: syntax error")

	// ErrTransientBusy is returned when an operation cannot proceed right
	// now because of a concurrent background fork (e.g. releasing a
	// snapshot while a save holder is active) but should be retried by the
	// caller rather than treated as a failure.
	ErrTransientBusy = errors.New("keyspace: transiently busy, retry")

	// ErrNoSuchKey is returned by operations (rename, move) whose contract
	// calls for a visible error rather than a bare nil, unlike lookup.
	ErrNoSuchKey = errors.New("keyspace: no such key")

	// ErrSameDatabase is returned by Move when src and dst name the same
	// database.
	ErrSameDatabase = errors.New("keyspace: source and destination are the same database")

	// ErrKeyExists is returned by Rename in NX mode and by Move when the
	// destination already holds the key.
	ErrKeyExists = errors.New("keyspace: destination key already exists")
)
