package lsmtree

import "errors"

// Sentinel errors for the engine's error kinds.
var (
	// ErrEmptyKey is a usage error: the engine never accepts "" as a key.
	ErrEmptyKey = errors.New("lsmtree: key must be a non-empty string")

	// ErrEmptyFlush is an internal invariant breach: the writer must
	// never be invoked with zero entries.
	ErrEmptyFlush = errors.New("lsmtree: refusing to write an empty sorted table")

	// ErrOutOfOrder signals the writer received entries not in strictly
	// ascending key order.
	ErrOutOfOrder = errors.New("lsmtree: entries must be strictly ascending by key")

	// ErrBadMagic signals a corrupt or foreign sorted table footer.
	ErrBadMagic = errors.New("lsmtree: sorted table footer magic mismatch")

	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("lsmtree: engine is closed")

	// ErrLocked signals the data directory is already owned by another
	// open engine instance.
	ErrLocked = errors.New("lsmtree: data directory is locked by another engine instance")
)
