package bptree

import "errors"

var (
	// ErrBadOpcodes is returned by StartScan when lowOp/highOp aren't a
	// valid (GT|GTE, LT|LTE) pair.
	ErrBadOpcodes = errors.New("bptree: invalid scan opcodes")

	// ErrBadScanrange is returned by StartScan when lowVal > highVal.
	ErrBadScanrange = errors.New("bptree: low value is greater than high value")

	// ErrNoSuchKeyFound is returned by StartScan when the requested
	// range is provably empty.
	ErrNoSuchKeyFound = errors.New("bptree: no key satisfies the scan range")

	// ErrIndexScanCompleted is returned by ScanNext once every matching
	// entry has been emitted.
	ErrIndexScanCompleted = errors.New("bptree: scan completed")

	// ErrScanNotInitialized is returned by ScanNext/EndScan when no
	// scan is currently executing.
	ErrScanNotInitialized = errors.New("bptree: no scan is in progress")

	// ErrKeyNotFound is returned by Find when no entry has the
	// requested key.
	ErrKeyNotFound = errors.New("bptree: key not found")

	// ErrIndexMetaMismatch is returned by OpenIndex when an existing
	// index file's persisted relation name/attribute offset/datatype
	// doesn't match what the caller asked to open it with.
	ErrIndexMetaMismatch = errors.New("bptree: index file metadata does not match requested index")
)
