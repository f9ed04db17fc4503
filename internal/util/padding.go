package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is assumed to be 64 bytes, which holds for the common
// amd64/arm64 targets. The runtime's own constant is not exported.
const CacheLineSize = 64

// CacheLinePad separates groups of hot fields into distinct cache lines so
// writes to one group do not invalidate the other (false sharing).
type CacheLinePad struct{ _ [CacheLineSize]byte }

// PaddedAtomicInt64 is an atomic int64 occupying a full cache line.
// The shard hit/miss counters use these: every shard bumps its own
// counters, and padding keeps neighbouring shards' lines independent.
type PaddedAtomicInt64 struct {
	atomic.Int64
	_ [CacheLineSize - 8]byte
}

// PaddedAtomicUint64 is the uint64 counterpart of PaddedAtomicInt64.
type PaddedAtomicUint64 struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte
}

// Compile-time checks: each padded counter must be exactly one cache line.
var (
	_ [CacheLineSize - int(unsafe.Sizeof(PaddedAtomicInt64{}))]byte
	_ [CacheLineSize - int(unsafe.Sizeof(PaddedAtomicUint64{}))]byte
)
