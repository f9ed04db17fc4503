package util

import "runtime"

// ReasonableShardCount picks the default shard count when the caller does
// not set one: NextPow2(2*GOMAXPROCS), clamped to [1..256]. Twice the CPU
// count keeps lock contention low; 256 caps the per-shard overhead since
// every shard carries its own map and padded counters.
func ReasonableShardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n < 1 {
		n = 1
	}
	if n > 256 {
		n = 256
	}
	return n
}

// ShardIndex maps a key hash to a shard index. Shard counts produced by the
// cache are powers of two, which takes the mask path; the modulo fallback
// keeps the function correct for any count.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(shards)) {
		return int(hash & uint64(shards-1))
	}
	return int(hash % uint64(shards))
}
