package service

import (
	"hash/fnv"
	"math/rand"
)

// substream derives an independent pseudo-random source for one
// subscription in one period. Outcomes therefore depend only on
// (seed, subscription, period), never on evaluation order, so batches can
// be parallelized without breaking reproducibility.
func substream(seed int64, subscriptionID string, period int) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(subscriptionID))
	mixed := splitmix64(uint64(seed) ^ h.Sum64() ^ (uint64(period+1) * 0x9e3779b97f4a7c15))
	return rand.New(rand.NewSource(int64(mixed)))
}

// splitmix64 finalizer, used to decorrelate adjacent period seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
