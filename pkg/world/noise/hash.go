package noise

// Hash2 mixes a seed and a 2D integer coordinate into a well-distributed
// 32-bit value. It is a pure function: the same inputs always hash the same.
func Hash2(seed int64, x, z int) uint32 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return uint32(mix64(v) >> 32)
}

// Pick selects one of the candidates using h.
func Pick[T any](h uint32, candidates ...T) T {
	return candidates[h%uint32(len(candidates))]
}

// splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
