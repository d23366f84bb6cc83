package util

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// FNV-1a 64 bit parameters
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// HashString generates a 64 bit hash value for a string with a seed.
// It uses FNV-1a, so the result only depends on the input bytes and the seed and
// is identical across builds, processes and architectures.
func HashString(s string, seed uint64) uint64 {
	hash := uint64(fnvOffset64) ^ seed

	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= fnvPrime64
	}

	return hash
}
