package hash

import (
	"sync"

	"github.com/zeebo/blake3"
)

// pool amortizes allocations of blake3 hashers: entries are hashed on every
// create, join and coordinate lookup.
var pool = &sync.Pool{
	New: func() any {
		return blake3.New()
	},
}

// GetHasher returns a blake3 hasher from the pool.
// Callers must Reset the hasher before returning it with PutHasher.
func GetHasher() *blake3.Hasher {
	return pool.Get().(*blake3.Hasher)
}

// PutHasher returns the hasher back to the pool.
func PutHasher(hasher *blake3.Hasher) {
	pool.Put(hasher)
}
