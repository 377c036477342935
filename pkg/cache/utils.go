package cache

import (
	"fmt"
	"hash/fnv"
)

// Key joins parts into a colon-delimited cache key.
func Key(parts ...interface{}) string {
	key := ""
	for i, part := range parts {
		if i == 0 {
			key = fmt.Sprintf("%v", part)
			continue
		}
		key = fmt.Sprintf("%s:%v", key, part)
	}
	return key
}

// HashKey shortens an arbitrary key to a fixed-width hex digest, for
// keys built from user input that may exceed sane Redis key lengths.
func HashKey(key string) string {
	h := fnv.New64a()
	h.Write([]byte(key))
	return fmt.Sprintf("%016x", h.Sum64())
}
