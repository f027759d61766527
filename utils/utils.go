package utils

import (
	"github.com/twmb/murmur3"
	"strconv"
)

func HashStrings(ss ...string) uint64 {
	hash := murmur3.New64()
	for _, s := range ss {
		_, err := hash.Write([]byte(s))
		if err != nil {
			panic(err)
		}
		// separator keeps ("ab", "c") and ("a", "bc") apart
		_, _ = hash.Write([]byte{0})
	}
	return hash.Sum64()
}

// HashKey renders HashStrings as a fixed width hex string for use in storage keys.
func HashKey(ss ...string) string {
	key := strconv.FormatUint(HashStrings(ss...), 16)
	for len(key) < 16 {
		key = "0" + key
	}
	return key
}
