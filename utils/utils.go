package utils

import (
	"fmt"

	"github.com/twmb/murmur3"
)

// HashStrings fingerprints a sequence of strings.
func HashStrings(ss ...string) uint64 {
	hash := murmur3.New64()
	for _, s := range ss {
		// separator keeps ("ab","c") and ("a","bc") apart
		_, err := hash.Write(append([]byte(s), 0))
		if err != nil {
			panic(err)
		}
	}
	return hash.Sum64()
}

func RecoverWithError(err *error) {
	if rv := recover(); rv != nil {
		*err = fmt.Errorf("got panic: %v", rv)
	}
}
