package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString returns the hex md5 of the input. The widget's external
// producers hash question text and client IPs the same way, so the
// digests must stay comparable across systems.
func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}
