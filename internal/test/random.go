package test

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

const asciiLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomASCIIString returns letters and digits, between minLen and maxLen long.
func RandomASCIIString(minLen, maxLen int) string {
	minLen = max(minLen, 1)
	maxLen = max(maxLen, minLen)
	buf := make([]byte, minLen+rand.Intn(maxLen-minLen+1))
	for i := range buf {
		buf[i] = asciiLetters[rand.Intn(len(asciiLetters))]
	}
	return string(buf)
}

// RandomContentRefs returns n unique review media references.
func RandomContentRefs(n int) []string {
	refs := make([]string, n)
	for i := range refs {
		refs[i] = fmt.Sprintf("media/reviews/%s.jpg", uuid.NewString())
	}
	return refs
}

// RandomDestination returns a payout account reference.
func RandomDestination() string {
	return "acct:" + RandomASCIIString(10, 10)
}
