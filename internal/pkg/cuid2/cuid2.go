// Package cuid2 generates short, prefixed, base62 identifiers such as
// "hyd_1rK5iqa8Zk2mN4pQ6rS0tU" used for hydration run ids.
package cuid2

import (
	crypto_rand "crypto/rand"
	"strings"
	"time"
)

// Base62 alphabet: 0-9, A-Z, a-z (62 characters)
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	timestampLength         = 6
	defaultSortableLength   = 18
	defaultRandomOnlyLength = 24
)

// EncodeTimestamp encodes Unix seconds as a fixed-width 6 character base62 string.
// Output sorts lexicographically in time order for ~1800 years from the epoch.
func EncodeTimestamp(seconds int64) string {
	out := make([]byte, timestampLength)
	for i := timestampLength - 1; i >= 0; i-- {
		out[i] = base62Alphabet[seconds%62]
		seconds /= 62
	}
	return string(out)
}

// randomBase62 returns n uniformly distributed base62 characters.
// Bytes >= 248 are rejected so that byte%62 is unbiased.
func randomBase62(n int) string {
	var b strings.Builder
	b.Grow(n)
	buf := make([]byte, n+8)
	for b.Len() < n {
		if _, err := crypto_rand.Read(buf); err != nil {
			panic("failed to read random bytes: " + err.Error())
		}
		for _, v := range buf {
			if v >= 248 {
				continue
			}
			b.WriteByte(base62Alphabet[v%62])
			if b.Len() == n {
				break
			}
		}
	}
	return b.String()
}

// NewID returns prefix_ followed by a time-sortable timestamp and 18 random characters
func NewID(prefix string) string {
	return prefix + "_" + EncodeTimestamp(time.Now().Unix()) + randomBase62(defaultSortableLength)
}

// NewRandomID returns prefix_ followed by length random characters (24 when length <= 0)
func NewRandomID(prefix string, length int) string {
	if length <= 0 {
		length = defaultRandomOnlyLength
	}
	return prefix + "_" + randomBase62(length)
}
