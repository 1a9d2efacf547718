package doi

import (
	"crypto/rand"
)

// DefaultSuffixLength is the length of generated suffixes.
const DefaultSuffixLength = 8

// suffixChars holds the characters of generated suffixes. Upper case letters are left
// out since DOIs are case insensitive.
const suffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSuffix returns a random suffix of n lowercase letters and digits.
func GenerateSuffix(n int) string {
	if n <= 0 {
		n = DefaultSuffixLength
	}

	// bytes at or above limit are rejected so every character is equally likely
	limit := 256 - 256%len(suffixChars)

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic("doi: reading random bytes: " + err.Error())
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, suffixChars[int(b)%len(suffixChars)])
			if len(out) == n {
				break
			}
		}
	}

	return string(out)
}
