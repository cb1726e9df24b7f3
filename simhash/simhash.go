// Package simhash fingerprints page text so near-identical directory pages
// can be recognised after a pagination step.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// DefaultThreshold is the largest Hamming distance at which two page
// fingerprints still count as the same page.
const DefaultThreshold = 3

// Fingerprint computes a 64-bit SimHash of text. Tokens are lowercased
// words joined into overlapping word pairs, so reordering a listing moves
// the fingerprint while trivial edits barely do.
func Fingerprint(text string) uint64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	tokens := shingles(words, 2)
	if len(tokens) == 0 {
		tokens = words
	}

	var vector [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b are within threshold bits of each other.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// shingles joins every run of n consecutive tokens.
func shingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}

// Tracker counts consecutive pages that look like the previous one and
// contributed nothing new. The zero value is not usable; see NewTracker.
type Tracker struct {
	threshold int
	limit     int

	last   uint64
	seen   bool
	streak int
}

// NewTracker returns a tracker that reports staleness after limit
// consecutive unchanged pages. limit <= 0 disables the check.
func NewTracker(limit, threshold int) *Tracker {
	return &Tracker{threshold: threshold, limit: limit}
}

// Observe records the text of a newly reached page and whether it yielded
// any new items. It reports true once the stale streak reaches the limit.
func (t *Tracker) Observe(text string, producedNew bool) bool {
	fp := Fingerprint(text)
	same := t.seen && Similar(fp, t.last, t.threshold)
	t.last, t.seen = fp, true

	if same && !producedNew {
		t.streak++
	} else {
		t.streak = 0
	}
	return t.limit > 0 && t.streak >= t.limit
}

// Streak returns the current run of unchanged pages.
func (t *Tracker) Streak() int {
	return t.streak
}
