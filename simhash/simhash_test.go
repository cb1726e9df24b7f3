package simhash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_IdenticalTexts(t *testing.T) {
	text := "Acme Pte Ltd\nFintech\nBolt Labs\nEdtech"
	assert.Equal(t, Fingerprint(text), Fingerprint(text))
}

func TestFingerprint_IgnoresCaseAndSpacing(t *testing.T) {
	assert.Equal(t,
		Fingerprint("Acme   Pte Ltd\nFintech"),
		Fingerprint("acme pte ltd fintech"),
	)
}

func TestFingerprint_DifferentPages(t *testing.T) {
	page1 := "Acme Fintech Singapore Bolt Labs Edtech Singapore Cobalt Robotics Deeptech Singapore"
	page2 := "Dynamo Health Medtech Jurong Echo Foods Agritech Tampines Flux Energy Cleantech Changi"
	assert.Greater(t, Distance(Fingerprint(page1), Fingerprint(page2)), DefaultThreshold)
}

func TestFingerprint_EmptyInput(t *testing.T) {
	assert.Zero(t, Fingerprint(""))
	assert.Zero(t, Fingerprint("  \n\t "))
}

func TestFingerprint_SingleWord(t *testing.T) {
	fp := Fingerprint("hello")
	assert.NotZero(t, fp)
	assert.Equal(t, fp, Fingerprint("HELLO"))
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b uint64
		want int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0xFF, 0x00, 8},
		{^uint64(0), 0, 64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Distance(tt.a, tt.b))
	}
}

func TestSimilar(t *testing.T) {
	assert.True(t, Similar(0b1011, 0b1001, 1))
	assert.False(t, Similar(0b1011, 0b0100, 3))
}

func TestShingles(t *testing.T) {
	assert.Equal(t, []string{"a b", "b c"}, shingles([]string{"a", "b", "c"}, 2))
	assert.Nil(t, shingles([]string{"a"}, 2))
}

func TestTracker_StopsAfterLimit(t *testing.T) {
	page := strings.Repeat("Acme Fintech Singapore ", 20)
	tr := NewTracker(2, DefaultThreshold)

	assert.False(t, tr.Observe(page, true), "first page has nothing to compare with")
	assert.False(t, tr.Observe(page, false))
	assert.Equal(t, 1, tr.Streak())
	assert.True(t, tr.Observe(page, false))
}

func TestTracker_ResetsOnProgress(t *testing.T) {
	page := strings.Repeat("Acme Fintech Singapore ", 20)
	tr := NewTracker(2, DefaultThreshold)

	tr.Observe(page, true)
	tr.Observe(page, false)
	assert.False(t, tr.Observe(page, true), "new items reset the streak")
	assert.Equal(t, 0, tr.Streak())

	assert.False(t, tr.Observe(page, false))
	assert.False(t, tr.Observe("Dynamo Health Medtech Jurong Echo Foods Agritech Tampines", false), "a changed page resets the streak")
	assert.Equal(t, 0, tr.Streak())
}

func TestTracker_Disabled(t *testing.T) {
	tr := NewTracker(0, DefaultThreshold)
	for i := 0; i < 5; i++ {
		assert.False(t, tr.Observe("same", false))
	}
}
