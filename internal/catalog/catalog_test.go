package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceOf(t *testing.T) {
	cases := map[string]int64{
		"Beginner":                   85000,
		"Intermediate":               85000,
		"Kids Level 3":               60000,
		"Kids High Level 2":          60000,
		"Listening Pre-Intermediate": 30000,
		"Listening Intermediate":     35000,
	}
	for title, want := range cases {
		assert.Equal(t, want, PriceOf(title), title)
	}
}

func TestPriceOfUnknownTitle(t *testing.T) {
	assert.Zero(t, PriceOf("Advanced"))
	assert.Zero(t, PriceOf(""))
	assert.Zero(t, PriceOf("beginner"))
}

func TestEntriesMatchPriceOf(t *testing.T) {
	all := Entries()
	assert.Len(t, all, 16)
	for _, e := range all {
		assert.Equal(t, e.Price, PriceOf(e.Title))
	}
	assert.Equal(t, len(all), len(Titles()))
	assert.Equal(t, "Beginner", Titles()[0])
}

func TestEntriesReturnsCopy(t *testing.T) {
	all := Entries()
	all[0].Price = 1

	assert.Equal(t, int64(85000), PriceOf("Beginner"))
	assert.Equal(t, int64(85000), Entries()[0].Price)
}
