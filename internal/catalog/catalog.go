// Package catalog holds the fixed title to unit price table of the shop.
package catalog

// Entry is a catalog title with its unit price in the smallest currency unit.
type Entry struct {
	Title string `json:"title"`
	Price int64  `json:"price"`
}

var entries = []Entry{
	{"Beginner", 85000},
	{"Elementary", 85000},
	{"Pre-Intermediate", 85000},
	{"Intermediate", 85000},
	{"Kids Level 1", 60000},
	{"Kids Level 2", 60000},
	{"Kids Level 3", 60000},
	{"Kids Level 4", 60000},
	{"Kids Level 5", 60000},
	{"Kids Level 6", 60000},
	{"Kids High Level 1", 60000},
	{"Kids High Level 2", 60000},
	{"Listening Beginner", 30000},
	{"Listening Elementary", 30000},
	{"Listening Pre-Intermediate", 30000},
	{"Listening Intermediate", 35000},
}

var prices = func() map[string]int64 {
	m := make(map[string]int64, len(entries))
	for _, e := range entries {
		m[e.Title] = e.Price
	}
	return m
}()

// PriceOf returns the unit price of title, or 0 when the title is unknown.
func PriceOf(title string) int64 {
	return prices[title]
}

// Entries returns a copy of the catalog in display order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Titles returns the catalog titles in display order.
func Titles() []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}
