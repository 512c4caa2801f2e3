package analytics

import "sort"

// Counter accumulates counts per key.
type Counter struct {
	counts map[string]int64
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int64)}
}

func (c *Counter) Add(key string, n int64) {
	c.counts[key] += n
}

func (c *Counter) Get(key string) int64 {
	return c.counts[key]
}

func (c *Counter) Len() int {
	return len(c.counts)
}

// Entry is one ranked key.
type Entry struct {
	Key   string
	Count int64
}

// Top returns the entries sorted by count descending, then key ascending,
// truncated to n. n <= 0 means no truncation.
func (c *Counter) Top(n int) []Entry {
	out := make([]Entry, 0, len(c.counts))
	for k, v := range c.counts {
		out = append(out, Entry{Key: k, Count: v})
	}
	SortEntries(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SortEntries orders by count descending with the key as tie-break.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
}

// Ratio returns num/den rounded half up to one decimal, or 0 when den is 0.
// Counts are non-negative, so the rounding is done in integer tenths.
func Ratio(num, den int64) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	tenths := (num*20 + den) / (2 * den)
	return float64(tenths) / 10
}
