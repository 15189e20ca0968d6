package bloom

import (
	"sync"

	bloomfilter "github.com/bits-and-blooms/bloom/v3"
)

// DedupFilter wraps a bloom filter behind a mutex. The order sync loop asks
// it before touching the database: a negative answer is authoritative (the
// external order id was never ingested), a positive answer still gets
// confirmed against storage because of false positives.
type DedupFilter struct {
	mu     sync.Mutex
	filter *bloomfilter.BloomFilter
}

// NewDedupFilter creates a filter sized for the expected number of elements
// at the given false positive rate.
func NewDedupFilter(expectedElements uint, falsePositiveRate float64) *DedupFilter {
	if expectedElements == 0 {
		expectedElements = 100000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	return &DedupFilter{
		filter: bloomfilter.NewWithEstimates(expectedElements, falsePositiveRate),
	}
}

// Add records an id as seen.
func (f *DedupFilter) Add(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(id)
}

// MightContain reports whether an id may have been seen. False means
// definitely not seen.
func (f *DedupFilter) MightContain(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.TestString(id)
}

// AddAll seeds the filter, typically with ids already present in storage.
func (f *DedupFilter) AddAll(ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.filter.AddString(id)
	}
}
