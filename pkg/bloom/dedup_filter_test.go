package bloom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupFilter(t *testing.T) {
	f := NewDedupFilter(1000, 0.01)

	assert.False(t, f.MightContain("EXT-1001"))

	f.Add("EXT-1001")
	assert.True(t, f.MightContain("EXT-1001"))
}

func TestDedupFilterSeeding(t *testing.T) {
	f := NewDedupFilter(1000, 0.01)

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = fmt.Sprintf("EXT-%d", i)
	}
	f.AddAll(ids)

	for _, id := range ids {
		assert.True(t, f.MightContain(id))
	}
}

func TestDedupFilterFalsePositiveRate(t *testing.T) {
	f := NewDedupFilter(10000, 0.01)

	for i := 0; i < 10000; i++ {
		f.Add(fmt.Sprintf("EXT-%d", i))
	}

	falsePositives := 0
	for i := 20000; i < 30000; i++ {
		if f.MightContain(fmt.Sprintf("EXT-%d", i)) {
			falsePositives++
		}
	}

	// 1% target; allow generous slack to keep the test stable
	assert.Less(t, falsePositives, 500)
}
