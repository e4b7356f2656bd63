package listing

import (
	"math/rand/v2"

	"github.com/eringen/wpfront/wordpress"
)

// DefaultSampleSize is the number of tags shown in the tag cloud.
const DefaultSampleSize = 10

// SampleTags returns a uniform random sample of k tags using rng. The input is
// not modified. All tags are returned (shuffled) when k >= len(tags).
func SampleTags(tags []wordpress.Tag, k int, rng *rand.Rand) []wordpress.Tag {
	if k <= 0 {
		k = DefaultSampleSize
	}
	pool := make([]wordpress.Tag, len(tags))
	copy(pool, tags)
	if k > len(pool) {
		k = len(pool)
	}
	// Partial Fisher-Yates: the first k slots end up a uniform sample.
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// SeededSample samples with a generator seeded from seed, so the same seed and
// tag list always yield the same sample.
func SeededSample(tags []wordpress.Tag, k int, seed int64) []wordpress.Tag {
	return SampleTags(tags, k, rand.New(rand.NewPCG(uint64(seed), 0)))
}
