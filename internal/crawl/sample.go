package crawl

import (
	"math/rand/v2"
	"sort"

	"github.com/persistorai/friendgraph/internal/models"
)

// sampleFriends returns at most k friends chosen uniformly at random, kept in
// source order. k <= 0 disables sampling.
func sampleFriends(rng *rand.Rand, friends []models.Friend, k int) []models.Friend {
	if k <= 0 || len(friends) <= k {
		return friends
	}

	idx := make([]int, len(friends))
	for i := range idx {
		idx[i] = i
	}

	// Partial Fisher-Yates: the first k slots end up a uniform k-subset.
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	chosen := idx[:k]
	sort.Ints(chosen)

	out := make([]models.Friend, 0, k)
	for _, i := range chosen {
		out = append(out, friends[i])
	}

	return out
}
