/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lineup

import (
	"fmt"
	"math/rand/v2"
)

// SelectionSize is the number of people shown in each round.
const SelectionSize = 3

// NewRand returns a randomly seeded generator. Not safe for concurrent use.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Select draws n distinct entities from pool, uniformly and without replacement.
// The pool itself is left untouched.
func Select(rng *rand.Rand, pool []Entity, n int) ([]Entity, error) {
	if len(pool) < n {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientEntities, n, len(pool))
	}

	remaining := make([]Entity, len(pool))
	copy(remaining, pool)

	selected := make([]Entity, 0, n)
	for range n {
		i := rng.IntN(len(remaining))
		selected = append(selected, remaining[i])
		remaining = append(remaining[:i], remaining[i+1:]...)
	}

	return selected, nil
}

// Shuffle permutes s in place. Every ordering is equally likely.
func Shuffle[T any](rng *rand.Rand, s []T) {
	rng.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}
