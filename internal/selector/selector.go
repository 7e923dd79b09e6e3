package selector

import (
	stderrors "errors"
	"math/rand/v2"
	"sync"
	"time"
)

var (
	ErrEmptyPool        = stderrors.New("selector: empty pool")
	ErrInsufficientPool = stderrors.New("selector: insufficient pool")
)

// Selector draws uniformly random items from candidate pools. It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a selector backed by src. A nil src seeds from the clock.
func New(src rand.Source) *Selector {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1|1)
	}

	return &Selector{rnd: rand.New(src)}
}

// PickOne returns one element of pool, each with equal probability.
func PickOne[T any](s *Selector, pool []T) (T, error) {
	var zero T
	if len(pool) == 0 {
		return zero, ErrEmptyPool
	}

	return pool[s.intN(len(pool))], nil
}

// PickK returns k distinct elements of pool sampled without replacement. The order of the
// result is the draw order. pool is not modified.
func PickK[T any](s *Selector, pool []T, k int) ([]T, error) {
	if k < 0 || len(pool) < k {
		return nil, ErrInsufficientPool
	}

	// Partial Fisher-Yates: each draw swaps a random remaining element into the drawn prefix.
	rest := make([]T, len(pool))
	copy(rest, pool)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < k; i++ {
		j := i + s.rnd.IntN(len(rest)-i)
		rest[i], rest[j] = rest[j], rest[i]
	}

	return rest[:k:k], nil
}

func (s *Selector) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rnd.IntN(n)
}
