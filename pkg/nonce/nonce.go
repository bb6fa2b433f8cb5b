// Package nonce issues strictly increasing, collision-free nonces for
// signed requests.
//
// Each identity gets a 64-bit counter seeded once from a millisecond
// timestamp shifted left by counterBits, leaving the low bits as a
// per-millisecond sequence. After seeding, allocation is a single atomic
// increment: racing callers always observe distinct values because nothing
// re-reads the clock per call, and a process restarted within the same
// millisecond reseeds above every nonce the previous run could have issued
// in earlier milliseconds.
package nonce

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// counterBits is the number of low bits reserved for the per-millisecond
// sequence. 20 bits allow just over a million nonces per millisecond of
// process lifetime before the counter would outrun the seed of a restart.
const counterBits = 20

// ErrNonceOverflow is returned when the nonce space for an identity is
// exhausted. With a millisecond base this does not happen before the year
// 10889; the check guards against corrupted seeds.
var ErrNonceOverflow = errors.New("nonce overflow")

// Source issues nonces per signing identity. All methods are safe for
// concurrent use without external locking; use NewSource to construct.
type Source struct {
	mu       sync.Mutex
	counters map[common.Address]*atomic.Uint64
	now      func() time.Time
}

// NewSource creates an empty Source. Counters are created lazily, seeded
// from the wall clock on the first Next call for each identity.
func NewSource() *Source {
	return &Source{
		counters: make(map[common.Address]*atomic.Uint64),
		now:      time.Now,
	}
}

// Next returns the next nonce for the identity. Returned values are
// strictly increasing in call order and unique across concurrent callers.
func (s *Source) Next(identity common.Address) (uint64, error) {
	c := s.counterFor(identity)

	n := c.Add(1)
	if n == 0 {
		return 0, ErrNonceOverflow
	}
	return n, nil
}

// Seed advances the identity's counter so the next issued nonce is at
// least next. Used to resynchronise with the venue's nonce endpoint.
// Seeding backwards is ignored; a nonce once issued is never reissued.
func (s *Source) Seed(identity common.Address, next uint64) {
	if next == 0 {
		return
	}

	c := s.counterFor(identity)
	for {
		prev := c.Load()
		if next-1 <= prev {
			return
		}
		if c.CompareAndSwap(prev, next-1) {
			return
		}
	}
}

func (s *Source) counterFor(identity common.Address) *atomic.Uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[identity]
	if !ok {
		c = &atomic.Uint64{}
		c.Store(uint64(s.now().UnixMilli()) << counterBits)
		s.counters[identity] = c
	}
	return c
}
