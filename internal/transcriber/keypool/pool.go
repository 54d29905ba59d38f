// Package keypool rotates a fixed set of transcription API keys so that load
// spreads evenly across rate-limited credentials and a failing key can be
// sidelined for a retry without being removed from the pool.
package keypool

import (
	"sync"

	"github.com/transcribee/transcribe-be/internal/transcriber/domain"
)

// Pool tracks per-key usage counts and hands out the least-used key. The
// find-minimum-and-increment step is a single critical section: callers from
// concurrent chunk executions and concurrent jobs share one pool.
type Pool struct {
	mu     sync.Mutex
	keys   []string
	counts map[string]int
}

// New creates a pool over the given keys. Ties on usage count resolve to the
// earliest key in the slice, so the construction order is the tie-break rule.
// Returns domain.ErrNoAPIKeys for an empty set.
func New(keys []string) (*Pool, error) {
	if len(keys) == 0 {
		return nil, domain.ErrNoAPIKeys
	}

	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k] = 0
	}

	return &Pool{
		keys:   append([]string(nil), keys...),
		counts: counts,
	}, nil
}

// Size returns the number of keys in the pool
func (p *Pool) Size() int {
	return len(p.keys)
}

// Acquire returns the least-used key and increments its usage count
func (p *Pool) Acquire() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := p.leastUsed("")
	p.counts[key]++
	return key
}

// AcquireExcluding returns the least-used key other than exclude. The second
// return is false when the exclusion empties the candidate set, which only
// happens for a single-key pool.
func (p *Pool) AcquireExcluding(exclude string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := p.leastUsed(exclude)
	if key == "" {
		return "", false
	}
	p.counts[key]++
	return key, true
}

// leastUsed scans keys in insertion order and keeps the first minimum seen.
// Callers must hold p.mu.
func (p *Pool) leastUsed(exclude string) string {
	best := ""
	for _, k := range p.keys {
		if k == exclude {
			continue
		}
		if best == "" || p.counts[k] < p.counts[best] {
			best = k
		}
	}
	return best
}
