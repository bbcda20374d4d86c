// ABOUTME: Thread-safe TTL guard for one-shot side effects.
// ABOUTME: CheckAndMark claims a key atomically; Forget releases it on failure.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	at   time.Time
	elem *list.Element
}

// Guard tracks claimed keys for a TTL window with a bounded size. The
// oldest claim is evicted when the guard is full. Expired claims are
// dropped lazily on access, so no background goroutine is needed.
type Guard struct {
	mu      sync.Mutex
	claimed map[string]*entry
	order   *list.List // claim order, oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a guard holding at most maxSize claims for ttl each.
func New(ttl time.Duration, maxSize int) *Guard {
	return &Guard{
		claimed: make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// CheckAndMark atomically claims key. It returns true when the key was
// already claimed within the TTL window, meaning the caller lost the race
// and must not run the side effect. A single atomic operation avoids the
// check-then-mark race between the two event streams.
func (g *Guard) CheckAndMark(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.claimed[key]; ok {
		if g.now().Sub(e.at) < g.ttl {
			return true
		}
		g.dropLocked(key, e)
	}

	if len(g.claimed) >= g.maxSize {
		if front := g.order.Front(); front != nil {
			oldest := front.Value.(string)
			g.dropLocked(oldest, g.claimed[oldest])
		}
	}

	g.claimed[key] = &entry{at: g.now(), elem: g.order.PushBack(key)}
	return false
}

// Forget releases a claim so the side effect can be retried, used when the
// claimed work failed before producing any effect.
func (g *Guard) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.claimed[key]; ok {
		g.dropLocked(key, e)
	}
}

// Len returns the number of live claims, expired ones included until they
// are touched.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claimed)
}

func (g *Guard) dropLocked(key string, e *entry) {
	g.order.Remove(e.elem)
	delete(g.claimed, key)
}
