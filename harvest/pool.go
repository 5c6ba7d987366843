package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Dispatcher is one route to the catalog site: direct, or through a proxy.
type Dispatcher struct {
	Name     string
	client   *http.Client
	failures int
}

func newDispatcher(name string, transport http.RoundTripper) *Dispatcher {
	return &Dispatcher{Name: name, client: &http.Client{Transport: transport}}
}

// Pool lends dispatchers out one request at a time. A dispatcher whose
// request failed sits out for an exponentially growing delay before it can be
// lent again. Callers that find no dispatcher free wait in arrival order.
type Pool struct {
	mu      sync.Mutex
	idle    []*Dispatcher
	waiters []chan *Dispatcher
	size    int

	backoffBase time.Duration
	backoffMax  time.Duration
	after       func(time.Duration, func())
}

// NewPool builds a pool with a direct dispatcher plus one per proxy URL.
func NewPool(proxies []string, backoffBase, backoffMax time.Duration) (*Pool, error) {
	dispatchers := []*Dispatcher{newDispatcher("direct", http.DefaultTransport.(*http.Transport).Clone())}
	for _, raw := range proxies {
		proxy, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy %q: %w", raw, err)
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = http.ProxyURL(proxy)
		dispatchers = append(dispatchers, newDispatcher(proxy.Host, transport))
	}
	return newPool(dispatchers, backoffBase, backoffMax), nil
}

func newPool(dispatchers []*Dispatcher, backoffBase, backoffMax time.Duration) *Pool {
	return &Pool{
		idle:        dispatchers,
		size:        len(dispatchers),
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
		after: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

func (p *Pool) Size() int {
	return p.size
}

// Acquire blocks until a dispatcher is free or ctx ends.
func (p *Pool) Acquire(ctx context.Context) (*Dispatcher, error) {
	p.mu.Lock()
	if len(p.idle) > 0 {
		d := p.idle[0]
		p.idle = p.idle[1:]
		p.mu.Unlock()
		return d, nil
	}
	ch := make(chan *Dispatcher, 1)
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case d := <-ch:
		return d, nil
	case <-ctx.Done():
		p.mu.Lock()
		removed := p.removeWaiter(ch)
		p.mu.Unlock()
		if !removed {
			// handed a dispatcher while giving up
			d := <-ch
			p.mu.Lock()
			p.hand(d)
			p.mu.Unlock()
		}
		return nil, ctx.Err()
	}
}

// Release returns d to the pool. A failed dispatcher is held back for its
// backoff delay first.
func (p *Pool) Release(d *Dispatcher, failed bool) {
	p.mu.Lock()
	if !failed {
		d.failures = 0
		p.hand(d)
		p.mu.Unlock()
		return
	}
	d.failures++
	delay := p.backoff(d.failures)
	p.mu.Unlock()

	p.after(delay, func() {
		p.mu.Lock()
		p.hand(d)
		p.mu.Unlock()
	})
}

func (p *Pool) backoff(failures int) time.Duration {
	delay := p.backoffBase
	for i := 1; i < failures && delay < p.backoffMax; i++ {
		delay *= 2
	}
	return min(delay, p.backoffMax)
}

// hand gives d to the longest waiting caller, or parks it. p.mu must be held.
func (p *Pool) hand(d *Dispatcher) {
	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		ch <- d
		return
	}
	p.idle = append(p.idle, d)
}

func (p *Pool) removeWaiter(ch chan *Dispatcher) bool {
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}
