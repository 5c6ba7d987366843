package harvest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTimers struct {
	delays []time.Duration
	fns    []func()
}

func (m *manualTimers) after(d time.Duration, fn func()) {
	m.delays = append(m.delays, d)
	m.fns = append(m.fns, fn)
}

func testPool(n int, base, maxDelay time.Duration) *Pool {
	var dispatchers []*Dispatcher
	for i := 0; i < n; i++ {
		dispatchers = append(dispatchers, newDispatcher("direct", http.DefaultTransport))
	}
	return newPool(dispatchers, base, maxDelay)
}

func (p *Pool) waiting() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

func TestNewPoolAddsProxies(t *testing.T) {
	p, err := NewPool([]string{"http://proxy-a:3128", "http://proxy-b:3128"}, time.Second, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())
	assert.Equal(t, "direct", p.idle[0].Name)
	assert.Equal(t, "proxy-b:3128", p.idle[2].Name)

	_, err = NewPool([]string{"http://[::1"}, time.Second, time.Minute)
	assert.Error(t, err)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	p := testPool(1, time.Second, 5*time.Second)
	timers := &manualTimers{}
	p.after = timers.after

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		d, err := p.Acquire(ctx)
		require.NoError(t, err)
		p.Release(d, true)
		require.Len(t, timers.fns, i+1)
		timers.fns[i]()
	}

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}, timers.delays)

	d, err := p.Acquire(ctx)
	require.NoError(t, err)
	p.Release(d, false)
	assert.Equal(t, 0, d.failures)
}

func TestFailedDispatcherSitsOut(t *testing.T) {
	p := testPool(1, time.Second, time.Minute)
	timers := &manualTimers{}
	p.after = timers.after

	d, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(d, true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, p.waiting())

	timers.fns[0]()
	d, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestWaitersServedInOrder(t *testing.T) {
	p := testPool(1, 0, 0)
	ctx := context.Background()

	held, err := p.Acquire(ctx)
	require.NoError(t, err)

	order := make(chan string, 2)
	for i, name := range []string{"first", "second"} {
		go func(name string) {
			d, err := p.Acquire(ctx)
			if err != nil {
				return
			}
			order <- name
			p.Release(d, false)
		}(name)
		want := i + 1
		require.Eventually(t, func() bool { return p.waiting() == want }, time.Second, time.Millisecond)
	}

	p.Release(held, false)
	assert.Equal(t, "first", <-order)
	assert.Equal(t, "second", <-order)
}
