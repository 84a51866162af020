package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := NewMemory().WithClock(clock.now)

	require.NoError(t, m.Set(ctx, "texts?limit=10", []byte("a"), 5*time.Minute))

	v, ok, err := m.Get(ctx, "texts?limit=10")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), v)

	clock.advance(5*time.Minute - time.Second)
	_, ok, _ = m.Get(ctx, "texts?limit=10")
	assert.True(t, ok, "entry should still be fresh just before the window closes")

	clock.advance(time.Second)
	_, ok, _ = m.Get(ctx, "texts?limit=10")
	assert.False(t, ok, "entry should be stale once the window has elapsed")
	assert.Equal(t, 0, m.Len())
}

func TestMemoryNonPositiveTTLStoresNothing(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set(context.Background(), "k", []byte("v"), 0))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryInvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{"texts?limit=10", "texts?limit=20", "text/T1", "persons?"} {
		require.NoError(t, m.Set(ctx, k, []byte(k), time.Minute))
	}

	require.NoError(t, m.InvalidatePrefix(ctx, "texts"))

	_, ok, _ := m.Get(ctx, "texts?limit=10")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "text/T1")
	assert.True(t, ok, "text/ is not under the texts prefix")
	_, ok, _ = m.Get(ctx, "persons?")
	assert.True(t, ok)
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'z'
	v, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := NewMemory().WithClock(clock.now)
	require.NoError(t, m.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, m.Set(ctx, "long", []byte("2"), time.Hour))

	clock.advance(time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestMemoryRunEvictsDistinctKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemory()
	for i := 0; i < 500; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("texts?author=A%d", i), []byte("[]"), 10*time.Millisecond))
	}
	require.Equal(t, 500, m.Len())

	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `catalog:texts\?limit=1`, globEscape("catalog:texts?limit=1"))
	assert.Equal(t, `a\*b\[c\]`, globEscape("a*b[c]"))
}

func TestNopStore(t *testing.T) {
	var s Store = Nop{}
	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, ok, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
