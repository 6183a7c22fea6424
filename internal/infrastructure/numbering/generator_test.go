package numbering

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.October, 15, 9, 30, 12, 0, time.UTC)}
}

func TestMinuteGenerator(t *testing.T) {
	clock := newClock()
	g := NewMinuteGenerator(WithClock(clock.Now), WithLocation(time.UTC))

	first := g.Generate()
	assert.Equal(t, "202610150930", first)

	t.Run("same minute collides", func(t *testing.T) {
		clock.Set(clock.Now().Add(30 * time.Second))
		assert.Equal(t, first, g.Generate())
	})

	t.Run("next minute differs", func(t *testing.T) {
		clock.Set(clock.Now().Add(time.Minute))
		assert.Equal(t, "202610150931", g.Generate())
	})
}

func TestMinuteGenerator_Location(t *testing.T) {
	clock := newClock()
	ist := time.FixedZone("IST", 5*3600+1800)
	g := NewMinuteGenerator(WithClock(clock.Now), WithLocation(ist))
	assert.Equal(t, "202610151500", g.Generate())
}

func TestSequenceGenerator(t *testing.T) {
	t.Run("same minute numbers differ", func(t *testing.T) {
		clock := newClock()
		g := NewSequenceGenerator(WithClock(clock.Now), WithLocation(time.UTC))

		assert.Equal(t, "2026101509300001", g.Generate())
		assert.Equal(t, "2026101509300002", g.Generate())
	})

	t.Run("sequence resets when minute advances", func(t *testing.T) {
		clock := newClock()
		g := NewSequenceGenerator(WithClock(clock.Now), WithLocation(time.UTC))

		g.Generate()
		g.Generate()
		clock.Set(clock.Now().Add(time.Minute))
		assert.Equal(t, "2026101509310001", g.Generate())
	})

	t.Run("clock going backwards keeps numbers increasing", func(t *testing.T) {
		clock := newClock()
		g := NewSequenceGenerator(WithClock(clock.Now), WithLocation(time.UTC))

		a := g.Generate()
		clock.Set(clock.Now().Add(-2 * time.Minute))
		b := g.Generate()
		assert.Equal(t, "2026101509300002", b)
		assert.Greater(t, b, a)
	})

	t.Run("overflow moves to the next minute", func(t *testing.T) {
		clock := newClock()
		g := NewSequenceGenerator(WithClock(clock.Now), WithLocation(time.UTC))

		numbers := make([]string, 0, 10001)
		for i := 0; i < 10001; i++ {
			numbers = append(numbers, g.Generate())
		}
		assert.Equal(t, "2026101509309999", numbers[9998])
		assert.Equal(t, "2026101509310001", numbers[9999])
		assert.Equal(t, "2026101509310002", numbers[10000])
		for _, n := range numbers {
			require.Len(t, n, 16)
		}
		assert.True(t, sort.StringsAreSorted(numbers))

		// the borrowed minute keeps counting once the clock reaches it
		clock.Set(clock.Now().Add(time.Minute))
		assert.Equal(t, "2026101509310003", g.Generate())
	})

	t.Run("overflow across an hour boundary", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2026, time.December, 31, 23, 59, 5, 0, time.UTC)}
		g := NewSequenceGenerator(WithClock(clock.Now), WithLocation(time.UTC))

		var last string
		for i := 0; i <= MaxSequence; i++ {
			last = g.Generate()
		}
		assert.Equal(t, "2027010100000001", last)
	})
}

func TestSequenceGenerator_Concurrent(t *testing.T) {
	clock := newClock()
	g := NewSequenceGenerator(WithClock(clock.Now), WithLocation(time.UTC))

	const workers = 8
	const perWorker = 50

	var mu sync.Mutex
	seen := make(map[string]struct{})
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				n := g.Generate()
				mu.Lock()
				seen[n] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestSequenceGenerator_Sortable(t *testing.T) {
	clock := newClock()
	g := NewSequenceGenerator(WithClock(clock.Now), WithLocation(time.UTC))

	var numbers []string
	for i := 0; i < 5; i++ {
		numbers = append(numbers, g.Generate())
		clock.Set(clock.Now().Add(40 * time.Second))
	}
	assert.True(t, sort.StringsAreSorted(numbers))
}

func TestNew(t *testing.T) {
	g, err := New(StrategyMinute)
	require.NoError(t, err)
	assert.IsType(t, &MinuteGenerator{}, g)

	g, err = New("")
	require.NoError(t, err)
	assert.IsType(t, &SequenceGenerator{}, g)

	_, err = New("random")
	assert.Error(t, err)
}
