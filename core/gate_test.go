package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource wraps a Counter and records every read
type countingSource struct {
	*Counter
	reads int
	first uint64
	last  uint64
}

func newCountingSource(start, step uint64) *countingSource {
	return &countingSource{Counter: NewCounter(start, step)}
}

func (c *countingSource) Ticks() uint64 {
	v := c.Counter.Ticks()
	if c.reads == 0 {
		c.first = v
	}
	c.last = v
	c.reads++
	return v
}

func TestWaitUSNeverReturnsEarly(t *testing.T) {
	for _, d := range []uint64{0, 1, 2, 17, 1000, 250000} {
		for _, step := range []uint64{1, 3, 7} {
			src := newCountingSource(100, step)
			NewTimingGate(src).WaitUS(d)
			assert.GreaterOrEqual(t, src.last-src.first, d, "d=%d step=%d", d, step)
			if d > 0 {
				// stops on the first read that reaches d
				assert.Less(t, src.last-src.first, d+step, "d=%d step=%d", d, step)
			}
		}
	}
}

func TestWaitZeroDoesNotBlock(t *testing.T) {
	// A counter that never moves would hang any real spin
	src := newCountingSource(42, 0)
	NewTimingGate(src).WaitUS(0)
	assert.Equal(t, 2, src.reads)
	assert.Equal(t, uint64(0), src.last-src.first)
}

func TestWaitUnitConversion(t *testing.T) {
	for _, n := range []uint64{0, 1, 3} {
		us := newCountingSource(0, 250)
		NewTimingGate(us).WaitUS(n * 1000)

		ms := newCountingSource(0, 250)
		NewTimingGate(ms).WaitMS(n)
		assert.Equal(t, us.reads, ms.reads, "ms n=%d", n)
		assert.Equal(t, us.last, ms.last, "ms n=%d", n)

		ms2 := newCountingSource(0, 250000)
		NewTimingGate(ms2).WaitMS(n * 1000)
		sec := newCountingSource(0, 250000)
		NewTimingGate(sec).WaitSec(n)
		assert.Equal(t, ms2.reads, sec.reads, "sec n=%d", n)
		assert.Equal(t, ms2.last, sec.last, "sec n=%d", n)
	}
}

func TestTimePassthrough(t *testing.T) {
	src := NewCounter(987654321, 0)
	g := NewTimingGate(src)
	assert.Equal(t, uint64(987654321), g.Time())
	src.Advance(9)
	assert.Equal(t, uint64(987654330), g.Time())
}

func TestFirstGateIsFree(t *testing.T) {
	for _, period := range []uint64{0, 1, 1000, 1 << 40} {
		src := newCountingSource(5000, 0)
		g := NewTimingGate(src)

		require.NoError(t, g.GateUS(period))
		assert.Equal(t, 1, src.reads, "period=%d", period)

		anchor, active := g.Anchor()
		assert.True(t, active)
		assert.Equal(t, uint64(5000), anchor)
	}
}

func TestGateCadenceDoesNotDrift(t *testing.T) {
	const period = 1000
	const work = 300
	src := NewCounter(0, 1)
	g := NewTimingGate(src)

	require.NoError(t, g.GateUS(period))
	first, _ := g.Anchor()

	for k := uint64(2); k <= 500; k++ {
		src.Advance(work)
		require.NoError(t, g.GateUS(period), "cycle %d", k)

		anchor, _ := g.Anchor()
		require.Equal(t, first+(k-1)*period, anchor, "cycle %d", k)
		// the spin stops at most one read past the deadline
		assert.LessOrEqual(t, src.Peek()-anchor, uint64(1))
	}
}

func TestGateOverrun(t *testing.T) {
	const period = 1000
	src := newCountingSource(0, 0)
	g := NewTimingGate(src)
	require.NoError(t, g.GateUS(period))

	src.Set(period + 250)
	readsBefore := src.reads
	err := g.GateUS(period)

	oe, ok := AsOverrun(err)
	require.True(t, ok)
	assert.Equal(t, uint64(250), oe.Excess())
	assert.Equal(t, uint64(period), oe.Period)
	assert.Equal(t, uint64(period+250), oe.Elapsed)
	assert.Equal(t, 1, src.reads-readsBefore, "overrun must not spin")

	anchor, active := g.Anchor()
	assert.True(t, active)
	assert.Equal(t, uint64(period+250), anchor)

	// next cycle is measured from the overrun tick
	src.Set(period + 250 + period)
	assert.NoError(t, g.GateUS(period))
}

func TestGateExactPeriodIsSuccess(t *testing.T) {
	src := newCountingSource(0, 0)
	g := NewTimingGate(src)
	require.NoError(t, g.GateUS(700))

	src.Set(700)
	readsBefore := src.reads
	require.NoError(t, g.GateUS(700))
	assert.Equal(t, 1, src.reads-readsBefore)

	anchor, _ := g.Anchor()
	assert.Equal(t, uint64(700), anchor)
}

func TestGateZeroPeriod(t *testing.T) {
	src := NewCounter(10, 0)
	g := NewTimingGate(src)
	require.NoError(t, g.GateUS(0))

	// no time passed: elapsed == period
	require.NoError(t, g.GateUS(0))

	src.Advance(1)
	oe, ok := AsOverrun(g.GateUS(0))
	require.True(t, ok)
	assert.Equal(t, uint64(1), oe.Excess())
}

func TestGateScenarios(t *testing.T) {
	t.Run("exact period after free pass", func(t *testing.T) {
		src := NewCounter(0, 0)
		g := NewTimingGate(src)
		require.NoError(t, g.GateMS(500))
		anchor, _ := g.Anchor()
		assert.Equal(t, uint64(0), anchor)

		src.Set(500000)
		require.NoError(t, g.GateMS(500))
		anchor, _ = g.Anchor()
		assert.Equal(t, uint64(500000), anchor)
	})

	t.Run("work exceeds budget", func(t *testing.T) {
		src := NewCounter(0, 0)
		g := NewTimingGate(src)
		require.NoError(t, g.GateMS(500))

		src.Set(900000)
		oe, ok := AsOverrun(g.GateMS(500))
		require.True(t, ok)
		assert.Equal(t, uint64(400000), oe.Excess())

		anchor, _ := g.Anchor()
		assert.Equal(t, uint64(900000), anchor)
	})
}

func TestGateSecondsWaitsRemainder(t *testing.T) {
	src := NewCounter(0, 1000)
	g := NewTimingGate(src)
	require.NoError(t, g.GateSec(2))

	src.Advance(500000)
	require.NoError(t, g.GateSec(2))

	anchor, _ := g.Anchor()
	assert.Equal(t, uint64(2000000), anchor)
	assert.GreaterOrEqual(t, src.Peek(), uint64(2000000))
}

func TestGateReset(t *testing.T) {
	src := NewCounter(0, 0)
	g := NewTimingGate(src)
	require.NoError(t, g.GateUS(100))

	src.Set(5000)
	g.Reset()
	_, active := g.Anchor()
	assert.False(t, active)

	// would be an overrun without the reset
	require.NoError(t, g.GateUS(100))
	anchor, _ := g.Anchor()
	assert.Equal(t, uint64(5000), anchor)
}

func TestOverrunErrorMessage(t *testing.T) {
	err := &OverrunError{Period: 500000, Elapsed: 900000}
	assert.Equal(t, "gate overrun: 400000us over 500000us period", err.Error())
}

func TestAsOverrunWrapped(t *testing.T) {
	wrapped := fmt.Errorf("loop: %w", &OverrunError{Period: 10, Elapsed: 15})
	oe, ok := AsOverrun(wrapped)
	require.True(t, ok)
	assert.Equal(t, uint64(5), oe.Excess())

	_, ok = AsOverrun(nil)
	assert.False(t, ok)
	_, ok = AsOverrun(fmt.Errorf("other"))
	assert.False(t, ok)
}
