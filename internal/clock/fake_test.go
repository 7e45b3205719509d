package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockAdvanceFiresDueTimers(t *testing.T) {
	clk := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var order []string
	clk.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	clk.AfterFunc(1*time.Second, func() { order = append(order, "a") })

	clk.Advance(500 * time.Millisecond)
	assert.Empty(t, order)

	clk.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestFakeClockStopPreventsFiring(t *testing.T) {
	clk := NewFakeClock(time.Now())

	fired := false
	timer := clk.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())

	clk.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.False(t, timer.Stop())
}

func TestFakeClockNowAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewFakeClock(start)

	clk.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), clk.Now())
}
