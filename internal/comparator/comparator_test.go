// SPDX-License-Identifier: MIT
package comparator

import (
	"math"
	"testing"

	"doppler/pkg/utils"

	"github.com/stretchr/testify/assert"
)

const testTimerRate = 16000

func newTestEstimator() (*Estimator, *utils.FakeComparator, *utils.FakeTimer) {
	comp := &utils.FakeComparator{}
	timer := &utils.FakeTimer{TickRate: testTimerRate}
	e := NewEstimator(comp, timer, testTimerRate)
	timer.OnTick(func() {
		e.HandleCallback()
		e.ResetTimer()
	})
	return e, comp, timer
}

func TestStartStop(t *testing.T) {
	e, comp, timer := newTestEstimator()
	comp.Level = true

	e.Start()
	assert.True(t, comp.Running)
	assert.True(t, timer.Listening)
	assert.True(t, e.level, "baseline should follow the comparator output")

	e.Stop()
	assert.False(t, comp.Running)
	assert.False(t, timer.Listening)

	// Ticks are ignored once stopped.
	timer.Fire()
	_, ticks := e.Counts()
	assert.Zero(t, ticks)
}

func TestHandleCallbackCountsTransitions(t *testing.T) {
	e, comp, timer := newTestEstimator()
	e.Start()

	// Levels per tick: the baseline is low.
	levels := []bool{false, true, true, false, false, true}
	for _, l := range levels {
		comp.Level = l
		timer.Fire()
	}

	transitions, ticks := e.Counts()
	assert.Equal(t, uint64(3), transitions)
	assert.Equal(t, uint64(len(levels)), ticks)
	assert.Equal(t, len(levels), timer.Cleared, "every tick must be acknowledged")
}

func TestCalculateFrequency(t *testing.T) {
	tests := []struct {
		name        string
		transitions uint64
		ticks       uint64
	}{
		{"single tick", 0, 1},
		{"half rate", 1, 2},
		{"1 kHz tone", 2000, 16000},
		{"near guard", 12345, 65535},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newTestEstimator()
			e.transitions, e.ticks = tt.transitions, tt.ticks

			want := testTimerRate * float64(tt.transitions) / float64(tt.ticks) / 2
			assert.InDelta(t, want, e.CalculateFrequency(), 1e-9)
		})
	}
}

func TestCalculateFrequencyNoTicks(t *testing.T) {
	e, _, _ := newTestEstimator()
	assert.True(t, math.IsNaN(e.CalculateFrequency()))
}

func TestSquareWave(t *testing.T) {
	e, comp, timer := newTestEstimator()
	e.Start()

	// 500 Hz square wave sampled at 16 kHz: 16 ticks per half period.
	for i := range 16000 {
		comp.Level = (i/16)%2 == 1
		timer.Fire()
	}

	assert.InDelta(t, 500.0, e.CalculateFrequency(), 1)
}

func TestOverflowGuardResetsCounters(t *testing.T) {
	e, comp, timer := newTestEstimator()
	e.Start()
	e.transitions = 100
	e.ticks = OverflowGuard

	// Not above the guard yet: counting continues.
	timer.Fire()
	transitions, ticks := e.Counts()
	assert.Equal(t, uint64(100), transitions)
	assert.Equal(t, uint64(OverflowGuard+1), ticks)

	// The crossing callback discards the history before counting.
	comp.Level = true
	timer.Fire()
	transitions, ticks = e.Counts()
	assert.Equal(t, uint64(1), transitions)
	assert.Equal(t, uint64(1), ticks)

	// The next tick counts from the reset baseline.
	timer.Fire()
	transitions, ticks = e.Counts()
	assert.Equal(t, uint64(1), transitions)
	assert.Equal(t, uint64(2), ticks)
}

func BenchmarkHandleCallback(b *testing.B) {
	e, comp, _ := newTestEstimator()
	e.Start()
	var i int
	b.ReportAllocs()
	for b.Loop() {
		comp.Level = i&8 != 0
		e.HandleCallback()
		i++
	}
}
