package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliveryOrder(t *testing.T) {
	b := NewBus(nil)

	var got []int
	b.On(GameTick, func(any) { got = append(got, 1) })
	b.On(GameTick, func(any) { got = append(got, 2) })
	b.OnRound(GameTick, func(any) { got = append(got, 3) })

	b.Emit(GameTick, nil)
	assert.Equal(t, []int{1, 2, 3}, got, "global handlers first, then round, in registration order")
}

func TestBusOff(t *testing.T) {
	b := NewBus(nil)

	calls := 0
	sub := b.On(PlayerDeath, func(any) { calls++ })
	keep := 0
	b.On(PlayerDeath, func(any) { keep++ })

	b.Emit(PlayerDeath, nil)
	b.Off(sub)
	b.Off(sub) // double removal is a no-op
	b.Emit(PlayerDeath, nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, keep)
}

func TestBusClearRoundListeners(t *testing.T) {
	b := NewBus(nil)

	global, round := 0, 0
	b.On(RoundEnd, func(any) { global++ })
	b.OnRound(RoundEnd, func(any) { round++ })

	b.Emit(RoundEnd, nil)
	b.ClearRoundListeners()
	b.Emit(RoundEnd, nil)

	assert.Equal(t, 2, global)
	assert.Equal(t, 1, round, "round-scoped handler must not survive the clear")
}

func TestBusPanicIsolation(t *testing.T) {
	b := NewBus(nil)

	ran := false
	b.On(GameEnd, func(any) { panic("boom") })
	b.On(GameEnd, func(any) { ran = true })

	assert.NotPanics(t, func() { b.Emit(GameEnd, nil) })
	assert.True(t, ran, "a panicking handler must not block later handlers")
}

func TestBusPayloadDelivery(t *testing.T) {
	b := NewBus(nil)

	var got any
	b.On(BaseCaptured, func(p any) { got = p })
	b.Emit(BaseCaptured, map[string]int{"baseNumber": 2})

	assert.Equal(t, map[string]int{"baseNumber": 2}, got)
}
