package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedTime int64

func (f fixedTime) GameTime() int64 { return int64(f) }

func TestRingKeepsRecentLines(t *testing.T) {
	r := newRing()
	for i := 0; i < RingSize+10; i++ {
		r.add(strings.Repeat("x", 1) + string(rune('a'+i%26)))
	}
	lines := r.Lines()
	require.Len(t, lines, RingSize)
	// Oldest entries were overwritten.
	assert.Equal(t, "x"+string(rune('a'+10%26)), lines[0])
}

func TestBackendLogsToRing(t *testing.T) {
	var console bytes.Buffer
	b, err := NewBackend(Options{Level: "debug", Console: &console})
	require.NoError(t, err)

	log := b.Logger("TEST")
	log.Infof("hello %d", 42)

	lines := b.Ring().Lines()
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[len(lines)-1], "hello 42")
	assert.Contains(t, lines[len(lines)-1], "TEST")
	assert.Contains(t, console.String(), "hello 42")
}

func TestBackendLevelFiltering(t *testing.T) {
	var console bytes.Buffer
	b, err := NewBackend(Options{Level: "warn", Console: &console})
	require.NoError(t, err)

	log := b.Logger("TEST")
	log.Debugf("invisible")
	log.Warnf("visible")

	out := console.String()
	assert.NotContains(t, out, "invisible")
	assert.Contains(t, out, "visible")
}

func TestGameTimeStamping(t *testing.T) {
	var console bytes.Buffer
	b, err := NewBackend(Options{Console: &console})
	require.NoError(t, err)

	b.SetTimeSource(fixedTime(4200))
	b.Logger("ENGN").Infof("tick")

	assert.Contains(t, console.String(), "gt=4200ms")
}
