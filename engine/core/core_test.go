package core

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetLogOutput(io.Discard)
}

func TestEventFireStopsAtFirstHandler(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	calls := []string{}
	a, b := new(int), new(int)
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, a, func(ctx EventContext) bool {
		calls = append(calls, "a")
		return true
	}))
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, b, func(ctx EventContext) bool {
		calls = append(calls, "b")
		return false
	}))
	assert.False(t, EventRegister(EVENT_CODE_KEY_PRESSED, a, nil))

	assert.True(t, EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED}))
	assert.Equal(t, []string{"a"}, calls)

	require.True(t, EventUnregister(EVENT_CODE_KEY_PRESSED, a))
	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED}))
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestEventPostIsDeliveredOnDispatch(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	var sizes []uint32
	EventRegister(EVENT_CODE_RESIZED, nil, func(ctx EventContext) bool {
		sizes = append(sizes, ctx.Data.(*SystemEvent).WindowWidth)
		return true
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, EventPost(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 640}}))
		assert.NoError(t, EventPost(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 800}}))
	}()
	<-done

	assert.Empty(t, sizes)
	assert.Equal(t, 2, EventDispatchPending())
	assert.Equal(t, []uint32{640, 800}, sizes)
	assert.Equal(t, 0, EventDispatchPending())
}

func TestInputFiresOnlyOnTransitions(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()
	require.NoError(t, InputInitialize())
	defer InputShutdown()

	pressed := 0
	EventRegister(EVENT_CODE_KEY_PRESSED, nil, func(ctx EventContext) bool {
		pressed++
		return true
	})

	require.NoError(t, InputProcessKey(KEY_F1, true))
	require.NoError(t, InputProcessKey(KEY_F1, true))
	assert.Equal(t, 1, pressed)
	assert.True(t, InputIsKeyDown(KEY_F1))
	assert.False(t, InputWasKeyDown(KEY_F1))

	require.NoError(t, InputUpdate(0))
	assert.True(t, InputWasKeyDown(KEY_F1))
}

func TestFrameMetricsAverages(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	for i := 0; i < 100; i++ {
		m.Update(0.010)
	}
	assert.Greater(t, m.FPS(), 0.0)
}
