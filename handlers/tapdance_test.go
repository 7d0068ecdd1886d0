package handlers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keytokey/keytokey/event"
	"github.com/keytokey/keytokey/handlers"
	"github.com/keytokey/keytokey/internal/testsupport"
	"github.com/keytokey/keytokey/keycode"
	"github.com/keytokey/keytokey/output"
	"github.com/keytokey/keytokey/pipeline"
)

type tapDanceRecorder struct {
	count int
	end   handlers.TapDanceEnd
	calls int
}

func (r *tapDanceRecorder) OnTapDance(out output.Port, tapCount int, end handlers.TapDanceEnd) error {
	r.calls++
	r.count = tapCount
	r.end = end
	return nil
}

func TestTapDanceResolvesOnTimeout(t *testing.T) {
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	rec := &tapDanceRecorder{}
	td := handlers.NewTapDance("capsDance", trigger, rec, 200)

	chain := []pipeline.Handler{td}
	require.NoError(t, testsupport.RunPipelineWithClock(chain, nil, pipeline.Clock{UptimeMs: 0}, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipelineWithClock(chain, nil, pipeline.Clock{UptimeMs: 10}, event.NewKeyRelease(trigger, 10)))
	require.NoError(t, testsupport.RunPipelineWithClock(chain, nil, pipeline.Clock{UptimeMs: 40}, event.NewKeyPress(trigger, 30)))
	require.NoError(t, testsupport.RunPipelineWithClock(chain, nil, pipeline.Clock{UptimeMs: 50}, event.NewKeyRelease(trigger, 10)))
	require.NoError(t, testsupport.RunPipelineWithClock(chain, nil, pipeline.Clock{UptimeMs: 300}, event.NewTimeOut(250)))

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 2, rec.count)
	assert.Equal(t, handlers.TapDanceTimeout, rec.end)
}

// TestTapDanceResolvesOnTimeoutAcrossFineGrainedTicks drives the same
// timeout resolution through a run of small ticks, the way a real driver
// loop calling AddTimeout every 1-10ms would, rather than one oversized
// tick that exceeds the threshold by itself.
func TestTapDanceResolvesOnTimeoutAcrossFineGrainedTicks(t *testing.T) {
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	rec := &tapDanceRecorder{}
	td := handlers.NewTapDance("capsDance", trigger, rec, 50)
	chain := []pipeline.Handler{td}

	require.NoError(t, testsupport.RunPipelineWithClock(chain, nil, pipeline.Clock{UptimeMs: 0}, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipelineWithClock(chain, nil, pipeline.Clock{UptimeMs: 5}, event.NewKeyRelease(trigger, 5)))
	for ms := uint64(10); ms <= 45; ms += 5 {
		require.NoError(t, testsupport.RunPipelineWithClock(chain, nil, pipeline.Clock{UptimeMs: ms}, event.NewTimeOut(5)))
	}
	assert.Equal(t, 0, rec.calls, "45ms of 5ms ticks since the tap hasn't crossed the 50ms threshold yet")

	require.NoError(t, testsupport.RunPipelineWithClock(chain, nil, pipeline.Clock{UptimeMs: 55}, event.NewTimeOut(10)))
	assert.Equal(t, 1, rec.calls, "the cumulative 55ms since the tap crosses the 50ms threshold")
	assert.Equal(t, 1, rec.count)
	assert.Equal(t, handlers.TapDanceTimeout, rec.end)
}

func TestTapDanceResolvesEarlyOnOtherKey(t *testing.T) {
	trigger := keycode.HIDUsage(keycode.UsageCapsLock)
	rec := &tapDanceRecorder{}
	td := handlers.NewTapDance("capsDance", trigger, rec, 200)
	collector := &testsupport.EventCollector{}
	chain := []pipeline.Handler{td, collector}

	require.NoError(t, testsupport.RunPipeline(chain, nil, event.NewKeyPress(trigger, 0)))
	require.NoError(t, testsupport.RunPipeline(chain, nil, event.NewKeyRelease(trigger, 10)))
	require.NoError(t, testsupport.RunPipeline(chain, nil, event.NewKeyPress(keycode.A, 20)))

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 1, rec.count)
	assert.Equal(t, handlers.TapDanceOtherKey, rec.end)
	require.Len(t, collector.Seen, 1, "the interrupting key still passes through")
}
