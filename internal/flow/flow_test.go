package flow

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	var tr Tracker
	assert.Equal(t, Idle, tr.State())

	require.NoError(t, tr.Begin())
	assert.Equal(t, InFlight, tr.State())

	assert.ErrorIs(t, tr.Begin(), ErrInFlight)

	tr.Finish(errors.New("boom"))
	assert.Equal(t, Failed, tr.State())

	require.NoError(t, tr.Begin(), "a failed flow can be retried")
	tr.Finish(nil)
	assert.Equal(t, Succeeded, tr.State())

	require.NoError(t, tr.Begin())
	assert.Equal(t, InFlight, tr.State())
}

func TestTracker_ConcurrentBegin(t *testing.T) {
	var (
		tr      Tracker
		wg      sync.WaitGroup
		started atomic.Int32
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Begin() == nil {
				started.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), started.Load())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "in_flight", InFlight.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}
