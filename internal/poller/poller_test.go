package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/gate-remote/internal/orchestrator"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func manualClock(t *testing.T) chan time.Time {
	t.Helper()
	ticks := make(chan time.Time)
	orig := after
	after = func(time.Duration) <-chan time.Time { return ticks }
	t.Cleanup(func() { after = orig })
	return ticks
}

func TestRun_RefreshesEachInterval(t *testing.T) {
	ticks := manualClock(t)
	r := &countingRefresher{}
	ctx, cancel := context.WithCancel(context.Background())

	done := Run(ctx, r, time.Minute)
	ticks <- time.Now()
	ticks <- time.Now()
	ticks <- time.Now()
	cancel()
	<-done

	assert.GreaterOrEqual(t, r.calls.Load(), int32(2))
	assert.LessOrEqual(t, r.calls.Load(), int32(3))
}

func TestRun_ContinuesAfterBusyAndErrors(t *testing.T) {
	ticks := manualClock(t)
	r := &countingRefresher{err: orchestrator.ErrBusy}
	ctx, cancel := context.WithCancel(context.Background())

	done := Run(ctx, r, time.Minute)
	ticks <- time.Now()
	ticks <- time.Now()
	cancel()
	<-done

	assert.GreaterOrEqual(t, r.calls.Load(), int32(1))

	r = &countingRefresher{err: errors.New("connection refused")}
	ctx, cancel = context.WithCancel(context.Background())
	done = Run(ctx, r, time.Minute)
	ticks <- time.Now()
	ticks <- time.Now()
	cancel()
	<-done

	assert.GreaterOrEqual(t, r.calls.Load(), int32(1))
}

func TestRun_DisabledWithZeroInterval(t *testing.T) {
	r := &countingRefresher{}

	done := Run(context.Background(), r, 0)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled poller did not finish")
	}
	assert.Equal(t, int32(0), r.calls.Load())
}
