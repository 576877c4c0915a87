package node

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/mediaflow/errors"
	"github.com/c360/mediaflow/pkg/retry"
	"github.com/c360/mediaflow/record"
)

func TestResult_Ordering(t *testing.T) {
	assert.Less(t, int(ResultOK), int(ResultRetry))
	assert.Less(t, int(ResultRetry), int(ResultEndOfStream))
	assert.Less(t, int(ResultEndOfStream), int(ResultNotOpen))
	assert.Less(t, int(ResultNotOpen), int(ResultError))

	assert.False(t, ResultOK.Terminal())
	assert.False(t, ResultRetry.Terminal())
	assert.True(t, ResultEndOfStream.Terminal())
	assert.True(t, ResultError.Terminal())

	assert.Equal(t, ResultError, Fold(ResultError, ResultEndOfStream))
	assert.Equal(t, ResultEndOfStream, Fold(ResultOK, ResultEndOfStream))
	assert.Equal(t, "end_of_stream", ResultEndOfStream.String())
	assert.Equal(t, "result(7)", Result(7).String())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"source", RoleSource},
		{"head", RoleSource},
		{" Sink ", RoleSink},
		{"tail", RoleSink},
		{"connector", RoleConnector},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseRole("middle")
	assert.True(t, stderrors.Is(err, errors.ErrUnknownRole))
}

func TestBase_Lifecycle(t *testing.T) {
	var opens, closes int
	b := NewBase("n", RoleConnector, Hooks{
		Open:  func() error { opens++; return nil },
		Close: func() error { closes++; return nil },
	})

	assert.Equal(t, StateNotOpened, b.State())
	require.NoError(t, b.Close(), "closing a node that was never opened is a no-op")
	assert.Equal(t, 0, closes)

	require.NoError(t, b.Open())
	require.NoError(t, b.Open())
	assert.Equal(t, 1, opens)
	assert.True(t, b.IsOpened())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, closes)
	assert.Equal(t, StateClosed, b.State())

	require.NoError(t, b.Open(), "a closed node can be reopened")
	assert.Equal(t, 2, opens)
}

func TestBase_OpenFailure(t *testing.T) {
	boom := stderrors.New("device busy")
	b := NewBase("cam", RoleSource, Hooks{Open: func() error { return boom }})

	err := b.Open()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, boom))
	assert.True(t, errors.IsTransient(err))
	assert.Contains(t, err.Error(), "cam.Open")
	assert.Equal(t, StateNotOpened, b.State())
}

func TestBase_CloseFailureStillCloses(t *testing.T) {
	b := NewBase("out", RoleSink, Hooks{Close: func() error { return stderrors.New("flush failed") }})
	require.NoError(t, b.Open())

	err := b.Close()
	assert.Error(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBase_ConcurrentOpenRunsHookOnce(t *testing.T) {
	var opens int32
	b := NewBase("n", RoleSource, Hooks{Open: func() error {
		atomic.AddInt32(&opens, 1)
		time.Sleep(5 * time.Millisecond)
		return nil
	}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Open())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&opens))
}

func TestFunc_NotOpenAndPassThrough(t *testing.T) {
	f := NewFunc("f", RoleConnector, Hooks{}, nil, nil)
	in := record.NewList(0)
	out := record.NewList(0)
	in.Push(record.New())

	assert.Equal(t, ResultNotOpen, f.Dispatch(context.Background(), in, out))
	assert.Equal(t, ResultNotOpen, f.Process(context.Background(), in, out))

	require.NoError(t, f.Open())
	assert.Equal(t, ResultOK, f.Dispatch(context.Background(), in, out))
	assert.Equal(t, 0, in.Len())
	assert.Equal(t, 1, out.Len())
}

func TestFunc_Callbacks(t *testing.T) {
	f := NewFunc("f", RoleSource, Hooks{},
		func(_ context.Context, _, out *record.List) Result {
			out.Push(record.New())
			return ResultOK
		},
		func(_ context.Context, in, _ *record.List) Result {
			in.Release()
			return ResultEndOfStream
		})
	require.NoError(t, f.Open())

	in := record.NewList(0)
	out := record.NewList(0)
	assert.Equal(t, ResultOK, f.Dispatch(context.Background(), in, out))
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, ResultEndOfStream, f.Process(context.Background(), out, in))
	assert.Equal(t, 0, out.Len())
}

func testSched() *retry.Scheduler {
	return retry.NewScheduler(retry.Config{
		Step:          time.Millisecond,
		MaxSleep:      5 * time.Millisecond,
		LowThreshold:  1,
		HighThreshold: 3,
	})
}

func TestRetry_ResolvesLocally(t *testing.T) {
	sched := testSched()
	calls := 0
	res := Retry(context.Background(), sched, func() Result {
		calls++
		if calls < 4 {
			return ResultRetry
		}
		return ResultOK
	})

	assert.Equal(t, ResultOK, res)
	assert.Equal(t, 4, calls)
	assert.Equal(t, int64(3), sched.Stats().Waits)
	assert.Equal(t, time.Millisecond, sched.Sleep(), "three retries reach the high threshold")
}

func TestRetry_NoRetryNoWait(t *testing.T) {
	sched := testSched()
	res := Retry(context.Background(), sched, func() Result { return ResultEndOfStream })
	assert.Equal(t, ResultEndOfStream, res)
	assert.Equal(t, int64(0), sched.Stats().Waits)
}

func TestRetry_CancelledWhileWaiting(t *testing.T) {
	sched := retry.NewScheduler(retry.Config{
		Step:          50 * time.Millisecond,
		MaxSleep:      50 * time.Millisecond,
		LowThreshold:  0,
		HighThreshold: 1,
	})
	// grow the sleep so the next wait blocks
	sched.Begin()
	require.NoError(t, sched.Wait(context.Background()))
	sched.End()
	require.Equal(t, 50*time.Millisecond, sched.Sleep())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := Retry(ctx, sched, func() Result { return ResultRetry })
	assert.Equal(t, ResultRetry, res)
	assert.Less(t, time.Since(start), time.Second)
	assert.Error(t, ctx.Err(), "cancellation stays visible to the caller")
}

func TestRetry_NilScheduler(t *testing.T) {
	calls := 0
	res := Retry(context.Background(), nil, func() Result { calls++; return ResultRetry })
	assert.Equal(t, ResultRetry, res)
	assert.Equal(t, 1, calls)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	factory := func(name string, settings map[string]any, _ Dependencies) (Node, error) {
		return NewFunc(name, RoleConnector, Hooks{}, nil, nil), nil
	}

	require.NoError(t, reg.Register(&Registration{Type: "pass", Role: RoleConnector, Factory: factory}))
	assert.Error(t, reg.Register(&Registration{Type: "pass", Role: RoleConnector, Factory: factory}))
	assert.Error(t, reg.Register(&Registration{Type: "", Role: RoleConnector, Factory: factory}))
	assert.Error(t, reg.Register(&Registration{Type: "x", Role: RoleConnector}))
	assert.Error(t, reg.Register(&Registration{Type: "y", Factory: factory}))
	assert.Error(t, reg.Register(nil))

	require.NoError(t, reg.Register(&Registration{Type: "liar", Role: RoleSink, Factory: factory}))
	assert.Equal(t, []string{"liar", "pass"}, reg.Types())

	n, err := reg.Create("pass", "p1", nil, Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, "p1", n.Name())

	_, err = reg.Create("missing", "m", nil, Dependencies{})
	assert.True(t, stderrors.Is(err, errors.ErrUnknownNodeType))

	_, err = reg.Create("liar", "l", nil, Dependencies{})
	assert.Error(t, err, "role mismatch is rejected")

	_, err = reg.Create("pass", "", nil, Dependencies{})
	assert.Error(t, err)
}
