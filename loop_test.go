package aio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T) *Loop {
	loop, err := New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = loop.Shutdown()
	})
	return loop
}

//TestImmediateTimeout 0延迟的timeout在提交后的第一次迭代就要完成
func TestImmediateTimeout(t *testing.T) {

	loop := newTestLoop(t)

	var (
		c      Completion
		called int
	)
	err := loop.Timeout("ctx", func(ctx interface{}, cc *Completion, res int, err error) {
		called++
		assert.Equal(t, "ctx", ctx)
		assert.Same(t, &c, cc)
		assert.Equal(t, 0, res)
		assert.NoError(t, err)
	}, &c, 0)
	require.NoError(t, err)

	require.NoError(t, loop.Run())

	assert.Equal(t, 1, called)
	assert.Equal(t, 0, loop.Pending())
}

//TestTimeoutDeadline 回调触发时间不能早于截止时间
func TestTimeoutDeadline(t *testing.T) {

	loop := newTestLoop(t)

	var (
		c       Completion
		firedAt int64
	)
	delay := int64(50 * time.Millisecond)
	start := Now()

	require.NoError(t, loop.Timeout(nil, func(ctx interface{}, cc *Completion, res int, err error) {
		firedAt = Now()
	}, &c, delay))

	require.NoError(t, loop.RunForNs(int64(time.Second)))

	require.NotZero(t, firedAt)
	assert.GreaterOrEqual(t, firedAt, c.GetDeadline())
	assert.GreaterOrEqual(t, firedAt-start, delay)
}

//TestResubmitNextIteration 回调里重新提交的completion不在当前迭代处理
func TestResubmitNextIteration(t *testing.T) {

	loop := newTestLoop(t)

	var (
		c      Completion
		called int
	)
	var callback Callback
	callback = func(ctx interface{}, cc *Completion, res int, err error) {
		called++
		if called == 1 {
			require.NoError(t, loop.Timeout(nil, callback, cc, 0))
		}
	}

	require.NoError(t, loop.Timeout(nil, callback, &c, 0))

	require.NoError(t, loop.Run())
	assert.Equal(t, 1, called, "resubmission must wait for the next iteration")

	require.NoError(t, loop.Run())
	assert.Equal(t, 2, called)
	assert.Equal(t, 0, loop.Pending())
}

//TestDoubleSubmitMisuse 还在借用中的completion不允许再次提交
func TestDoubleSubmitMisuse(t *testing.T) {

	loop := newTestLoop(t)

	var c Completion
	noop := func(interface{}, *Completion, int, error) {}

	require.NoError(t, loop.Timeout(nil, noop, &c, int64(time.Hour)))
	assert.ErrorIs(t, loop.Timeout(nil, noop, &c, 0), ErrMisuse)

	// 收尾：挪进超时集合后取消掉
	require.NoError(t, loop.Run())
	require.NoError(t, loop.CancelTimeout(&c))
	require.NoError(t, loop.Run())
	assert.Equal(t, 0, loop.Pending())
}

//TestCancelTimeout 取消后的回调以ErrCanceled执行一次
func TestCancelTimeout(t *testing.T) {

	loop := newTestLoop(t)

	var (
		c      Completion
		called int
		got    error
	)
	require.NoError(t, loop.Timeout(nil, func(ctx interface{}, cc *Completion, res int, err error) {
		called++
		got = err
	}, &c, int64(time.Hour)))

	// 先跑一轮让timeout进入超时集合
	require.NoError(t, loop.Run())
	assert.Equal(t, 0, called)

	require.NoError(t, loop.CancelTimeout(&c))
	assert.ErrorIs(t, loop.CancelTimeout(&c), ErrMisuse)

	require.NoError(t, loop.Run())
	assert.Equal(t, 1, called)
	assert.ErrorIs(t, got, ErrCanceled)
	assert.Equal(t, 0, loop.Pending())

	// 回调结束后completion归还调用方，可以再次提交
	require.NoError(t, loop.Timeout(nil, func(interface{}, *Completion, int, error) {
		called++
	}, &c, 0))
	require.NoError(t, loop.Run())
	assert.Equal(t, 2, called)
}

//TestManyTimeouts 大量0延迟timeout全部恰好回调一次
func TestManyTimeouts(t *testing.T) {

	loop := newTestLoop(t)

	const total = 1000
	var (
		items  [total]Completion
		called int
	)

	for i := 0; i < total; i++ {
		require.NoError(t, loop.Timeout(nil, func(interface{}, *Completion, int, error) {
			called++
		}, &items[i], 0))
	}

	for i := 0; i < total && loop.Pending() > 0; i++ {
		require.NoError(t, loop.Run())
	}

	assert.Equal(t, total, called)
	assert.Equal(t, 0, loop.Pending())
}

//TestStopFromCallback Stop之后RunForNs在当前迭代结束就返回
func TestStopFromCallback(t *testing.T) {

	loop := newTestLoop(t)

	var (
		short Completion
		long  Completion
	)
	require.NoError(t, loop.Timeout(nil, func(interface{}, *Completion, int, error) {
		loop.Stop()
	}, &short, 0))
	require.NoError(t, loop.Timeout(nil, func(interface{}, *Completion, int, error) {}, &long, int64(time.Hour)))

	start := time.Now()
	require.NoError(t, loop.RunForNs(int64(10*time.Second)))
	assert.Less(t, time.Since(start), time.Second)

	// 收尾
	require.NoError(t, loop.CancelTimeout(&long))
	require.NoError(t, loop.Run())
	assert.Equal(t, 0, loop.Pending())
}

//TestNowCachedMonotonic 缓存时间跨迭代只增不减
func TestNowCachedMonotonic(t *testing.T) {

	loop := newTestLoop(t)

	prev := loop.NowCached()
	for i := 0; i < 100; i++ {
		require.NoError(t, loop.Run())
		now := loop.NowCached()
		assert.GreaterOrEqual(t, now, prev)
		prev = now
	}
}

//TestSubmitAfterShutdown 关闭后的提交和驱动都直接报错
func TestSubmitAfterShutdown(t *testing.T) {

	loop, err := New()
	require.NoError(t, err)
	require.NoError(t, loop.Shutdown())

	var c Completion
	noop := func(interface{}, *Completion, int, error) {}

	assert.ErrorIs(t, loop.Timeout(nil, noop, &c, 0), ErrShutdown)
	assert.ErrorIs(t, loop.Recv(nil, noop, &c, 0, make([]byte, 1)), ErrShutdown)
	assert.ErrorIs(t, loop.Run(), ErrShutdown)
	assert.ErrorIs(t, loop.RunForNs(1), ErrShutdown)
}

//TestSubmitValidation 提交阶段的参数错误不进回调
func TestSubmitValidation(t *testing.T) {

	loop := newTestLoop(t)

	var c Completion
	noop := func(interface{}, *Completion, int, error) {}

	assert.ErrorIs(t, loop.Recv(nil, noop, &c, -1, make([]byte, 1)), ErrBadFileDescriptor)
	assert.ErrorIs(t, loop.Recv(nil, noop, &c, 0, nil), ErrInvalidArgument)
	assert.ErrorIs(t, loop.Timeout(nil, nil, &c, 0), ErrInvalidArgument)
	assert.ErrorIs(t, loop.Connect(nil, noop, &c, 0, nil), ErrInvalidArgument)
	assert.Equal(t, 0, loop.Pending())
}

func BenchmarkTimeout(b *testing.B) {

	loop, err := New()
	if err != nil {
		b.Fatal(err)
	}
	defer loop.Shutdown()

	var c Completion
	noop := func(interface{}, *Completion, int, error) {}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := loop.Timeout(nil, noop, &c, 0); err != nil {
			b.Fatal(err)
		}
		if err := loop.Run(); err != nil {
			b.Fatal(err)
		}
	}
}
