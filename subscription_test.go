// Subscription infrastructure tests for flowgo
// 延迟订阅的缓冲/冲刷语义及其并发正确性测试
package flowgo

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSubscription 累计收到的请求量和取消次数
type countingSubscription struct {
	requested int64
	forwards  int64
	cancels   int32
}

func (s *countingSubscription) Request(n int64) {
	atomic.AddInt64(&s.requested, n)
	atomic.AddInt64(&s.forwards, 1)
}

func (s *countingSubscription) Cancel() {
	atomic.AddInt32(&s.cancels, 1)
}

func (s *countingSubscription) total() int64 {
	return atomic.LoadInt64(&s.requested)
}

func TestDeferredSubscriptionBuffersUntilSet(t *testing.T) {
	// 安装前的请求量被缓冲，安装时作为单次请求冲刷
	d := &deferredSubscription{}
	up := &countingSubscription{}

	d.Request(3)
	assert.Equal(t, int64(0), up.total(), "安装前不应有任何转发")

	require.True(t, d.set(up))
	assert.Equal(t, int64(3), up.total())
	assert.Equal(t, int64(1), atomic.LoadInt64(&up.forwards), "缓冲量以单次请求冲刷")

	// 安装后的请求直接转发，不与历史合并
	d.Request(2)
	assert.Equal(t, int64(5), up.total())
	assert.Equal(t, int64(2), atomic.LoadInt64(&up.forwards))
}

func TestDeferredSubscriptionSetWithoutPending(t *testing.T) {
	// 没有缓冲量时安装不产生请求
	d := &deferredSubscription{}
	up := &countingSubscription{}

	require.True(t, d.set(up))
	assert.Equal(t, int64(0), up.total())
	assert.Equal(t, int64(0), atomic.LoadInt64(&up.forwards))
}

func TestDeferredSubscriptionRejectsInvalidDemand(t *testing.T) {
	// 非正数请求被丢弃，不进入缓冲
	d := &deferredSubscription{}
	up := &countingSubscription{}

	d.Request(0)
	d.Request(-1)
	require.True(t, d.set(up))
	assert.Equal(t, int64(0), up.total())
}

func TestDeferredSubscriptionCancelBeforeSet(t *testing.T) {
	// 取消先行：晚到的真实订阅被立即取消而不是激活
	d := &deferredSubscription{}
	up := &countingSubscription{}

	d.Request(5)
	d.Cancel()
	assert.True(t, d.isCancelled())

	require.False(t, d.set(up))
	assert.Equal(t, int32(1), atomic.LoadInt32(&up.cancels))
	assert.Equal(t, int64(0), up.total(), "已取消的订阅不接收缓冲量")
}

func TestDeferredSubscriptionCancelAfterSet(t *testing.T) {
	// 安装后取消同步传递给真实订阅，且幂等
	d := &deferredSubscription{}
	up := &countingSubscription{}

	require.True(t, d.set(up))
	d.Cancel()
	d.Cancel()
	assert.Equal(t, int32(1), atomic.LoadInt32(&up.cancels))

	// 取消后的请求被丢弃
	d.Request(1)
	assert.Equal(t, int64(0), up.total())
}

func TestDeferredSubscriptionDuplicateSet(t *testing.T) {
	// 重复安装视为协议违规，后来者被取消
	d := &deferredSubscription{}
	first := &countingSubscription{}
	second := &countingSubscription{}

	require.True(t, d.set(first))
	require.False(t, d.set(second))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second.cancels))
	assert.Equal(t, int32(0), atomic.LoadInt32(&first.cancels))
}

func TestDeferredSubscriptionConcurrentRequestAndSet(t *testing.T) {
	// 安装与并发请求竞争：请求量既不丢失也不重复计数
	for i := 0; i < 500; i++ {
		d := &deferredSubscription{}
		up := &countingSubscription{}

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			d.Request(3)
		}()
		go func() {
			defer wg.Done()
			d.Request(4)
		}()
		go func() {
			defer wg.Done()
			d.set(up)
		}()
		wg.Wait()

		assert.Equal(t, int64(7), up.total(), "请求总量必须恰好为7")
	}
}

func TestEmptySubscriptionIsNoop(t *testing.T) {
	// 空订阅对请求和取消均无副作用
	var s emptySubscription
	s.Request(1)
	s.Request(-1)
	s.Cancel()
}
