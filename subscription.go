// Subscription helpers for flowgo
// 订阅句柄的基础设施：请求校验、空订阅、以及请求缓冲的延迟订阅
package flowgo

import (
	"errors"
	"sync/atomic"
)

// ErrNoWorker worker工厂返回了空worker
var ErrNoWorker = errors.New("worker工厂返回了空worker")

// validateDemand 校验请求数量必须为正数
// 非法请求通过badRequest钩子上报后被丢弃，不会静默截断
func validateDemand(n int64) bool {
	if n <= 0 {
		reportBadRequest(n)
		return false
	}
	return true
}

// ============================================================================
// 空订阅 - Empty Subscription
// ============================================================================

// emptySubscription 无操作的订阅句柄
// 用于在没有真实上游的情况下满足"OnSubscribe先于一切信号"的契约
type emptySubscription struct{}

// Request 只做校验，不产生任何效果
func (emptySubscription) Request(n int64) {
	validateDemand(n)
}

// Cancel 无操作
func (emptySubscription) Cancel() {}

// emitError 先交付空订阅句柄再交付终止错误
func emitError(subscriber Subscriber, err error) {
	subscriber.OnSubscribe(emptySubscription{})
	subscriber.OnError(err)
}

// ============================================================================
// 延迟订阅 - Deferred Subscription
// ============================================================================

// subscriptionRef 真实订阅的装箱引用，便于原子发布
type subscriptionRef struct {
	actual Subscription
}

// cancelledRef 取消状态的哨兵引用
var cancelledRef = &subscriptionRef{}

// deferredSubscription 在真实上游订阅到位之前缓冲请求数量的订阅基类
// ref一次性原子发布真实订阅；requested累积尚未转发的请求量。
// 同一份请求量要么被缓冲路径持有、要么被转发路径取走，绝不两者同时
type deferredSubscription struct {
	ref       atomic.Pointer[subscriptionRef]
	requested atomic.Int64
}

// set 安装真实订阅并立即转发已缓冲的请求量
// 已取消时直接取消传入的订阅；重复安装视为协议违规，取消后来者
func (d *deferredSubscription) set(s Subscription) bool {
	for {
		current := d.ref.Load()
		if current != nil {
			s.Cancel()
			return false
		}

		if d.ref.CompareAndSwap(nil, &subscriptionRef{actual: s}) {
			if r := d.requested.Swap(0); r > 0 {
				s.Request(r)
			}
			return true
		}
	}
}

// Request 校验后转发或缓冲请求量
func (d *deferredSubscription) Request(n int64) {
	if !validateDemand(n) {
		return
	}

	if current := d.ref.Load(); current != nil {
		if current != cancelledRef {
			current.actual.Request(n)
		}
		return
	}

	d.requested.Add(n)

	// 重新检查：安装可能与缓冲并发完成，此时把余量取走自己转发
	if current := d.ref.Load(); current != nil && current != cancelledRef {
		if r := d.requested.Swap(0); r > 0 {
			current.actual.Request(r)
		}
	}
}

// Cancel 标记取消；真实订阅已到位时同步取消它
func (d *deferredSubscription) Cancel() {
	current := d.ref.Swap(cancelledRef)
	if current != nil && current != cancelledRef {
		current.actual.Cancel()
	}
}

// isCancelled 检查是否已取消
func (d *deferredSubscription) isCancelled() bool {
	return d.ref.Load() == cancelledRef
}
