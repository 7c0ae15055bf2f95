// SubscribeOn operator for flowgo
// 订阅边界异步化算子：把订阅建立和请求传播移到worker上执行，
// 数据和终止信号仍然在上游发射goroutine内联传递
package flowgo

import (
	"sync/atomic"
)

// ============================================================================
// 算子入口
// ============================================================================

// subscribeOnPublisher SubscribeOn算子的发布者实现
type subscribeOnPublisher struct {
	source  Publisher
	factory WorkerFactory
}

// Subscribe 每个下游订阅获取一个专属worker，然后按源类型分派
//
// 工厂返回错误时立即以该错误终止下游（仍然保证OnSubscribe先行）；
// 工厂panic不做恢复，直接向Subscribe调用者传播
func (p *subscribeOnPublisher) Subscribe(subscriber Subscriber) {
	worker, err := p.factory()
	if err != nil {
		emitError(subscriber, err)
		return
	}

	if worker == nil {
		emitError(subscriber, ErrNoWorker)
		return
	}

	// 标量源走快速路径：订阅时同步取得全部内容（0或1个值）
	if scalar, ok := p.source.(ScalarSource); ok {
		value, present := scalar.ScalarValue()

		if !present {
			parent := &scalarEmptySubscription{actual: subscriber, worker: worker}
			subscriber.OnSubscribe(parent)
			worker.Schedule(parent.run)
		} else {
			subscriber.OnSubscribe(&scalarValueSubscription{
				actual: subscriber,
				value:  value,
				worker: worker,
			})
		}
		return
	}

	parent := &subscribeOnBridge{actual: subscriber, worker: worker}
	subscriber.OnSubscribe(parent)

	worker.Schedule(func() {
		p.source.Subscribe(parent)
	})
}

// ============================================================================
// 通用桥接路径 - General Bridge
// ============================================================================

// subscribeOnBridge 介于真实上游和下游之间的订阅者/订阅对
// 对上游实现Subscriber契约，对下游实现Subscription契约；
// 订阅建立和请求转发经由worker，数据和终止信号内联直通
type subscribeOnBridge struct {
	deferredSubscription
	actual Subscriber
	worker Worker
}

// OnSubscribe 真实上游的订阅到位，安装进延迟订阅并冲刷缓冲的请求量
func (b *subscribeOnBridge) OnSubscribe(s Subscription) {
	b.set(s)
}

// OnNext 数据信号原样直通下游，不经过worker
func (b *subscribeOnBridge) OnNext(item Item) {
	b.actual.OnNext(item)
}

// OnError 先释放worker再转发错误，保证下游处理缓慢时资源也已归还
func (b *subscribeOnBridge) OnError(err error) {
	b.worker.Dispose()
	b.actual.OnError(err)
}

// OnComplete 与OnError对称：先释放worker再转发完成信号
func (b *subscribeOnBridge) OnComplete() {
	b.worker.Dispose()
	b.actual.OnComplete()
}

// Request 请求经worker转发，保证所有请求以worker顺序到达上游
func (b *subscribeOnBridge) Request(n int64) {
	if validateDemand(n) {
		b.worker.Schedule(func() {
			b.requestInner(n)
		})
	}
}

// requestInner 在worker上执行的实际请求转发
func (b *subscribeOnBridge) requestInner(n int64) {
	b.deferredSubscription.Request(n)
}

// Cancel 同步取消延迟订阅（不排队等待请求任务），然后释放worker
func (b *subscribeOnBridge) Cancel() {
	b.deferredSubscription.Cancel()
	b.worker.Dispose()
}

// ============================================================================
// 标量快速路径 - Scalar Fast Path
// ============================================================================

// scalarValueSubscription 携带单个值的急切订阅
// once标志通过CAS保证值至多被调度发射一次
type scalarValueSubscription struct {
	actual Subscriber
	value  interface{}
	worker Worker
	once   int32
}

// Request 首个合法请求赢得idle到triggered的转换并调度发射任务
func (s *scalarValueSubscription) Request(n int64) {
	if !validateDemand(n) {
		return
	}

	if atomic.CompareAndSwapInt32(&s.once, 0, 1) {
		s.worker.Schedule(s.run)
	}
}

// Cancel 置为triggered使竞争中的Request失败，然后直接释放worker
// 不经过任务提交，保证值从未被请求时worker也能得到释放
func (s *scalarValueSubscription) Cancel() {
	atomic.StoreInt32(&s.once, 1)
	s.worker.Dispose()
}

// run 发射任务：交付值、释放worker、交付完成信号，严格按此顺序
func (s *scalarValueSubscription) run() {
	s.actual.OnNext(CreateItem(s.value))
	s.worker.Dispose()
	s.actual.OnComplete()
}

// scalarEmptySubscription 空源的急切完成订阅
// 完成不依赖请求量（空源无需请求即可完成），无需原子标志
type scalarEmptySubscription struct {
	actual Subscriber
	worker Worker
}

// Request 只做校验，不控制任何行为
func (s *scalarEmptySubscription) Request(n int64) {
	validateDemand(n)
}

// Cancel 释放worker；完成任务若仍运行，幂等的Dispose保证不会重复释放
func (s *scalarEmptySubscription) Cancel() {
	s.worker.Dispose()
}

// run 完成任务：先释放worker，再交付完成信号
func (s *scalarEmptySubscription) run() {
	s.worker.Dispose()
	s.actual.OnComplete()
}
