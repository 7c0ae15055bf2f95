// Transforming operators for flowgo
// 转换算子实现：透传订阅句柄，在订阅者侧完成逐项变换
package flowgo

import (
	"sync/atomic"
)

// ============================================================================
// Map 算子
// ============================================================================

// mapPublisher Map算子的发布者实现
type mapPublisher struct {
	source      Publisher
	transformer Transformer
}

// Subscribe 订阅Subscriber
func (p *mapPublisher) Subscribe(subscriber Subscriber) {
	p.source.Subscribe(&mapSubscriber{
		actual:      subscriber,
		transformer: p.transformer,
	})
}

// mapSubscriber Map算子的订阅者，转换失败时取消上游并向下游报错
type mapSubscriber struct {
	actual       Subscriber
	transformer  Transformer
	subscription Subscription
	done         int32
}

// OnSubscribe 透传上游订阅句柄，请求量1:1对应
func (m *mapSubscriber) OnSubscribe(subscription Subscription) {
	m.subscription = subscription
	m.actual.OnSubscribe(subscription)
}

// OnNext 转换后转发数据项
func (m *mapSubscriber) OnNext(item Item) {
	if atomic.LoadInt32(&m.done) == 1 {
		return
	}

	if item.IsError() {
		m.OnError(item.Error)
		return
	}

	value, err := m.transformer(item.Value)
	if err != nil {
		if atomic.CompareAndSwapInt32(&m.done, 0, 1) {
			m.subscription.Cancel()
			m.actual.OnError(err)
		}
		return
	}

	m.actual.OnNext(CreateItem(value))
}

// OnError 转发错误信号
func (m *mapSubscriber) OnError(err error) {
	if atomic.CompareAndSwapInt32(&m.done, 0, 1) {
		m.actual.OnError(err)
	}
}

// OnComplete 转发完成信号
func (m *mapSubscriber) OnComplete() {
	if atomic.CompareAndSwapInt32(&m.done, 0, 1) {
		m.actual.OnComplete()
	}
}

// ============================================================================
// Filter 算子
// ============================================================================

// filterPublisher Filter算子的发布者实现
type filterPublisher struct {
	source    Publisher
	predicate Predicate
}

// Subscribe 订阅Subscriber
func (p *filterPublisher) Subscribe(subscriber Subscriber) {
	p.source.Subscribe(&filterSubscriber{
		actual:    subscriber,
		predicate: p.predicate,
	})
}

// filterSubscriber Filter算子的订阅者
// 丢弃数据项时向上游补充请求1个，维持下游可见的请求量语义
type filterSubscriber struct {
	actual       Subscriber
	predicate    Predicate
	subscription Subscription
	done         int32
}

// OnSubscribe 透传上游订阅句柄
func (f *filterSubscriber) OnSubscribe(subscription Subscription) {
	f.subscription = subscription
	f.actual.OnSubscribe(subscription)
}

// OnNext 通过谓词检查的数据项转发，否则补充请求
func (f *filterSubscriber) OnNext(item Item) {
	if atomic.LoadInt32(&f.done) == 1 {
		return
	}

	if item.IsError() {
		f.OnError(item.Error)
		return
	}

	if f.predicate(item.Value) {
		f.actual.OnNext(item)
	} else {
		f.subscription.Request(1)
	}
}

// OnError 转发错误信号
func (f *filterSubscriber) OnError(err error) {
	if atomic.CompareAndSwapInt32(&f.done, 0, 1) {
		f.actual.OnError(err)
	}
}

// OnComplete 转发完成信号
func (f *filterSubscriber) OnComplete() {
	if atomic.CompareAndSwapInt32(&f.done, 0, 1) {
		f.actual.OnComplete()
	}
}

// ============================================================================
// Take 算子
// ============================================================================

// takePublisher Take算子的发布者实现
type takePublisher struct {
	source Publisher
	count  int64
}

// Subscribe 订阅Subscriber
func (p *takePublisher) Subscribe(subscriber Subscriber) {
	p.source.Subscribe(&takeSubscriber{
		actual:    subscriber,
		remaining: p.count,
	})
}

// takeSubscriber Take算子的订阅者，发满数量后取消上游并提前完成
type takeSubscriber struct {
	actual       Subscriber
	remaining    int64
	subscription Subscription
	done         int32
}

// OnSubscribe 透传上游订阅句柄；count为0时立即完成
func (t *takeSubscriber) OnSubscribe(subscription Subscription) {
	t.subscription = subscription
	t.actual.OnSubscribe(subscription)

	if t.remaining <= 0 {
		if atomic.CompareAndSwapInt32(&t.done, 0, 1) {
			subscription.Cancel()
			t.actual.OnComplete()
		}
	}
}

// OnNext 转发数据项直到满足数量
func (t *takeSubscriber) OnNext(item Item) {
	if atomic.LoadInt32(&t.done) == 1 {
		return
	}

	if item.IsError() {
		t.OnError(item.Error)
		return
	}

	left := atomic.AddInt64(&t.remaining, -1)
	if left >= 0 {
		t.actual.OnNext(item)
	}

	if left == 0 {
		if atomic.CompareAndSwapInt32(&t.done, 0, 1) {
			t.subscription.Cancel()
			t.actual.OnComplete()
		}
	}
}

// OnError 转发错误信号
func (t *takeSubscriber) OnError(err error) {
	if atomic.CompareAndSwapInt32(&t.done, 0, 1) {
		t.actual.OnError(err)
	}
}

// OnComplete 转发完成信号
func (t *takeSubscriber) OnComplete() {
	if atomic.CompareAndSwapInt32(&t.done, 0, 1) {
		t.actual.OnComplete()
	}
}
