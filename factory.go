// Factory functions for flowgo
// 工厂函数，提供各种创建Flowable的方法
package flowgo

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// 标量源 - Scalar Sources
// ============================================================================

// scalarPublisher 携带单个值的标量发布者
type scalarPublisher struct {
	value interface{}
}

// ScalarValue 暴露标量能力：值总是存在
func (p *scalarPublisher) ScalarValue() (interface{}, bool) {
	return p.value, true
}

// Subscribe 订阅Subscriber
func (p *scalarPublisher) Subscribe(subscriber Subscriber) {
	subscriber.OnSubscribe(&justSubscription{actual: subscriber, value: p.value})
}

// justSubscription 单值源的同步订阅，CAS保证至多发射一次
type justSubscription struct {
	actual Subscriber
	value  interface{}
	once   int32
}

// Request 首个合法请求发射值并完成
func (s *justSubscription) Request(n int64) {
	if !validateDemand(n) {
		return
	}

	if atomic.CompareAndSwapInt32(&s.once, 0, 1) {
		s.actual.OnNext(CreateItem(s.value))
		s.actual.OnComplete()
	}
}

// Cancel 取消订阅，使后续请求失效
func (s *justSubscription) Cancel() {
	atomic.StoreInt32(&s.once, 1)
}

// emptyPublisher 空的标量发布者，订阅后立即完成
type emptyPublisher struct{}

// ScalarValue 暴露标量能力：值不存在
func (emptyPublisher) ScalarValue() (interface{}, bool) {
	return nil, false
}

// Subscribe 订阅后立即完成，完成不依赖请求量
func (emptyPublisher) Subscribe(subscriber Subscriber) {
	subscriber.OnSubscribe(emptySubscription{})
	subscriber.OnComplete()
}

// Just 创建携带单个值的Flowable
func Just(value interface{}) Flowable {
	return &flowableImpl{source: &scalarPublisher{value: value}}
}

// Empty 创建一个空的Flowable，订阅后立即完成
func Empty() Flowable {
	return &flowableImpl{source: emptyPublisher{}}
}

// ============================================================================
// 基础工厂函数
// ============================================================================

// Error 创建一个立即发射错误的Flowable
func Error(err error) Flowable {
	return NewFlowable(func(subscriber Subscriber) {
		emitError(subscriber, err)
	})
}

// Never 创建一个永不发射任何信号的Flowable
func Never() Flowable {
	return NewFlowable(func(subscriber Subscriber) {
		subscriber.OnSubscribe(emptySubscription{})
	})
}

// FromSlice 从切片创建Flowable，按累计请求量发射
func FromSlice(values []interface{}) Flowable {
	return &flowableImpl{source: &slicePublisher{values: values}}
}

// Range 创建发射指定范围整数的Flowable
func Range(start int, count int) Flowable {
	values := make([]interface{}, count)
	for i := 0; i < count; i++ {
		values[i] = start + i
	}
	return &flowableImpl{source: &slicePublisher{values: values}}
}

// ============================================================================
// 切片发布者
// ============================================================================

// slicePublisher 切片数据源
type slicePublisher struct {
	values []interface{}
}

// Subscribe 订阅Subscriber
func (p *slicePublisher) Subscribe(subscriber Subscriber) {
	subscriber.OnSubscribe(&sliceSubscription{
		actual: subscriber,
		values: p.values,
	})
}

// sliceSubscription 切片源的订阅实现
// 发射在独立goroutine中进行并由互斥锁串行化，发射总量不超过累计请求量
type sliceSubscription struct {
	actual    Subscriber
	values    []interface{}
	index     int64
	done      bool
	cancelled int32
	mu        sync.Mutex
}

// Request 请求时异步发射数据
func (s *sliceSubscription) Request(n int64) {
	if !validateDemand(n) || atomic.LoadInt32(&s.cancelled) == 1 {
		return
	}

	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.done {
			return
		}

		for i := int64(0); i < n && s.index < int64(len(s.values)); i++ {
			if atomic.LoadInt32(&s.cancelled) == 1 {
				s.done = true
				return
			}

			value := s.values[s.index]
			s.index++
			s.actual.OnNext(CreateItem(value))
		}

		if s.index >= int64(len(s.values)) {
			s.done = true
			s.actual.OnComplete()
		}
	}()
}

// Cancel 取消订阅，停止后续发射
func (s *sliceSubscription) Cancel() {
	atomic.StoreInt32(&s.cancelled, 1)
}
