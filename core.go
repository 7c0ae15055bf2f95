// Package flowgo provides a backpressured reactive stream core for Go
// 基于Reactive Streams规范的背压数据流核心库，专注于订阅边界的异步化处理
package flowgo

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// 核心类型定义
// ============================================================================

// Item 表示流中的一个数据项，包含值或错误
type Item struct {
	Value interface{} // 数据值
	Error error       // 错误信息
}

// IsError 检查项目是否包含错误
func (item Item) IsError() bool {
	return item.Error != nil
}

// GetValue 获取项目的值，如果是错误则返回nil
func (item Item) GetValue() interface{} {
	if item.IsError() {
		return nil
	}
	return item.Value
}

// CreateItem 创建包含值的项目
func CreateItem(value interface{}) Item {
	return Item{Value: value}
}

// CreateErrorItem 创建包含错误的项目
func CreateErrorItem(err error) Item {
	return Item{Error: err}
}

// ============================================================================
// 函数类型定义
// ============================================================================

// OnNext 处理下一个值的函数
type OnNext func(value interface{})

// OnError 处理错误的函数
type OnError func(err error)

// OnComplete 处理完成的函数
type OnComplete func()

// Predicate 谓词函数，用于过滤
type Predicate func(value interface{}) bool

// Transformer 转换函数，用于映射
type Transformer func(value interface{}) (interface{}, error)

// ============================================================================
// Reactive Streams 契约接口
// ============================================================================

// Subscription 订阅句柄，管理请求和取消
// 下游可以从任意goroutine调用，终止后继续调用必须是安全的no-op
type Subscription interface {
	// Request 请求指定数量的数据项，n必须为正数
	Request(n int64)
	// Cancel 取消订阅
	Cancel()
}

// Subscriber 数据流的订阅者接口
// OnSubscribe保证在任何其他信号之前恰好被调用一次
type Subscriber interface {
	// OnSubscribe 订阅开始时调用
	OnSubscribe(subscription Subscription)
	// OnNext 接收到新数据时调用
	OnNext(item Item)
	// OnError 发生错误时调用
	OnError(err error)
	// OnComplete 数据流完成时调用
	OnComplete()
}

// Publisher 发布者接口，符合Reactive Streams规范
type Publisher interface {
	// Subscribe 订阅Subscriber
	Subscribe(subscriber Subscriber)
}

// ScalarSource 标量数据源能力接口
// 可以在订阅时同步给出全部内容（0或1个值）的发布者实现此接口，
// SubscribeOn据此走快速路径而无需完整的订阅协议
type ScalarSource interface {
	// ScalarValue 返回标量值；第二个返回值为false表示源为空
	ScalarValue() (interface{}, bool)
}

// ============================================================================
// Flowable 接口定义
// ============================================================================

// Flowable 支持背压的响应式数据流接口
type Flowable interface {
	Publisher

	// SubscribeOn 将订阅建立和请求传播移到指定调度器上执行，
	// 数据和终止信号仍然在上游发射线程内联传递
	SubscribeOn(scheduler Scheduler) Flowable

	// SubscribeOnWorker 与SubscribeOn相同，但直接使用worker工厂
	SubscribeOnWorker(factory WorkerFactory) Flowable

	// Map 转换每个数据项
	Map(transformer Transformer) Flowable

	// Filter 过滤数据项
	Filter(predicate Predicate) Flowable

	// Take 取前N个数据项
	Take(count int64) Flowable

	// SubscribeWith 使用回调函数订阅，返回订阅句柄
	SubscribeWith(onNext OnNext, onError OnError, onComplete OnComplete) Subscription
}

// ============================================================================
// 生命周期管理
// ============================================================================

// Disposable 可释放资源的接口
type Disposable interface {
	// Dispose 释放资源
	Dispose()
	// IsDisposed 检查是否已释放
	IsDisposed() bool
}

// baseDisposable 基础可释放资源实现
type baseDisposable struct {
	disposed int32
	action   func()
}

// NewBaseDisposable 创建基础可释放资源
func NewBaseDisposable(action func()) *baseDisposable {
	return &baseDisposable{
		action: action,
	}
}

// Dispose 释放资源
func (d *baseDisposable) Dispose() {
	if atomic.CompareAndSwapInt32(&d.disposed, 0, 1) {
		if d.action != nil {
			d.action()
		}
	}
}

// IsDisposed 检查是否已释放
func (d *baseDisposable) IsDisposed() bool {
	return atomic.LoadInt32(&d.disposed) == 1
}

// ============================================================================
// 回调订阅者
// ============================================================================

// callbackSubscriber 基于回调函数的订阅者实现
type callbackSubscriber struct {
	onNext       OnNext
	onError      OnError
	onComplete   OnComplete
	subscription Subscription
	done         int32
	mu           sync.Mutex
}

// OnSubscribe 订阅开始时调用
func (c *callbackSubscriber) OnSubscribe(subscription Subscription) {
	c.mu.Lock()
	c.subscription = subscription
	c.mu.Unlock()
}

// OnNext 接收到新数据时调用
func (c *callbackSubscriber) OnNext(item Item) {
	if atomic.LoadInt32(&c.done) == 1 {
		return
	}

	if item.IsError() {
		c.OnError(item.Error)
		return
	}

	if c.onNext != nil {
		c.onNext(item.Value)
	}
}

// OnError 发生错误时调用
func (c *callbackSubscriber) OnError(err error) {
	if atomic.CompareAndSwapInt32(&c.done, 0, 1) {
		if c.onError != nil {
			c.onError(err)
		}
	}
}

// OnComplete 数据流完成时调用
func (c *callbackSubscriber) OnComplete() {
	if atomic.CompareAndSwapInt32(&c.done, 0, 1) {
		if c.onComplete != nil {
			c.onComplete()
		}
	}
}
