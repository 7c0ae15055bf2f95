// Flowable core implementation for flowgo
// Flowable核心实现，以包装发布者的方式组装算子链
package flowgo

// ============================================================================
// Flowable 核心实现
// ============================================================================

// funcPublisher 把订阅函数适配为Publisher
type funcPublisher func(subscriber Subscriber)

// Subscribe 订阅Subscriber
func (f funcPublisher) Subscribe(subscriber Subscriber) {
	f(subscriber)
}

// flowableImpl Flowable的核心实现，持有底层发布者
type flowableImpl struct {
	source Publisher
}

// NewFlowable 从订阅函数创建Flowable
func NewFlowable(source func(subscriber Subscriber)) Flowable {
	return &flowableImpl{source: funcPublisher(source)}
}

// FromPublisher 从Publisher创建Flowable
func FromPublisher(source Publisher) Flowable {
	if f, ok := source.(Flowable); ok {
		return f
	}
	return &flowableImpl{source: source}
}

// Subscribe 订阅Subscriber
func (f *flowableImpl) Subscribe(subscriber Subscriber) {
	f.source.Subscribe(subscriber)
}

// ============================================================================
// 订阅边界算子
// ============================================================================

// SubscribeOn 将订阅建立和请求传播移到调度器的worker上执行
func (f *flowableImpl) SubscribeOn(scheduler Scheduler) Flowable {
	return f.SubscribeOnWorker(func() (Worker, error) {
		return scheduler.CreateWorker(), nil
	})
}

// SubscribeOnWorker 使用指定的worker工厂构建订阅边界算子
func (f *flowableImpl) SubscribeOnWorker(factory WorkerFactory) Flowable {
	return &flowableImpl{source: &subscribeOnPublisher{
		source:  f.source,
		factory: factory,
	}}
}

// ============================================================================
// 转换算子
// ============================================================================

// Map 转换每个数据项
func (f *flowableImpl) Map(transformer Transformer) Flowable {
	return &flowableImpl{source: &mapPublisher{
		source:      f.source,
		transformer: transformer,
	}}
}

// Filter 过滤数据项
func (f *flowableImpl) Filter(predicate Predicate) Flowable {
	return &flowableImpl{source: &filterPublisher{
		source:    f.source,
		predicate: predicate,
	}}
}

// Take 取前N个数据项
func (f *flowableImpl) Take(count int64) Flowable {
	return &flowableImpl{source: &takePublisher{
		source: f.source,
		count:  count,
	}}
}

// ============================================================================
// 回调订阅
// ============================================================================

// SubscribeWith 使用回调函数订阅并返回订阅句柄
//
// 依赖上游在Subscribe返回前同步交付OnSubscribe（本库所有发布者都满足），
// 因此返回的句柄总是有效的
func (f *flowableImpl) SubscribeWith(onNext OnNext, onError OnError, onComplete OnComplete) Subscription {
	subscriber := &callbackSubscriber{
		onNext:     onNext,
		onError:    onError,
		onComplete: onComplete,
	}

	f.Subscribe(subscriber)

	subscriber.mu.Lock()
	subscription := subscriber.subscription
	subscriber.mu.Unlock()

	if subscription == nil {
		return emptySubscription{}
	}
	return subscription
}
