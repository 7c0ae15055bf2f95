// Scheduler and worker implementations for flowgo
// 实现调度器系统，worker是顺序执行提交任务的最小调度单元
package flowgo

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// ============================================================================
// Worker 接口定义
// ============================================================================

// Worker 顺序任务执行器
// 提交的任务严格按提交顺序逐个执行，提交操作本身不阻塞；
// Dispose释放底层资源且幂等，释放后的提交是no-op
type Worker interface {
	// Schedule 提交一个任务等待顺序执行
	Schedule(task func())
	// Dispose 释放worker资源，可重复调用
	Dispose()
	// IsDisposed 检查是否已释放
	IsDisposed() bool
}

// WorkerFactory worker构造工厂，每个下游订阅调用一次
// 返回错误表示构造失败（将作为终止错误传给下游）；
// 返回(nil, nil)同样视为构造失败
type WorkerFactory func() (Worker, error)

// Scheduler 调度器接口，负责创建worker并执行一次性任务
type Scheduler interface {
	// CreateWorker 创建一个新的顺序worker
	CreateWorker() Worker
	// Schedule 调度一个一次性任务
	Schedule(action func()) Disposable
}

// ============================================================================
// 串行事件循环 worker - Serial Event Loop Worker
// ============================================================================

// serialWorker 基于惰性启动的排空goroutine实现的FIFO worker
type serialWorker struct {
	queue      []func()
	mu         sync.Mutex
	processing bool
	disposed   int32
}

// NewSerialWorker 创建串行worker
func NewSerialWorker() Worker {
	return &serialWorker{
		queue: make([]func(), 0),
	}
}

// Schedule 提交任务，已释放时直接丢弃
func (w *serialWorker) Schedule(task func()) {
	if task == nil || atomic.LoadInt32(&w.disposed) == 1 {
		return
	}

	w.mu.Lock()
	if atomic.LoadInt32(&w.disposed) == 1 {
		w.mu.Unlock()
		return
	}

	w.queue = append(w.queue, task)

	if !w.processing {
		w.processing = true
		go w.drain()
	}
	w.mu.Unlock()
}

// drain 排空任务队列，同一时刻最多只有一个排空goroutine在运行
func (w *serialWorker) drain() {
	for {
		w.mu.Lock()
		if atomic.LoadInt32(&w.disposed) == 1 || len(w.queue) == 0 {
			w.processing = false
			w.mu.Unlock()
			return
		}

		task := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		runTask(task)
	}
}

// Dispose 释放worker，丢弃尚未执行的任务
func (w *serialWorker) Dispose() {
	if atomic.CompareAndSwapInt32(&w.disposed, 0, 1) {
		w.mu.Lock()
		w.queue = nil
		w.mu.Unlock()
	}
}

// IsDisposed 检查是否已释放
func (w *serialWorker) IsDisposed() bool {
	return atomic.LoadInt32(&w.disposed) == 1
}

// runTask 执行任务并捕获panic，防止单个任务杀死排空goroutine
func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			reportTaskPanic(r)
		}
	}()

	task()
}

// ============================================================================
// Goroutine调度器 - Goroutine Scheduler
// ============================================================================

// goroutineScheduler 每个worker独占一个串行事件循环
type goroutineScheduler struct{}

// NewGoroutineScheduler 创建goroutine调度器
func NewGoroutineScheduler() Scheduler {
	return &goroutineScheduler{}
}

// CreateWorker 创建独立的串行worker
func (s *goroutineScheduler) CreateWorker() Worker {
	return NewSerialWorker()
}

// Schedule 在新worker中执行一次性任务
func (s *goroutineScheduler) Schedule(action func()) Disposable {
	worker := s.CreateWorker()
	worker.Schedule(func() {
		action()
		worker.Dispose()
	})

	return NewBaseDisposable(worker.Dispose)
}

// ============================================================================
// 池化调度器 - Pooled Scheduler
// ============================================================================

// pooledScheduler 维护固定数量的常驻事件循环，worker以轮询方式租借
type pooledScheduler struct {
	loops    []*serialWorker
	index    int64
	disposed int32
}

// NewPooledScheduler 创建池化调度器，size非正时取CPU核数
func NewPooledScheduler(size int) Scheduler {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	loops := make([]*serialWorker, size)
	for i := range loops {
		loops[i] = &serialWorker{queue: make([]func(), 0)}
	}

	return &pooledScheduler{loops: loops}
}

// CreateWorker 租借下一个事件循环并包装为独立worker
func (s *pooledScheduler) CreateWorker() Worker {
	if atomic.LoadInt32(&s.disposed) == 1 {
		return &pooledWorker{loop: nil, disposed: 1}
	}

	n := atomic.AddInt64(&s.index, 1)
	loop := s.loops[int(uint64(n)%uint64(len(s.loops)))]

	return &pooledWorker{loop: loop}
}

// Schedule 在池中执行一次性任务
func (s *pooledScheduler) Schedule(action func()) Disposable {
	worker := s.CreateWorker()
	worker.Schedule(func() {
		action()
		worker.Dispose()
	})

	return NewBaseDisposable(worker.Dispose)
}

// Dispose 关闭所有常驻事件循环
func (s *pooledScheduler) Dispose() {
	if atomic.CompareAndSwapInt32(&s.disposed, 0, 1) {
		for _, loop := range s.loops {
			loop.Dispose()
		}
	}
}

// IsDisposed 检查是否已释放
func (s *pooledScheduler) IsDisposed() bool {
	return atomic.LoadInt32(&s.disposed) == 1
}

// pooledWorker 共享事件循环上的租借worker
// Dispose只使自身失效，不会关闭底层共享循环
type pooledWorker struct {
	loop     *serialWorker
	disposed int32
}

// Schedule 提交任务到共享循环
func (w *pooledWorker) Schedule(task func()) {
	if task == nil || atomic.LoadInt32(&w.disposed) == 1 || w.loop == nil {
		return
	}

	// 任务执行时再次检查租借状态，保证Dispose后排队中的任务不再运行
	w.loop.Schedule(func() {
		if atomic.LoadInt32(&w.disposed) == 1 {
			return
		}
		task()
	})
}

// Dispose 归还worker，丢弃其尚未执行的任务
func (w *pooledWorker) Dispose() {
	atomic.CompareAndSwapInt32(&w.disposed, 0, 1)
}

// IsDisposed 检查是否已释放
func (w *pooledWorker) IsDisposed() bool {
	return atomic.LoadInt32(&w.disposed) == 1
}
