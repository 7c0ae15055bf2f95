// Scheduler and worker tests for flowgo
// worker的FIFO顺序、幂等释放和池化隔离测试
package flowgo

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialWorkerRunsTasksInOrder(t *testing.T) {
	// 任务严格按提交顺序逐个执行
	worker := NewSerialWorker()
	defer worker.Dispose()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < 100; i++ {
		n := i
		worker.Schedule(func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		})
	}
	worker.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("等待任务执行超时")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 100)
	for i, n := range order {
		assert.Equal(t, i, n, "任务必须按提交顺序执行")
	}
}

func TestSerialWorkerDisposeIsIdempotent(t *testing.T) {
	worker := NewSerialWorker()

	worker.Dispose()
	worker.Dispose()
	assert.True(t, worker.IsDisposed())

	// 释放后的提交是no-op
	var ran int32
	worker.Schedule(func() { atomic.StoreInt32(&ran, 1) })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestSerialWorkerDiscardsPendingOnDispose(t *testing.T) {
	// 释放时丢弃尚未执行的任务
	worker := NewSerialWorker()

	started := make(chan struct{})
	release := make(chan struct{})
	var second int32

	worker.Schedule(func() {
		close(started)
		<-release
	})
	<-started
	worker.Schedule(func() { atomic.StoreInt32(&second, 1) })

	worker.Dispose()
	close(release)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&second), "排队中的任务在释放后不应运行")
}

func TestSerialWorkerSurvivesTaskPanic(t *testing.T) {
	// 单个任务panic不影响后续任务执行
	worker := NewSerialWorker()
	defer worker.Dispose()

	done := make(chan struct{})
	worker.Schedule(func() { panic("任务内部错误") })
	worker.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("panic后的任务未被执行")
	}
}

func TestGoroutineSchedulerCreatesIndependentWorkers(t *testing.T) {
	scheduler := NewGoroutineScheduler()

	w1 := scheduler.CreateWorker()
	w2 := scheduler.CreateWorker()
	defer w2.Dispose()

	w1.Dispose()
	assert.True(t, w1.IsDisposed())
	assert.False(t, w2.IsDisposed(), "worker之间互不影响")

	done := make(chan struct{})
	w2.Schedule(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("独立worker未执行任务")
	}
}

func TestPooledWorkerDisposeKeepsLoopAlive(t *testing.T) {
	// 归还租借worker不影响共享循环上的其他worker
	scheduler := NewPooledScheduler(1).(*pooledScheduler)
	defer scheduler.Dispose()

	w1 := scheduler.CreateWorker()
	w2 := scheduler.CreateWorker()

	w1.Dispose()

	var fromW1 int32
	w1.Schedule(func() { atomic.StoreInt32(&fromW1, 1) })

	done := make(chan struct{})
	w2.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("共享循环应继续服务未释放的worker")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&fromW1))
}

func TestPooledWorkerPendingTasksDroppedOnDispose(t *testing.T) {
	// 租借worker释放后，其已排队但未运行的任务不再执行
	scheduler := NewPooledScheduler(1).(*pooledScheduler)
	defer scheduler.Dispose()

	worker := scheduler.CreateWorker()

	started := make(chan struct{})
	release := make(chan struct{})
	var second int32

	worker.Schedule(func() {
		close(started)
		<-release
	})
	<-started
	worker.Schedule(func() { atomic.StoreInt32(&second, 1) })

	worker.Dispose()
	close(release)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&second))
}

func TestSchedulerScheduleRunsAction(t *testing.T) {
	scheduler := NewGoroutineScheduler()

	done := make(chan struct{})
	scheduler.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("一次性任务未执行")
	}
}
