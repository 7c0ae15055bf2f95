// Diagnostics hooks for flowgo
// 诊断钩子：协议违规和任务panic通过包级logger上报，默认静默
package flowgo

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// pkgLogger 包级logger的原子引用，默认不输出任何内容
var pkgLogger atomic.Pointer[zap.Logger]

// SetLogger 安装包级logger，传入nil恢复为静默logger
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pkgLogger.Store(logger)
}

// Logger 获取当前包级logger
func Logger() *zap.Logger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// reportBadRequest 上报非法的请求数量
func reportBadRequest(n int64) {
	Logger().Warn("请求数量必须为正数", zap.Int64("n", n))
}

// reportTaskPanic 上报调度任务中的panic
func reportTaskPanic(recovered interface{}) {
	Logger().Error("调度任务发生panic", zap.Any("panic", recovered))
}
