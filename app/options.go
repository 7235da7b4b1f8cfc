package app

import (
	"context"

	"github.com/wyfcoding/bloomlab/server"
)

// Option 配置应用程序选项。
type Option func(*options)

type worker struct {
	name string
	run  func(ctx context.Context)
}

type options struct {
	servers  []server.Server
	workers  []worker
	cleanups []func()
}

// WithServer 添加一个或多个服务器，随应用启动，ctx 取消时优雅关闭。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithWorker 添加一个后台任务，run 应在 ctx 取消后返回。
func WithWorker(name string, run func(ctx context.Context)) Option {
	return func(o *options) {
		o.workers = append(o.workers, worker{name: name, run: run})
	}
}

// WithCleanup 添加一个清理函数，应用退出时按注册逆序执行。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, cleanup)
	}
}
