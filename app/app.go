// Package app 提供了应用程序的生命周期管理：启动服务器与后台任务、监听退出信号、执行资源清理。
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// App 是应用程序的核心容器。
type App struct {
	name   string
	logger *slog.Logger
	opts   options
}

// New 创建一个新的应用程序实例。
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &App{name: name, logger: logger, opts: o}
}

// Run 启动全部服务器与后台任务并阻塞，直到 ctx 取消、收到 SIGINT/SIGTERM 或任一服务器失败。
// 任一服务器失败会取消其余组件。退出前按注册的逆序执行清理函数。
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("application starting", "name", a.name, "pid", os.Getpid(),
		"servers", len(a.opts.servers), "workers", len(a.opts.workers))

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range a.opts.servers {
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}
	for _, w := range a.opts.workers {
		g.Go(func() error {
			w.run(gctx)
			a.logger.Debug("background worker stopped", "name", w.name)
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("application stopped with error", "name", a.name, "error", err)
	} else {
		err = nil
		a.logger.Info("shutting down application", "name", a.name)
	}

	for i := len(a.opts.cleanups) - 1; i >= 0; i-- {
		a.opts.cleanups[i]()
	}

	a.logger.Info("application shut down", "name", a.name)
	return err
}
