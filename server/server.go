package server

import "context"

// Server 定义可被应用统一管理生命周期的服务器。
// Start 阻塞直到 ctx 取消或出现致命错误；Stop 优雅关闭并释放资源。
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
