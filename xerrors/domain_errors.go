package xerrors

var (
	// ErrInvalidRequest 请求体无法解析或缺少必填字段。
	ErrInvalidRequest = New(ErrInvalidArg, 400001, "invalid request", "", nil)
	// ErrInvalidFilterConfig 过滤器配置非法 (size 或 num_hashes 非正)。
	ErrInvalidFilterConfig = New(ErrInvalidArg, 400101, "invalid filter config", "size and num_hashes must be positive", nil)
	// ErrFilterTooLarge 请求的过滤器超出服务端上限。
	ErrFilterTooLarge = New(ErrInvalidArg, 400102, "filter exceeds server limits", "reduce size or num_hashes", nil)
	// ErrUnknownDigest 未知的摘要算法。
	ErrUnknownDigest = New(ErrInvalidArg, 400103, "unknown digest", "supported digests: md5, sha256, xxh3, murmur3", nil)
	// ErrNoConfigurations 对比分析缺少配置。
	ErrNoConfigurations = New(ErrInvalidArg, 400104, "no configurations", "at least one filter configuration is required", nil)
	// ErrEmptyElement 元素为空。
	ErrEmptyElement = New(ErrInvalidArg, 400105, "empty element", "element must not be blank", nil)
	// ErrTooManyConfigurations 对比分析的配置数超出上限。
	ErrTooManyConfigurations = New(ErrInvalidArg, 400106, "too many configurations", "reduce the number of configurations", nil)
	// ErrFilterNotCreated 会话尚未创建过滤器。
	ErrFilterNotCreated = New(ErrFailedPrecondition, 400201, "bloom filter not created yet", "call create_filter first", nil)
	// ErrTooManySessions 会话数量达到上限。
	ErrTooManySessions = New(ErrLimitExceeded, 429201, "too many sessions", "session capacity reached, retry later", nil)
	// ErrRenderFailed 图像渲染失败。
	ErrRenderFailed = New(ErrInternal, 500301, "render failed", "could not encode visualization", nil)
	// ErrServiceUnavailable 依赖服务处于熔断状态。
	ErrServiceUnavailable = New(ErrUnavailable, 503001, "service unavailable", "circuit breaker is open", nil)
)
