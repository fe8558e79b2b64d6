package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：调用方可修正的错误，后两位尽量对齐 HTTP 状态码
// - 41xx：分享链接相关
// - 5xxx：系统错误，其中 5030 表示可重试
const (
	OK               = 0
	Validation       = 4000
	ScopeMismatch    = 4001
	Unauthorized     = 4002
	Forbidden        = 4003
	ResourceMissing  = 4004
	Conflict         = 4009
	InvalidState     = 4010
	RateLimited      = 4029
	LinkExpired      = 4100
	WrongPassword    = 4101
	LimitExceeded    = 4130
	SystemError      = 5000
	SeedFailed       = 5001
	StoreUnavailable = 5030
)
