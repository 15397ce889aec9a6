package message

// Kind 校验失败类别
type Kind int

const (
	// KindSchemaViolation 结构校验失败（含 JSON 解析失败）
	KindSchemaViolation Kind = iota + 1
	// KindContentTooLarge 内容超出长度/大小限制
	KindContentTooLarge
	// KindInvalidEncoding base64 解码失败
	KindInvalidEncoding
	// KindUnsupportedMediaType 嗅探出的媒体类型不在白名单内
	KindUnsupportedMediaType
	// KindUnknownType 未知消息类型
	KindUnknownType
)

// ValidationError 校验错误
//
// 调用方按 Kind 分支，不要解析错误文本。
type ValidationError struct {
	Kind    Kind
	Message string
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return e.Message
}

// Is 当 target 也是 *ValidationError 时，比较 Kind 是否相同
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && e.Kind == t.Kind
}

// newError 创建校验错误
func newError(kind Kind, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg}
}

// 预定义错误（仅用于 errors.Is 比较）
var (
	ErrSchemaViolation      = &ValidationError{Kind: KindSchemaViolation}
	ErrContentTooLarge      = &ValidationError{Kind: KindContentTooLarge}
	ErrInvalidEncoding      = &ValidationError{Kind: KindInvalidEncoding}
	ErrUnsupportedMediaType = &ValidationError{Kind: KindUnsupportedMediaType}
	ErrUnknownType          = &ValidationError{Kind: KindUnknownType}
)
