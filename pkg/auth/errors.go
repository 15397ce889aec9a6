package auth

import "errors"

// 预定义错误
var (
	// ErrTokenInvalid 签名或声明校验失败
	ErrTokenInvalid = errors.New("auth: invalid token")
)
