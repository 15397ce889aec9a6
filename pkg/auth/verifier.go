package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier 执行真正的签名校验
//
// Gateway 只在缓存未命中时调用 Verifier，测试可以通过
// 统计调用次数验证缓存行为。
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// HMACVerifier 基于共享密钥的 HS256 校验器
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier 创建 HS256 校验器
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Verify 校验令牌签名与声明
func (v *HMACVerifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return claims, nil
}
