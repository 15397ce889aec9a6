package auth

import "github.com/golang-jwt/jwt/v5"

// Claims 已验证令牌的声明
type Claims struct {
	jwt.RegisteredClaims

	// UserID 业务侧用户标识（可选，握手时以 user-id 头为准）
	UserID string `json:"user_id,omitempty"`
}
