package auth

// Gateway 认证网关：缓存优先，未命中才做签名校验
//
// 命中缓存的令牌在缓存 TTL 内一直视为有效，即使令牌自身的
// exp 声明会让重新校验失败。这是刻意的性能/新鲜度取舍，
// 缓存 TTL 应配置为小于令牌有效期。
type Gateway struct {
	verifier Verifier
	cache    *TokenCache
}

// NewGateway 创建认证网关
func NewGateway(verifier Verifier, cache *TokenCache) *Gateway {
	return &Gateway{verifier: verifier, cache: cache}
}

// Verify 校验令牌并返回声明
//
// 校验失败不缓存，下一次调用会重新执行签名校验。
func (g *Gateway) Verify(token string) (*Claims, error) {
	if claims, ok := g.cache.Get(token); ok {
		return claims, nil
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	g.cache.Set(token, claims)
	return claims, nil
}
