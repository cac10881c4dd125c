package ctxutil

import "context"

// clientIDKeyType 使用私有类型避免与其他 context key 冲突
type clientIDKeyType struct{}

var clientIDKey = clientIDKeyType{}

// WithClientID 将调用方标识注入到 context 中
// 在认证中间件解析 JWT 成功后调用
func WithClientID(ctx context.Context, clientID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientIDKey, clientID)
}

// GetClientID 从 context 中解析调用方标识
func GetClientID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v := ctx.Value(clientIDKey)
	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
