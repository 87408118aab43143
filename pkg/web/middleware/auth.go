package middleware

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	jwt "github.com/hertz-contrib/jwt"

	"rider-profile/pkg/common/config"
	"rider-profile/pkg/core/session"
)

const (
	// SessionKey 认证通过后当前会话在 RequestContext 中的键
	SessionKey = "session"

	identityKey = "sid"
)

// SessionResolver 查询会话是否仍然有效
type SessionResolver interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

// JWTAuthMiddleware 验证令牌签名和有效期, 再到会话存储确认会话未被注销
func JWTAuthMiddleware(cfg *config.JWTAuthConfig, sessions SessionResolver) (app.HandlerFunc, error) {
	mw, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:            cfg.Realm,
		SigningAlgorithm: cfg.SigningMethod,
		Key:              []byte(cfg.Secret),
		Timeout:          cfg.ExpireDuration,
		TokenLookup:      "header: Authorization",
		TokenHeadName:    "Bearer",
		IdentityKey:      identityKey,
		Authorizator:     authorizator(cfg.Issuer, sessions),
		Unauthorized:     handleJWTError,
	})
	if err != nil {
		return nil, err
	}
	return mw.MiddlewareFunc(), nil
}

func authorizator(issuer string, sessions SessionResolver) func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
	return func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
		sid, _ := data.(string)
		claims := jwt.ExtractClaims(ctx, c)
		if iss, _ := claims["iss"].(string); issuer != "" && iss != issuer {
			return false
		}

		sess, err := sessions.Get(ctx, sid)
		if err != nil {
			hlog.CtxInfof(ctx, "session rejected sid=%s: %v", sid, err)
			return false
		}
		if uid, _ := claims["user_id"].(string); uid != sess.UserID {
			return false
		}
		c.Set(SessionKey, sess)
		return true
	}
}

// 会话失效统一按 401 返回, 客户端据此回到登录页
func handleJWTError(ctx context.Context, c *app.RequestContext, code int, message string) {
	hlog.CtxInfof(ctx, "JWT rejected (code=%d) path=%s: %s", code, c.Path(), message)
	c.JSON(http.StatusUnauthorized, utils.H{
		"error":   message,
		"code":    http.StatusUnauthorized,
		"success": false,
	})
}

// CurrentSession 取出认证中间件放入的会话
func CurrentSession(c *app.RequestContext) (session.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok
}
