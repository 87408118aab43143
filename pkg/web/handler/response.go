package handler

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/session"
	"rider-profile/pkg/web/middleware"
)

// statusOf 错误分类到 HTTP 状态码
func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindPrecondition:
		if apperr.Is(err, apperr.ErrNoSession) || apperr.Is(err, apperr.ErrInvalidCredentials) {
			return http.StatusUnauthorized
		}
		return http.StatusConflict
	case apperr.KindRemote:
		if apperr.Is(err, apperr.ErrProfileNotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError 统一错误响应, 错误挂到 c.Errors 由日志中间件输出
func respondError(ctx context.Context, c *app.RequestContext, err error) {
	code := statusOf(err)
	c.Error(apperr.Public(err))

	msg := err.Error()
	switch {
	case code == http.StatusInternalServerError:
		hlog.CtxErrorf(ctx, "unclassified error: %v", err)
		msg = "internal server error"
	case code == http.StatusBadGateway:
		msg = "upstream service unavailable"
	}
	c.JSON(code, utils.H{
		"error":   msg,
		"kind":    apperr.KindOf(err).String(),
		"code":    code,
		"success": false,
	})
}

func badRequest(c *app.RequestContext, msg string) {
	c.JSON(http.StatusBadRequest, utils.H{
		"error":   msg,
		"kind":    apperr.KindValidation.String(),
		"code":    http.StatusBadRequest,
		"success": false,
	})
}

// mustSession 认证路由上总能取到会话, 取不到按未登录处理
func mustSession(ctx context.Context, c *app.RequestContext) (session.Session, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		respondError(ctx, c, apperr.Precondition("web.session", apperr.ErrNoSession))
	}
	return sess, ok
}
