package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/hertz-contrib/cors"

	"rider-profile/pkg/common/config"
)

// LoggerMiddleware 结构化的请求日志记录
func LoggerMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c) // 放行到后续处理器
		latency := time.Since(start)

		// 结构化日志输出, 处理器挂上的错误一并记录
		if len(ctx.Errors) > 0 {
			hlog.CtxWarnf(c, "| %3d | %13v | %15s | %-7s | %s | err=%s",
				ctx.Response.StatusCode(),
				latency,
				ctx.ClientIP(),
				ctx.Method(),
				ctx.Path(),
				ctx.Errors.String(),
			)
			return
		}
		hlog.CtxInfof(c, "| %3d | %13v | %15s | %-7s | %s | UA=%s",
			ctx.Response.StatusCode(),
			latency,
			ctx.ClientIP(),
			ctx.Method(),
			ctx.Path(),
			ctx.GetHeader("User-Agent"),
		)
	}
}

/*
	启动时指定环境变量
	export APP_ENV=production
	go run main.go
*/

// RecoveryMiddleware 捕获 panic, 非生产环境在响应里带上堆栈
func RecoveryMiddleware(cfg *config.Config) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := string(debug.Stack())
			hlog.CtxErrorf(c, "[PANIC RECOVERED] %s %s: %v\n%s", ctx.Method(), ctx.Path(), r, stack)

			body := failure(http.StatusInternalServerError, "internal server error")
			if !cfg.IsProd() {
				body["panic"] = fmt.Sprint(r)
				body["stack"] = strings.Split(stack, "\n")
			}
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		ctx.Next(c)
	}
}

// CORSMiddleware 显式来源之外, 再放行受信域名下的来源
func CORSMiddleware(corsConfig config.CORSConfig) app.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     corsConfig.AllowOrigins,
		AllowMethods:     corsConfig.AllowMethods,
		AllowHeaders:     corsConfig.AllowHeaders,
		ExposeHeaders:    corsConfig.ExposeHeaders,
		AllowCredentials: corsConfig.AllowCredentials,
		MaxAge:           corsConfig.MaxAge,
		AllowOriginFunc:  trustedOrigin(corsConfig.TrustedDomains),
	})
}

// trustedOrigin 按主机名匹配; ".example.com" 匹配该域及其子域
func trustedOrigin(domains []string) func(origin string) bool {
	return func(origin string) bool {
		u, err := url.Parse(origin)
		if err != nil || u.Hostname() == "" {
			return false
		}
		host := strings.ToLower(u.Hostname())
		for _, d := range domains {
			d = strings.ToLower(strings.TrimSpace(d))
			switch {
			case d == "":
			case strings.HasPrefix(d, "."):
				if strings.HasSuffix(host, d) || host == d[1:] {
					return true
				}
			case host == d:
				return true
			}
		}
		return false
	}
}

// TimeoutMiddleware 处理链超过 timeout 时返回 503; 处理器通过 context 感知取消
func TimeoutMiddleware(timeout time.Duration) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if timeout <= 0 {
			ctx.Next(c)
			return
		}
		timeoutCtx, cancel := context.WithTimeout(c, timeout)
		defer cancel()

		// panic 交回当前协程, 由 recovery 处理
		done := make(chan interface{}, 1)
		go func() {
			defer func() { done <- recover() }()
			ctx.Next(timeoutCtx)
		}()

		select {
		case r := <-done:
			if r != nil {
				panic(r)
			}
		case <-timeoutCtx.Done():
			hlog.CtxWarnf(c, "request timeout after %s path=%s", timeout, ctx.Path())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, failure(http.StatusServiceUnavailable, "service unavailable"))
		}
	}
}

// RateLimitMiddleware 令牌桶算法限流
func RateLimitMiddleware(rate int, interval time.Duration) app.HandlerFunc {
	limiter := NewTokenBucket(rate, interval)

	return func(c context.Context, ctx *app.RequestContext) {
		if !limiter.Allow() {
			hlog.CtxInfof(c, "[RATE LIMIT] path=%s", ctx.Path())
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, failure(http.StatusTooManyRequests, "too many requests"))
			return
		}
		ctx.Next(c)
	}
}

// failure 与处理器错误响应同样的结构
func failure(code int, msg string) utils.H {
	return utils.H{
		"error":   msg,
		"code":    code,
		"success": false,
	}
}

// 令牌桶实现
type TokenBucket struct {
	capacity int
	tokens   chan struct{}
	rate     time.Duration
}

func NewTokenBucket(rate int, interval time.Duration) *TokenBucket {
	tb := &TokenBucket{
		capacity: rate,
		tokens:   make(chan struct{}, rate),
		rate:     interval,
	}
	// 启动时装满, 否则第一个周期内所有请求都被拒绝
	for i := 0; i < rate; i++ {
		tb.tokens <- struct{}{}
	}

	// 定时器生产令牌
	go func() {
		ticker := time.NewTicker(tb.rate)
		for range ticker.C {
			select {
			case tb.tokens <- struct{}{}:
			default:
			}
		}
	}()
	return tb
}

func (tb *TokenBucket) Allow() bool {
	select {
	case <-tb.tokens:
		return true
	default:
		return false
	}
}

// SecurityCheckMiddleware 全局安全校验中间件
func SecurityCheckMiddleware(sec config.SecurityConfig) app.HandlerFunc {
	// 预编译恶意字符正则
	xssRegex := regexp.MustCompile(`<script.*?>|<\/script>|alert\(|onerror=`)
	sqlInjectRegex := regexp.MustCompile(`\b(union|select|drop|delete|insert)\b`)
	allowed := make(map[string]bool, len(sec.AllowedMethods))
	for _, m := range sec.AllowedMethods {
		allowed[strings.ToUpper(m)] = true
	}

	return func(c context.Context, ctx *app.RequestContext) {
		// 防护机制1：检查User-Agent
		if isInvalidUserAgent(ctx) {
			securityResponse(ctx, 400001, "missing required header: User-Agent", 400)
			return
		}

		// 防护机制2：请求体大小限制
		// 修复：将 ContentLength() 的返回值转换为 int64
		if int64(ctx.Request.Header.ContentLength()) > sec.MaxBodySize {
			securityResponse(ctx, 413001, "request body exceeds max size", 413)
			return
		}

		// 防护机制3：参数恶意字符检查
		if hasMaliciousContent(ctx, xssRegex, sqlInjectRegex) {
			securityResponse(ctx, 422001, "request contains invalid characters", 422)
			return
		}

		// 防护机制4：检查HTTP方法
		if !allowed[string(ctx.Method())] {
			securityResponse(ctx, 405001, "method not allowed", 405)
			return
		}

		ctx.Next(c)
	}
}

// 辅助方法：判断User-Agent合法性
func isInvalidUserAgent(ctx *app.RequestContext) bool {
	ua := string(ctx.GetHeader("User-Agent"))
	// 示例检查逻辑：不允许空UA
	return ua == ""
}

// 带性能优化的版本
func hasMaliciousContent(ctx *app.RequestContext, xss *regexp.Regexp, sql *regexp.Regexp) bool {
	// 使用atomic包确保线程安全
	var found int32

	check := func(data []byte) bool {
		return xss.Match(data) || sql.Match(data)
	}

	visitor := func(key, value []byte) {
		if atomic.LoadInt32(&found) == 1 {
			return // 已经找到匹配，跳过后续检查
		}
		if check(key) || check(value) {
			atomic.StoreInt32(&found, 1)
		}
	}

	// 检查Query参数
	ctx.QueryArgs().VisitAll(visitor)
	if atomic.LoadInt32(&found) == 1 {
		return true
	}

	// 检查Post表单参数
	ctx.PostArgs().VisitAll(visitor)
	return atomic.LoadInt32(&found) == 1
}

// 安全响应统一处理
func securityResponse(ctx *app.RequestContext, code int, msg string, status int) {
	hlog.Warnf("SecurityAlert[code=%d]: %s", code, msg)
	ctx.AbortWithStatusJSON(status, map[string]interface{}{
		"code":    code,
		"message": msg,
	})
}
