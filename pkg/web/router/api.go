package router

import (
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"rider-profile/pkg/common/config"
	accountsvc "rider-profile/pkg/core/account/service"
	favoritesvc "rider-profile/pkg/core/favorite/service"
	profiledao "rider-profile/pkg/core/profile/repository/dao"
	"rider-profile/pkg/core/session"
	"rider-profile/pkg/core/workspace"
	"rider-profile/pkg/web/handler"
	"rider-profile/pkg/web/middleware"
)

// Services 路由需要的已装配依赖
type Services struct {
	DB         *gorm.DB
	Redis      redis.UniversalClient
	Sessions   *session.Provider
	Accounts   *accountsvc.AccountService
	Workspaces *workspace.Registry
	Titles     profiledao.TitleRepository
	Searcher   *favoritesvc.Searcher
}

// RegisterAPIs 注册所有API路由
func RegisterAPIs(h *server.Hertz, cfg *config.Config, svc Services) error {
	// 初始化Handler实例
	healthHandler := handler.NewHealthCheckHandler(svc.DB, svc.Redis)
	accountHandler := handler.NewAccountHandler(svc.Accounts, svc.Workspaces)
	profileHandler := handler.NewProfileHandler(svc.Workspaces, svc.Titles, cfg.Media.MaxBytes)
	favoriteHandler := handler.NewFavoriteHandler(svc.Workspaces, svc.Searcher)

	auth, err := middleware.JWTAuthMiddleware(&cfg.Middleware.JWT, svc.Sessions)
	if err != nil {
		return err
	}

	// 注册全局中间件（按执行顺序）
	h.Use(
		middleware.RecoveryMiddleware(cfg),
		middleware.LoggerMiddleware(),
		middleware.SecurityCheckMiddleware(cfg.Middleware.Security),
		middleware.TimeoutMiddleware(time.Duration(cfg.Middleware.Timeout.RequestTimeout)*time.Second),
		middleware.CORSMiddleware(cfg.Middleware.CORS),
		middleware.RateLimitMiddleware(
			cfg.Middleware.RateLimit.Rate,
			cfg.Middleware.RateLimit.Interval,
		),
	)

	// 基础接口组
	h.GET("/health", healthHandler.AdvancedHealthCheck)

	// 头像文件, 去掉路由前缀后映射到存储目录
	if cfg.Media.RoutePath != "" {
		h.StaticFS(cfg.Media.RoutePath, &app.FS{
			Root:        cfg.Media.Root,
			PathRewrite: app.NewPathSlashesStripper(strings.Count(strings.Trim(cfg.Media.RoutePath, "/"), "/") + 1),
		})
	}

	// 业务接口组
	apiGroup := h.Group("/api/v1")
	{
		apiGroup.POST("/accounts", accountHandler.Register)
		apiGroup.POST("/sessions", accountHandler.Login)

		// 需要身份认证的接口
		authed := apiGroup.Group("", auth)
		{
			authed.DELETE("/sessions/current", accountHandler.SignOut)
			authed.PUT("/account/password", accountHandler.ChangePassword)

			authed.GET("/profile", profileHandler.GetProfile)
			authed.PATCH("/profile", profileHandler.UpdateProfile)
			authed.PUT("/profile/title", profileHandler.SelectTitle)
			authed.POST("/profile/avatar", profileHandler.UploadAvatar)
			authed.GET("/titles", profileHandler.ListTitles)

			authed.GET("/favorites/search", favoriteHandler.Search)
			authed.PUT("/favorites/:key", favoriteHandler.Add)
			authed.DELETE("/favorites/:key", favoriteHandler.Remove)
		}
	}
	return nil
}
