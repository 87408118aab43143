package main

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	"rider-profile/pkg/common/config"
	"rider-profile/pkg/web/router"
)

func main() {
	// 初始化配置
	cfg := config.Load()
	if !cfg.IsProd() {
		hlog.SetLevel(hlog.LevelDebug)
	}

	// 初始化数据库连接
	db, err := cfg.InitDB()
	if err != nil {
		hlog.Fatalf("Failed to initialize database: %v", err)
	}
	if err := router.Migrate(db); err != nil {
		hlog.Fatalf("Failed to migrate database: %v", err)
	}

	// 会话存储
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	rdb, err := cfg.InitRedis(ctx)
	cancel()
	if err != nil {
		hlog.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	svc, err := router.NewServices(cfg, db, rdb)
	if err != nil {
		hlog.Fatalf("Failed to assemble services: %v", err)
	}
	defer svc.Close()

	// 创建Hertz实例
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(int(cfg.Middleware.Security.MaxBodySize)),
	)

	// 注册路由
	if err := router.RegisterAPIs(h, cfg, svc); err != nil {
		hlog.Fatalf("Failed to register routes: %v", err)
	}

	// 启动服务
	h.Spin()
}
