package router

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"rider-profile/pkg/common/config"
	accountmodel "rider-profile/pkg/core/account/model"
	accountdao "rider-profile/pkg/core/account/repository/dao/impl"
	accountsvc "rider-profile/pkg/core/account/service"
	"rider-profile/pkg/core/avatar"
	"rider-profile/pkg/core/avatar/storage"
	favoritemodel "rider-profile/pkg/core/favorite/model"
	favoritedao "rider-profile/pkg/core/favorite/repository/dao/impl"
	favoritesvc "rider-profile/pkg/core/favorite/service"
	profilemodel "rider-profile/pkg/core/profile/model"
	profiledao "rider-profile/pkg/core/profile/repository/dao/impl"
	"rider-profile/pkg/core/session"
	"rider-profile/pkg/core/workspace"
)

// Migrate 建表并写入默认称号
func Migrate(db *gorm.DB) error {
	for _, migrate := range []func(*gorm.DB) error{
		accountmodel.AutoMigrate,
		profilemodel.AutoMigrate,
		favoritemodel.AutoMigrate,
	} {
		if err := migrate(db); err != nil {
			return err
		}
	}
	return nil
}

// NewServices 按配置装配仓储、会话和工作区; 返回的 Services 需要 Close
func NewServices(cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient) (Services, error) {
	sessions, err := session.NewProvider(rdb, session.Options{
		Secret:        cfg.Middleware.JWT.Secret,
		Issuer:        cfg.Middleware.JWT.Issuer,
		SigningMethod: cfg.Middleware.JWT.SigningMethod,
		TTL:           cfg.SessionLifetime(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("init session provider: %w", err)
	}

	bucket, err := storage.NewLocalBucket(cfg.Media.Root, cfg.Media.BaseURL)
	if err != nil {
		return Services{}, fmt.Errorf("init media storage: %w", err)
	}

	profiles := profiledao.NewGormProfileRepository(db)
	titles := profiledao.NewGormTitleRepository(db)

	return Services{
		DB:       db,
		Redis:    rdb,
		Sessions: sessions,
		Accounts: accountsvc.NewAccountService(accountdao.NewGormAccountRepository(db), profiles, sessions),
		Workspaces: workspace.NewRegistry(sessions, profiles, titles, bucket, avatar.Options{
			Size:     cfg.Media.AvatarSize,
			Quality:  cfg.Media.Quality,
			MaxBytes: cfg.Media.MaxBytes,
		}),
		Titles:   titles,
		Searcher: favoritesvc.NewSearcher(favoritedao.NewGormCatalogRepository(db)),
	}, nil
}

// Close 停止工作区对会话事件的订阅
func (s Services) Close() {
	if s.Workspaces != nil {
		s.Workspaces.Close()
	}
}
