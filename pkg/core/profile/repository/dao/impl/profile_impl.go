package dao

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/profile/model"
)

type GormProfileRepository struct {
	db *gorm.DB
}

func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db}
}

// QueryByID 查询完整 profile 行
func (r *GormProfileRepository) QueryByID(ctx context.Context, id string) (model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).
		Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.Profile{}, apperr.ErrProfileNotFound
	case err != nil:
		return model.Profile{}, fmt.Errorf("%w: profile query failed", apperr.WrapGormError(err))
	default:
		return profile, nil
	}
}

// Upsert 插入或覆盖可编辑字段, 积分/称号/收藏不被覆盖
func (r *GormProfileRepository) Upsert(ctx context.Context, profile model.Profile) error {
	if profile.Titles == nil {
		profile.Titles = []string{}
	}
	if profile.Favorites == nil {
		profile.Favorites = []string{}
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name", "last_name", "preferred_transport", "updated_at",
		}),
	}).Create(&profile).Error
	if err != nil {
		return fmt.Errorf("%w: profile upsert failed", apperr.WrapGormError(err))
	}
	return nil
}

// UpdateFields 按列更新, 行不存在时返回 ErrProfileNotFound
func (r *GormProfileRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Updates(fields)

	if result.Error != nil {
		return fmt.Errorf("%w: profile update failed", apperr.WrapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return apperr.ErrProfileNotFound
	}
	return nil
}

type GormTitleRepository struct {
	db *gorm.DB
}

func NewGormTitleRepository(db *gorm.DB) *GormTitleRepository {
	return &GormTitleRepository{db: db}
}

func (r *GormTitleRepository) ListOrdered(ctx context.Context) ([]model.Title, error) {
	var titles []model.Title
	err := r.db.WithContext(ctx).
		Order("points_required ASC").
		Order("title ASC").
		Find(&titles).Error
	if err != nil {
		return nil, fmt.Errorf("%w: title table query failed", apperr.WrapGormError(err))
	}
	return titles, nil
}
