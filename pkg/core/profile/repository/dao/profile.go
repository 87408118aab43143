package dao

import (
	"context"

	"rider-profile/pkg/core/profile/model"
)

// ProfileRepository 远端记录存储中的 profiles 表
type ProfileRepository interface {
	QueryByID(ctx context.Context, id string) (model.Profile, error)
	Upsert(ctx context.Context, profile model.Profile) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
}

// TitleRepository 称号表, 按 points_required 升序返回
type TitleRepository interface {
	ListOrdered(ctx context.Context) ([]model.Title, error)
}
