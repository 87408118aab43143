package dao

import (
	"context"

	"rider-profile/pkg/core/favorite/model"
)

// CatalogRepository 三张可收藏的目录表, 按名称模糊匹配
type CatalogRepository interface {
	SearchStations(ctx context.Context, query string, limit int) ([]model.Station, error)
	SearchLines(ctx context.Context, query string, limit int) ([]model.Line, error)
	SearchPlaces(ctx context.Context, query string, limit int) ([]model.Place, error)
}
