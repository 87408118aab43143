package dao

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/favorite/model"
)

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// MySQL 与 SQLite 都接受的转义字符
var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func pattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

func (r *GormCatalogRepository) search(ctx context.Context, dest interface{}, query string, limit int) error {
	err := r.db.WithContext(ctx).
		Where("name LIKE ? ESCAPE '!'", pattern(query)).
		Order("name ASC").
		Limit(limit).
		Find(dest).Error
	if err != nil {
		return fmt.Errorf("%w: catalog search failed", apperr.WrapGormError(err))
	}
	return nil
}

func (r *GormCatalogRepository) SearchStations(ctx context.Context, query string, limit int) ([]model.Station, error) {
	var out []model.Station
	if err := r.search(ctx, &out, query, limit); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormCatalogRepository) SearchLines(ctx context.Context, query string, limit int) ([]model.Line, error) {
	var out []model.Line
	if err := r.search(ctx, &out, query, limit); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormCatalogRepository) SearchPlaces(ctx context.Context, query string, limit int) ([]model.Place, error) {
	var out []model.Place
	if err := r.search(ctx, &out, query, limit); err != nil {
		return nil, err
	}
	return out, nil
}
