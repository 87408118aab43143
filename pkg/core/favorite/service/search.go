// Package service searches the favoritable catalog.
//
// A search scans stations, lines and places independently and concatenates
// the results in that order. Each scan and the combined result are capped
// by the limit; there is no cross-table ranking.
package service

import (
	"context"
	"strings"
	"unicode/utf8"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/favorite/model"
	"rider-profile/pkg/core/favorite/repository/dao"
)

const (
	DefaultLimit   = 20
	MaxLimit       = 50
	maxQueryLength = 64
)

var errQueryTooLong = apperr.New("query must be at most 64 characters")

type Item struct {
	Key      string `json:"key"`
	Kind     string `json:"kind"`
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Detail   string `json:"detail,omitempty"`
	Favorite bool   `json:"favorite"`
}

type Searcher struct {
	catalog dao.CatalogRepository
}

func NewSearcher(catalog dao.CatalogRepository) *Searcher {
	return &Searcher{catalog: catalog}
}

// ClampLimit maps a requested page size onto [1, MaxLimit].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Search returns catalog entries whose name contains query. Entries whose
// key is in favorites are flagged.
func (s *Searcher) Search(ctx context.Context, query string, limit int, favorites []string) ([]Item, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) > maxQueryLength {
		return nil, apperr.Validation("favorite.search", errQueryTooLong)
	}
	limit = ClampLimit(limit)

	held := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		held[f] = true
	}
	items := make([]Item, 0, limit)
	add := func(kind string, id uint, name, detail string) {
		key := model.Key(kind, id)
		items = append(items, Item{Key: key, Kind: kind, ID: id, Name: name, Detail: detail, Favorite: held[key]})
	}

	stations, err := s.catalog.SearchStations(ctx, query, limit)
	if err != nil {
		return nil, apperr.Remote("favorite.search", err)
	}
	for _, st := range stations {
		add(model.KindStation, st.ID, st.Name, st.Code)
	}

	lines, err := s.catalog.SearchLines(ctx, query, limit)
	if err != nil {
		return nil, apperr.Remote("favorite.search", err)
	}
	for _, l := range lines {
		add(model.KindLine, l.ID, l.Name, l.Mode)
	}

	places, err := s.catalog.SearchPlaces(ctx, query, limit)
	if err != nil {
		return nil, apperr.Remote("favorite.search", err)
	}
	for _, p := range places {
		add(model.KindPlace, p.ID, p.Name, p.Address)
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
