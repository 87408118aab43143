package dao

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rider-profile/pkg/core/favorite/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCatalogSearch(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&[]model.Station{{Name: "Central"}, {Name: "North Central"}, {Name: "Harbor"}, {Name: "100% Square"}})
	db.Create(&[]model.Line{{Name: "Central Line", Mode: "metro"}})
	db.Create(&[]model.Place{{Name: "Museum"}})

	repo := NewGormCatalogRepository(db)
	ctx := context.Background()

	stations, err := repo.SearchStations(ctx, "central", 10)
	if err != nil {
		t.Fatalf("SearchStations: %v", err)
	}
	if len(stations) != 2 || stations[0].Name != "Central" {
		t.Fatalf("stations = %+v", stations)
	}

	limited, err := repo.SearchStations(ctx, "central", 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited = %+v, err = %v", limited, err)
	}

	// wildcard characters in the query are matched literally
	pct, err := repo.SearchStations(ctx, "%", 10)
	if err != nil || len(pct) != 1 || pct[0].Name != "100% Square" {
		t.Fatalf("pct = %+v, err = %v", pct, err)
	}

	lines, err := repo.SearchLines(ctx, "line", 10)
	if err != nil || len(lines) != 1 {
		t.Fatalf("lines = %+v, err = %v", lines, err)
	}
	places, err := repo.SearchPlaces(ctx, "central", 10)
	if err != nil || len(places) != 0 {
		t.Fatalf("places = %+v, err = %v", places, err)
	}
}
