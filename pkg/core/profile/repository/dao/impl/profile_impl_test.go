package dao

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/profile/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "profile.db")), &gorm.Config{
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

func TestUpsertAndQuery(t *testing.T) {
	repo := NewGormProfileRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, model.Profile{ID: "u1", FirstName: "Ada"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	p, err := repo.QueryByID(ctx, "u1")
	if err != nil {
		t.Fatalf("QueryByID: %v", err)
	}
	if p.FirstName != "Ada" || p.Titles == nil || len(p.Titles) != 0 || p.SelectedTitle != nil {
		t.Fatalf("profile = %+v", p)
	}

	// second upsert updates editable columns and keeps titles
	if err := repo.UpdateFields(ctx, "u1", map[string]interface{}{
		"titles": datatypes.JSONSlice[string]{"Rookie"},
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if err := repo.Upsert(ctx, model.Profile{ID: "u1", FirstName: "Grace", Titles: []string{"bogus"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	p, err = repo.QueryByID(ctx, "u1")
	if err != nil {
		t.Fatalf("QueryByID: %v", err)
	}
	if p.FirstName != "Grace" || !reflect.DeepEqual([]string(p.Titles), []string{"Rookie"}) {
		t.Fatalf("profile = %+v", p)
	}
}

func TestQueryMissingProfile(t *testing.T) {
	repo := NewGormProfileRepository(setupTestDB(t))
	if _, err := repo.QueryByID(context.Background(), "ghost"); !errors.Is(err, apperr.ErrProfileNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateFields(t *testing.T) {
	repo := NewGormProfileRepository(setupTestDB(t))
	ctx := context.Background()
	if err := repo.Upsert(ctx, model.Profile{ID: "u1"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	err := repo.UpdateFields(ctx, "u1", map[string]interface{}{
		"selected_title": "Rookie",
		"avatar_url":     "https://media.test/a.jpg",
		"favorites":      datatypes.JSONSlice[string]{"station:1"},
		"updated_at":     now,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	p, err := repo.QueryByID(ctx, "u1")
	if err != nil {
		t.Fatalf("QueryByID: %v", err)
	}
	if p.SelectedTitle == nil || *p.SelectedTitle != "Rookie" || p.AvatarURL != "https://media.test/a.jpg" {
		t.Fatalf("profile = %+v", p)
	}
	if !reflect.DeepEqual([]string(p.Favorites), []string{"station:1"}) {
		t.Fatalf("favorites = %v", p.Favorites)
	}
	if !p.UpdatedAt.Equal(now) {
		t.Fatalf("updated_at = %v, want %v", p.UpdatedAt, now)
	}

	if err := repo.UpdateFields(ctx, "ghost", map[string]interface{}{"avatar_url": "x"}); !errors.Is(err, apperr.ErrProfileNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestListOrderedSeedsDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTitleRepository(db)

	titles, err := repo.ListOrdered(context.Background())
	if err != nil {
		t.Fatalf("ListOrdered: %v", err)
	}
	if len(titles) != len(model.DefaultTitles) {
		t.Fatalf("titles = %+v", titles)
	}
	for i := 1; i < len(titles); i++ {
		if titles[i-1].PointsRequired > titles[i].PointsRequired {
			t.Fatalf("not ascending: %+v", titles)
		}
	}

	// migrating again does not duplicate the seed
	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
	again, _ := repo.ListOrdered(context.Background())
	if len(again) != len(titles) {
		t.Fatalf("seed duplicated: %d titles", len(again))
	}
}
