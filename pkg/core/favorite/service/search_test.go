package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/favorite/model"
)

type fakeCatalog struct {
	stations []model.Station
	lines    []model.Line
	places   []model.Place
	lineErr  error
	limits   []int
}

func (f *fakeCatalog) SearchStations(_ context.Context, _ string, limit int) ([]model.Station, error) {
	f.limits = append(f.limits, limit)
	return f.stations, nil
}

func (f *fakeCatalog) SearchLines(_ context.Context, _ string, limit int) ([]model.Line, error) {
	f.limits = append(f.limits, limit)
	return f.lines, f.lineErr
}

func (f *fakeCatalog) SearchPlaces(_ context.Context, _ string, limit int) ([]model.Place, error) {
	f.limits = append(f.limits, limit)
	return f.places, nil
}

func TestSearchConcatenatesAndFlagsFavorites(t *testing.T) {
	catalog := &fakeCatalog{
		stations: []model.Station{{ID: 1, Name: "Central", Code: "CEN"}},
		lines:    []model.Line{{ID: 7, Name: "Central Line", Mode: "metro"}},
		places:   []model.Place{{ID: 3, Name: "Central Park", Address: "5th Ave"}},
	}
	s := NewSearcher(catalog)

	items, err := s.Search(context.Background(), "central", 0, []string{"line:7"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	var keys []string
	for _, it := range items {
		keys = append(keys, it.Key)
	}
	if strings.Join(keys, ",") != "station:1,line:7,place:3" {
		t.Fatalf("keys = %v", keys)
	}
	if items[0].Favorite || !items[1].Favorite || items[2].Favorite {
		t.Fatalf("favorite flags = %+v", items)
	}
	for _, l := range catalog.limits {
		if l != DefaultLimit {
			t.Fatalf("limits = %v", catalog.limits)
		}
	}
}

func TestSearchCapsCombinedResult(t *testing.T) {
	catalog := &fakeCatalog{
		stations: []model.Station{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}},
		lines:    []model.Line{{ID: 3, Name: "c"}},
		places:   []model.Place{{ID: 4, Name: "d"}},
	}
	items, err := NewSearcher(catalog).Search(context.Background(), "", 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 2 || items[1].Key != "station:2" {
		t.Fatalf("items = %+v", items)
	}
}

func TestSearchRemoteFailure(t *testing.T) {
	boom := errors.New("timeout")
	_, err := NewSearcher(&fakeCatalog{lineErr: boom}).Search(context.Background(), "x", 5, nil)
	if !errors.Is(err, boom) || apperr.KindOf(err) != apperr.KindRemote {
		t.Fatalf("err = %v", err)
	}
}

func TestSearchRejectsLongQuery(t *testing.T) {
	_, err := NewSearcher(&fakeCatalog{}).Search(context.Background(), strings.Repeat("x", 65), 5, nil)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("err = %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{-1: DefaultLimit, 0: DefaultLimit, 7: 7, 50: 50, 500: MaxLimit} {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
