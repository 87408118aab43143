package model

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const (
	KindStation = "station"
	KindLine    = "line"
	KindPlace   = "place"
)

type Station struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(128);index;not null" json:"name"`
	Code string `gorm:"type:varchar(16)" json:"code"`
}

func (Station) TableName() string { return "stations" }

type Line struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(128);index;not null" json:"name"`
	Mode string `gorm:"type:varchar(32)" json:"mode"`
}

func (Line) TableName() string { return "transit_lines" }

type Place struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"type:varchar(128);index;not null" json:"name"`
	Address string `gorm:"type:varchar(255)" json:"address"`
}

func (Place) TableName() string { return "places" }

// Key 收藏键: <kind>:<id>
func Key(kind string, id uint) string {
	return kind + ":" + strconv.FormatUint(uint64(id), 10)
}

// ParseKey validates a favorite key and splits it.
func ParseKey(key string) (string, uint, error) {
	kind, rawID, ok := strings.Cut(key, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed favorite key %q", key)
	}
	switch kind {
	case KindStation, KindLine, KindPlace:
	default:
		return "", 0, fmt.Errorf("unknown favorite kind %q", kind)
	}
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil || id == 0 {
		return "", 0, fmt.Errorf("malformed favorite id %q", rawID)
	}
	return kind, uint(id), nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Station{}, &Line{}, &Place{})
}
