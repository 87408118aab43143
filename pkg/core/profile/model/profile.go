package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile 用户资料, 与账户同 ID
type Profile struct {
	ID                 string                      `gorm:"type:char(36);primaryKey" json:"id"`
	FirstName          string                      `gorm:"type:varchar(64)" json:"first_name"`
	LastName           string                      `gorm:"type:varchar(64)" json:"last_name"`
	AvatarURL          string                      `gorm:"type:varchar(512)" json:"avatar_url"`
	PreferredTransport string                      `gorm:"type:varchar(32)" json:"preferred_transport"`
	Points             int64                       `gorm:"not null;default:0" json:"points"`
	Titles             datatypes.JSONSlice[string] `json:"titles"`
	SelectedTitle      *string                     `gorm:"type:varchar(64)" json:"selected_title"`
	Favorites          datatypes.JSONSlice[string] `json:"favorites"`
	UpdatedAt          time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// HasTitle reports whether title is in the unlocked set.
func (p Profile) HasTitle(title string) bool {
	for _, t := range p.Titles {
		if t == title {
			return true
		}
	}
	return false
}

func (p Profile) HasFavorite(key string) bool {
	for _, f := range p.Favorites {
		if f == key {
			return true
		}
	}
	return false
}

// Clone 深拷贝, 快照对外只暴露副本
func (p Profile) Clone() Profile {
	out := p
	out.Titles = append(datatypes.JSONSlice[string]{}, p.Titles...)
	out.Favorites = append(datatypes.JSONSlice[string]{}, p.Favorites...)
	if p.SelectedTitle != nil {
		t := *p.SelectedTitle
		out.SelectedTitle = &t
	}
	return out
}

// Title 称号阈值表
type Title struct {
	Title          string `gorm:"type:varchar(64);primaryKey" json:"title"`
	PointsRequired int64  `gorm:"not null;index" json:"points_required"`
}

func (Title) TableName() string {
	return "titles"
}

// DefaultTitles 空表时写入的初始称号
var DefaultTitles = []Title{
	{Title: "Rookie", PointsRequired: 0},
	{Title: "Explorer", PointsRequired: 100},
	{Title: "Pathfinder", PointsRequired: 250},
	{Title: "Navigator", PointsRequired: 500},
	{Title: "Legend", PointsRequired: 1000},
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Profile{}, &Title{}); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&Title{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	titles := append([]Title(nil), DefaultTitles...)
	return db.Create(&titles).Error
}
