package model

import (
	"time"

	"gorm.io/gorm"
)

// Account 登录凭证, ID 与 profile 共用
type Account struct {
	ID           string         `gorm:"type:char(36);primaryKey"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string         `gorm:"type:varchar(255);not null"`
	IsActive     bool           `gorm:"default:true;index"`
	Version      int            `gorm:"default:1;not null"` // 乐观锁
	CreatedAt    time.Time      `gorm:"index;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"` // 软删除标记
}

// TableName 定义映射表名
func (Account) TableName() string {
	return "accounts"
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{})
}
