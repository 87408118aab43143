package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/account/model"
)

var ErrAccountNotFound = errors.New("account not found")

type GormAccountRepository struct {
	db *gorm.DB
}

func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Account{})
}

// Check email existence with active status
func (r *GormAccountRepository) IsEmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.table(ctx).Where("email = ? AND is_active = ?", email, true).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: failed to check email", wrapGormError(err))
	}
	return count > 0, nil
}

// Create new account with transaction
func (r *GormAccountRepository) CreateAccount(ctx context.Context, account model.Account) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			if apperr.IsDuplicateError(err) {
				return apperr.ErrDuplicateEntry
			}
			return fmt.Errorf("%w: account creation failed", wrapGormError(err))
		}
		return nil
	})
}

func (r *GormAccountRepository) GetPasswordHash(ctx context.Context, email string) (string, string, error) {
	var account model.Account
	err := r.table(ctx).Select("password_hash", "id").
		Where("email = ? AND is_active = ?", email, true).
		First(&account).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", "", ErrAccountNotFound
	case err != nil:
		return "", "", fmt.Errorf("%w: password lookup failed", wrapGormError(err))
	default:
		return account.PasswordHash, account.ID, nil
	}
}

func (r *GormAccountRepository) GetPasswordHashByID(ctx context.Context, id string) (string, error) {
	var account model.Account
	err := r.table(ctx).Select("password_hash").
		Where("id = ? AND is_active = ?", id, true).
		First(&account).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", ErrAccountNotFound
	case err != nil:
		return "", fmt.Errorf("%w: password lookup failed", wrapGormError(err))
	default:
		return account.PasswordHash, nil
	}
}

// Update password with version control
func (r *GormAccountRepository) UpdatePassword(ctx context.Context, id string, newPwdHash string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account model.Account
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND is_active = ?", id, true).
			First(&account).Error; err != nil {
			return wrapGormError(err)
		}

		result := tx.Model(&model.Account{}).
			Where("id = ? AND version = ?", id, account.Version).
			Updates(map[string]interface{}{
				"password_hash": newPwdHash,
				"version":       account.Version + 1,
				"updated_at":    time.Now(),
			})

		if result.Error != nil {
			return fmt.Errorf("%w: password update failed", wrapGormError(result.Error))
		}

		if result.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
}

func wrapGormError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}
	return apperr.WrapGormError(err)
}
