package dao

import (
	"context"

	"rider-profile/pkg/core/account/model"
)

type AccountRepository interface {
	IsEmailExists(ctx context.Context, email string) (bool, error)
	CreateAccount(ctx context.Context, account model.Account) error
	GetPasswordHash(ctx context.Context, email string) (string, string, error) // 返回哈希和账户ID
	GetPasswordHashByID(ctx context.Context, id string) (string, error)
	UpdatePassword(ctx context.Context, id string, newPwdHash string) error
}
