package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/account/model"
	"rider-profile/pkg/core/account/repository/dao"
	accountdao "rider-profile/pkg/core/account/repository/dao/impl"
	profilemodel "rider-profile/pkg/core/profile/model"
	"rider-profile/pkg/core/session"
)

var (
	ErrPasswordTooShort = errors.New("密码至少8位")
	ErrPasswordWeak     = errors.New("需包含数字、字母和特殊字符")
	ErrInvalidEmail     = errors.New("invalid email")
)

type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (string, session.Session, error)
}

type ProfileCreator interface {
	Upsert(ctx context.Context, profile profilemodel.Profile) error
}

type RegisterInput struct {
	Email              string
	Password           string
	FirstName          string
	LastName           string
	PreferredTransport string
}

type AccountService struct {
	accounts dao.AccountRepository
	profiles ProfileCreator
	sessions SessionIssuer
}

func NewAccountService(accounts dao.AccountRepository, profiles ProfileCreator, sessions SessionIssuer) *AccountService {
	return &AccountService{accounts: accounts, profiles: profiles, sessions: sessions}
}

// Register 创建账户和空 profile, 返回新 ID
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperr.Validation("account.register", ErrInvalidEmail)
	}
	if err := ValidatePasswordStrength(in.Password); err != nil {
		return "", apperr.Validation("account.register", err)
	}

	// 检查邮箱重复
	exists, err := s.accounts.IsEmailExists(ctx, email)
	if err != nil {
		return "", apperr.Remote("account.register", err)
	}
	if exists {
		return "", apperr.Precondition("account.register", apperr.ErrDuplicateEntry)
	}

	// 密码加密
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := s.accounts.CreateAccount(ctx, model.Account{ID: id, Email: email, PasswordHash: string(hashed)}); err != nil {
		if apperr.Is(err, apperr.ErrDuplicateEntry) {
			return "", apperr.Precondition("account.register", err)
		}
		return "", apperr.Remote("account.register", err)
	}

	err = s.profiles.Upsert(ctx, profilemodel.Profile{
		ID:                 id,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		PreferredTransport: strings.ToLower(strings.TrimSpace(in.PreferredTransport)),
	})
	if err != nil {
		hlog.CtxErrorf(ctx, "account %s created without profile: %v", id, err)
		return "", apperr.Remote("account.register", err)
	}

	hlog.CtxInfof(ctx, "account registered id=%s", id)
	return id, nil
}

// Login 校验密码并签发会话
func (s *AccountService) Login(ctx context.Context, email, password string) (string, session.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	storedHash, id, err := s.accounts.GetPasswordHash(ctx, email)
	switch {
	case errors.Is(err, accountdao.ErrAccountNotFound):
		return "", session.Session{}, apperr.Precondition("account.login", apperr.ErrInvalidCredentials)
	case err != nil:
		return "", session.Session{}, apperr.Remote("account.login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)); err != nil {
		return "", session.Session{}, apperr.Precondition("account.login", apperr.ErrInvalidCredentials)
	}

	return s.sessions.Issue(ctx, id)
}

// ChangePassword 校验旧密码后更新
func (s *AccountService) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	storedHash, err := s.accounts.GetPasswordHashByID(ctx, id)
	switch {
	case errors.Is(err, accountdao.ErrAccountNotFound):
		return apperr.Precondition("account.change_password", apperr.ErrNoSession)
	case err != nil:
		return apperr.Remote("account.change_password", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(oldPassword)); err != nil {
		return apperr.Precondition("account.change_password", apperr.ErrInvalidCredentials)
	}
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return apperr.Validation("account.change_password", err)
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, id, string(newHash)); err != nil {
		return apperr.Remote("account.change_password", err)
	}
	return nil
}

// ValidatePasswordStrength 密码规则：同时包含数字、字母和特殊字符，最少8位
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	hasNumber := false
	hasLetter := false
	hasSpecial := false

	for _, c := range password {
		switch {
		case unicode.IsNumber(c):
			hasNumber = true
		case unicode.IsLetter(c):
			hasLetter = true
		case unicode.IsSymbol(c) || unicode.IsPunct(c):
			hasSpecial = true
		}
	}

	if !(hasNumber && hasLetter && hasSpecial) {
		return ErrPasswordWeak
	}

	return nil
}
