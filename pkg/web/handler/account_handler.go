package handler

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"rider-profile/pkg/core/account/service"
	"rider-profile/pkg/core/workspace"
	"rider-profile/pkg/web/model"
)

type AccountHandler struct {
	accounts   *service.AccountService
	workspaces *workspace.Registry
}

func NewAccountHandler(accounts *service.AccountService, workspaces *workspace.Registry) *AccountHandler {
	return &AccountHandler{accounts: accounts, workspaces: workspaces}
}

func (h *AccountHandler) Register(ctx context.Context, c *app.RequestContext) {
	var req model.RegisterReq
	if err := c.BindAndValidate(&req); err != nil {
		badRequest(c, "参数校验失败")
		return
	}

	id, err := h.accounts.Register(ctx, service.RegisterInput{
		Email:              req.Email,
		Password:           req.Password,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		PreferredTransport: req.PreferredTransport,
	})
	if err != nil {
		respondError(ctx, c, err)
		return
	}
	c.JSON(http.StatusCreated, model.RegisterRes{ID: id})
}

func (h *AccountHandler) Login(ctx context.Context, c *app.RequestContext) {
	var req model.LoginReq
	if err := c.BindAndValidate(&req); err != nil {
		badRequest(c, "参数错误")
		return
	}

	token, sess, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(ctx, c, err)
		return
	}
	c.JSON(http.StatusOK, model.LoginRes{
		Token:     token,
		SessionID: sess.ID,
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
	})
}

// SignOut 注销当前会话, 会话工作区随之清空
func (h *AccountHandler) SignOut(ctx context.Context, c *app.RequestContext) {
	sess, ok := mustSession(ctx, c)
	if !ok {
		return
	}
	if err := h.workspaces.Get(sess).Store.SignOut(ctx); err != nil {
		respondError(ctx, c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) ChangePassword(ctx context.Context, c *app.RequestContext) {
	sess, ok := mustSession(ctx, c)
	if !ok {
		return
	}

	var req model.ChangePwdReq
	if err := c.BindAndValidate(&req); err != nil {
		badRequest(c, "参数错误")
		return
	}
	if err := h.accounts.ChangePassword(ctx, sess.UserID, req.OldPassword, req.NewPassword); err != nil {
		respondError(ctx, c, err)
		return
	}
	c.JSON(http.StatusOK, utils.H{"message": "密码已更新"})
}
