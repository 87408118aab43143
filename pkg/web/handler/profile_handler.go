package handler

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	profilemodel "rider-profile/pkg/core/profile/model"
	"rider-profile/pkg/core/profile/repository/dao"
	"rider-profile/pkg/core/profile/service"
	"rider-profile/pkg/core/workspace"
	"rider-profile/pkg/web/model"
)

type ProfileHandler struct {
	workspaces *workspace.Registry
	titles     dao.TitleRepository
	maxAvatar  int64
}

func NewProfileHandler(workspaces *workspace.Registry, titles dao.TitleRepository, maxAvatarBytes int64) *ProfileHandler {
	return &ProfileHandler{workspaces: workspaces, titles: titles, maxAvatar: maxAvatarBytes}
}

// GetProfile 重新加载资料并检查是否有新解锁的称号
func (h *ProfileHandler) GetProfile(ctx context.Context, c *app.RequestContext) {
	sess, ok := mustSession(ctx, c)
	if !ok {
		return
	}
	store := h.workspaces.Get(sess).Store

	p, err := store.Load(ctx)
	if err != nil {
		respondError(ctx, c, err)
		return
	}
	unlocked, err := store.EvaluateTitles(ctx)
	if err != nil {
		respondError(ctx, c, err)
		return
	}
	if len(unlocked) > 0 {
		p, _ = store.Snapshot()
	}

	res := model.NewProfileRes(p)
	res.NewTitles = unlocked
	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) UpdateProfile(ctx context.Context, c *app.RequestContext) {
	sess, ok := mustSession(ctx, c)
	if !ok {
		return
	}

	var req model.UpdateProfileReq
	if err := c.BindAndValidate(&req); err != nil {
		badRequest(c, "参数错误")
		return
	}

	p, err := h.workspaces.Get(sess).Store.UpdateDetails(ctx, service.Details{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		PreferredTransport: req.PreferredTransport,
	})
	if err != nil {
		respondError(ctx, c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewProfileRes(p))
}

func (h *ProfileHandler) SelectTitle(ctx context.Context, c *app.RequestContext) {
	sess, ok := mustSession(ctx, c)
	if !ok {
		return
	}

	var req model.SelectTitleReq
	if err := c.BindAndValidate(&req); err != nil {
		badRequest(c, "参数错误")
		return
	}

	store := h.workspaces.Get(sess).Store
	if err := store.SelectTitle(ctx, req.Title); err != nil {
		respondError(ctx, c, err)
		return
	}
	p, _ := store.Snapshot()
	c.JSON(http.StatusOK, model.NewProfileRes(p))
}

// ListTitles 全部称号及当前用户的解锁状态
func (h *ProfileHandler) ListTitles(ctx context.Context, c *app.RequestContext) {
	sess, ok := mustSession(ctx, c)
	if !ok {
		return
	}

	p, err := snapshotOf(ctx, h.workspaces.Get(sess).Store)
	if err != nil {
		respondError(ctx, c, err)
		return
	}
	table, err := h.titles.ListOrdered(ctx)
	if err != nil {
		respondError(ctx, c, err)
		return
	}

	res := make([]model.TitleRes, 0, len(table))
	for _, t := range table {
		res = append(res, model.TitleRes{
			Title:          t.Title,
			PointsRequired: t.PointsRequired,
			Unlocked:       p.HasTitle(t.Title),
			Selected:       p.SelectedTitle != nil && *p.SelectedTitle == t.Title,
		})
	}
	c.JSON(http.StatusOK, res)
}

// UploadAvatar 表单字段 permission 为 denied 时视为拒绝授权, 缺少 file 视为取消
func (h *ProfileHandler) UploadAvatar(ctx context.Context, c *app.RequestContext) {
	sess, ok := mustSession(ctx, c)
	if !ok {
		return
	}
	ws := h.workspaces.Get(sess)

	res, err := ws.Avatar.Replace(ctx, sess.UserID, &formPicker{c: c, maxBytes: h.maxAvatar}, ws.Store)
	if err != nil {
		respondError(ctx, c, err)
		return
	}
	c.JSON(http.StatusOK, model.AvatarRes{Changed: res.Changed, AvatarURL: res.URL})
}

// snapshotOf 优先用缓存, 没有时从存储加载
func snapshotOf(ctx context.Context, store *service.Store) (profilemodel.Profile, error) {
	if p, ok := store.Snapshot(); ok {
		return p, nil
	}
	return store.Load(ctx)
}
