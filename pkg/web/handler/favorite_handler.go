package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	apperr "rider-profile/pkg/common/errors"
	favmodel "rider-profile/pkg/core/favorite/model"
	"rider-profile/pkg/core/favorite/service"
	"rider-profile/pkg/core/workspace"
	"rider-profile/pkg/web/model"
)

type FavoriteHandler struct {
	workspaces *workspace.Registry
	searcher   *service.Searcher
}

func NewFavoriteHandler(workspaces *workspace.Registry, searcher *service.Searcher) *FavoriteHandler {
	return &FavoriteHandler{workspaces: workspaces, searcher: searcher}
}

// Search GET /favorites/search?q=&limit=
func (h *FavoriteHandler) Search(ctx context.Context, c *app.RequestContext) {
	sess, ok := mustSession(ctx, c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit 必须是整数")
			return
		}
		limit = n
	}

	p, err := snapshotOf(ctx, h.workspaces.Get(sess).Store)
	if err != nil {
		respondError(ctx, c, err)
		return
	}
	items, err := h.searcher.Search(ctx, c.Query("q"), limit, p.Favorites)
	if err != nil {
		respondError(ctx, c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *FavoriteHandler) Add(ctx context.Context, c *app.RequestContext) {
	h.edit(ctx, c, "favorite.add", func(ctx context.Context, ws *workspace.Workspace, key string) error {
		return ws.Store.AddFavorite(ctx, key)
	})
}

func (h *FavoriteHandler) Remove(ctx context.Context, c *app.RequestContext) {
	h.edit(ctx, c, "favorite.remove", func(ctx context.Context, ws *workspace.Workspace, key string) error {
		return ws.Store.RemoveFavorite(ctx, key)
	})
}

func (h *FavoriteHandler) edit(ctx context.Context, c *app.RequestContext, op string, apply func(context.Context, *workspace.Workspace, string) error) {
	sess, ok := mustSession(ctx, c)
	if !ok {
		return
	}

	key := c.Param("key")
	if _, _, err := favmodel.ParseKey(key); err != nil {
		respondError(ctx, c, apperr.Validation(op, err))
		return
	}

	ws := h.workspaces.Get(sess)
	if err := apply(ctx, ws, key); err != nil {
		respondError(ctx, c, err)
		return
	}
	p, _ := ws.Store.Snapshot()
	c.JSON(http.StatusOK, model.FavoritesRes{Favorites: nonNilFavorites(p.Favorites)})
}

func nonNilFavorites(favs []string) []string {
	if favs == nil {
		return []string{}
	}
	return favs
}
