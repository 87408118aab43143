package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/avatar"
)

// formPicker 把 multipart 上传请求当作设备的相册选择器
type formPicker struct {
	c        *app.RequestContext
	maxBytes int64
}

var errUnknownPermission = errors.New("permission must be granted or denied")

func (p *formPicker) RequestPermission(context.Context) (bool, error) {
	switch v := strings.ToLower(string(p.c.FormValue("permission"))); v {
	case "", "granted":
		return true, nil
	case "denied":
		return false, nil
	default:
		return false, apperr.Validation("avatar.permission", fmt.Errorf("%w: got %q", errUnknownPermission, v))
	}
}

func (p *formPicker) PickImage(ctx context.Context) (*avatar.File, error) {
	form, err := p.c.MultipartForm()
	if err != nil {
		return nil, apperr.Validation("avatar.pick", fmt.Errorf("malformed upload form: %w", err))
	}
	files := form.File["file"]
	if len(files) == 0 {
		// 没有文件即用户取消
		hlog.CtxDebugf(ctx, "avatar form has no file part")
		return nil, nil
	}
	fh := files[0]

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := io.Reader(f)
	if p.maxBytes > 0 {
		// 多读一个字节, 超限由 Normalize 判断
		r = io.LimitReader(f, p.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &avatar.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
