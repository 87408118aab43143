package avatar

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register gif
	"image/jpeg"
	_ "image/png" // register png
	"net/http"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register webp

	apperr "rider-profile/pkg/common/errors"
)

type Options struct {
	Size     int   // output edge in pixels
	Quality  int   // JPEG quality
	MaxBytes int64 // upload limit before decoding
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 400
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 80
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 5 << 20
	}
	return o
}

// Normalize checks that data is an image, crops it to a centered square,
// scales it to opts.Size and re-encodes it as JPEG.
func Normalize(data []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	if len(data) == 0 {
		return nil, apperr.ErrNotImage
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", opts.MaxBytes)
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: detected %s", apperr.ErrNotImage, ct)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrNotImage, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, squareCrop(src.Bounds()), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}

func squareCrop(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w == h {
		return b
	}
	if w > h {
		off := (w - h) / 2
		return image.Rect(b.Min.X+off, b.Min.Y, b.Min.X+off+h, b.Max.Y)
	}
	off := (h - w) / 2
	return image.Rect(b.Min.X, b.Min.Y+off, b.Max.X, b.Min.Y+off+w)
}
