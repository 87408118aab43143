package avatar

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	apperr "rider-profile/pkg/common/errors"
)

// =============================================================================
// Fakes
// =============================================================================

type fakePicker struct {
	granted    bool
	permErr    error
	file       *File
	pickErr    error
	picked     bool
	beforePick func()
}

func (f *fakePicker) RequestPermission(context.Context) (bool, error) {
	return f.granted, f.permErr
}

func (f *fakePicker) PickImage(context.Context) (*File, error) {
	f.picked = true
	if f.beforePick != nil {
		f.beforePick()
	}
	return f.file, f.pickErr
}

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	calls    []string
	listErr  error
	uploadFn func(key string) error
}

func newFakeStore(keys ...string) *fakeStore {
	s := &fakeStore{objects: map[string][]byte{}}
	for _, k := range keys {
		s.objects[k] = []byte("old")
	}
	return s
}

func (s *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "list")
	if s.listErr != nil {
		return nil, s.listErr
	}
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *fakeStore) Remove(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "remove")
	for _, k := range keys {
		delete(s.objects, k)
	}
	return nil
}

func (s *fakeStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "upload")
	if s.uploadFn != nil {
		if err := s.uploadFn(key); err != nil {
			return err
		}
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) PublicURL(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "url")
	return "https://media.test/" + key, nil
}

type fakeProfile struct {
	url string
	err error
}

func (f *fakeProfile) SetAvatarURL(_ context.Context, url string) error {
	if f.err != nil {
		return f.err
	}
	f.url = url
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func newTestProtocol(store ObjectStore) (*Protocol, *[]string) {
	p := NewProtocol(store, Options{Size: 32, Quality: 70})
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	var states []string
	p.OnTransition(func(_, to State) { states = append(states, to.String()) })
	return p, &states
}

// =============================================================================
// Tests
// =============================================================================

func TestReplaceWithoutPriorObjectsSkipsDelete(t *testing.T) {
	store := newFakeStore()
	p, states := newTestProtocol(store)
	profile := &fakeProfile{}
	picker := &fakePicker{granted: true, file: &File{Name: "me.png", Data: pngBytes(t, 64, 48)}}

	res, err := p.Replace(context.Background(), "u1", picker, profile)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !res.Changed || len(res.Removed) != 0 {
		t.Fatalf("result = %+v", res)
	}

	want := []string{"list", "upload", "url"}
	if strings.Join(store.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", store.calls, want)
	}
	if profile.url != "https://media.test/"+res.Key {
		t.Fatalf("profile url = %s, key = %s", profile.url, res.Key)
	}
	if res.Key != ObjectKey("u1", time.Unix(1700000000, 0)) {
		t.Fatalf("key = %s", res.Key)
	}

	wantStates := "permission-pending,selecting,uploading,persisting,idle"
	if got := strings.Join(*states, ","); got != wantStates {
		t.Fatalf("states = %s, want %s", got, wantStates)
	}
}

func TestReplaceDeletesPriorObjectBeforeWrite(t *testing.T) {
	store := newFakeStore("avatars/u1/u1-1.jpg", "avatars/u2/u2-1.jpg")
	p, _ := newTestProtocol(store)
	picker := &fakePicker{granted: true, file: &File{Data: pngBytes(t, 10, 10)}}

	res, err := p.Replace(context.Background(), "u1", picker, &fakeProfile{})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if strings.Join(store.calls, ",") != "list,remove,upload,url" {
		t.Fatalf("calls = %v", store.calls)
	}
	if len(res.Removed) != 1 || res.Removed[0] != "avatars/u1/u1-1.jpg" {
		t.Fatalf("removed = %v", res.Removed)
	}
	if _, ok := store.objects["avatars/u1/u1-1.jpg"]; ok {
		t.Fatalf("prior object still stored")
	}
	if _, ok := store.objects["avatars/u2/u2-1.jpg"]; !ok {
		t.Fatalf("another user's object was removed")
	}

	decoded, err := jpeg.Decode(bytes.NewReader(store.objects[res.Key]))
	if err != nil {
		t.Fatalf("stored object is not a jpeg: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Fatalf("stored size = %v, want 32x32", b)
	}
}

func TestPermissionDeniedIsSilentNoop(t *testing.T) {
	store := newFakeStore("avatars/u1/u1-1.jpg")
	p, states := newTestProtocol(store)
	profile := &fakeProfile{}
	picker := &fakePicker{granted: false, file: &File{Data: pngBytes(t, 4, 4)}}

	res, err := p.Replace(context.Background(), "u1", picker, profile)
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if res.Changed || picker.picked || len(store.calls) != 0 || profile.url != "" {
		t.Fatalf("side effects: res=%+v picked=%v calls=%v url=%q", res, picker.picked, store.calls, profile.url)
	}
	if p.State() != Idle {
		t.Fatalf("state = %s", p.State())
	}
	if got := strings.Join(*states, ","); got != "permission-pending,idle" {
		t.Fatalf("states = %s", got)
	}
}

func TestCancelledPickReturnsToIdle(t *testing.T) {
	store := newFakeStore()
	p, _ := newTestProtocol(store)

	res, err := p.Replace(context.Background(), "u1", &fakePicker{granted: true}, &fakeProfile{})
	if err != nil || res.Changed {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	if len(store.calls) != 0 || p.State() != Idle {
		t.Fatalf("calls = %v, state = %s", store.calls, p.State())
	}
}

func TestNonImageIsValidationFailure(t *testing.T) {
	store := newFakeStore("avatars/u1/u1-1.jpg")
	p, states := newTestProtocol(store)
	picker := &fakePicker{granted: true, file: &File{Name: "notes.txt", Data: []byte("hello, not an image")}}

	_, err := p.Replace(context.Background(), "u1", picker, &fakeProfile{})
	if !errors.Is(err, apperr.ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("kind = %s", apperr.KindOf(err))
	}
	if len(store.calls) != 0 {
		t.Fatalf("store touched: %v", store.calls)
	}
	if got := strings.Join(*states, ","); got != "permission-pending,selecting,failed,idle" {
		t.Fatalf("states = %s", got)
	}
}

func TestStoreFailureSurfacesAndResets(t *testing.T) {
	boom := errors.New("bucket unavailable")
	store := newFakeStore()
	store.uploadFn = func(string) error { return boom }
	p, _ := newTestProtocol(store)
	profile := &fakeProfile{}

	_, err := p.Replace(context.Background(), "u1", &fakePicker{granted: true, file: &File{Data: pngBytes(t, 8, 8)}}, profile)
	if !errors.Is(err, boom) || apperr.KindOf(err) != apperr.KindRemote {
		t.Fatalf("err = %v", err)
	}
	if p.State() != Idle || profile.url != "" {
		t.Fatalf("state = %s, url = %q", p.State(), profile.url)
	}

	// no automatic retry, a fresh call works once the store recovers
	store.uploadFn = nil
	if _, err := p.Replace(context.Background(), "u1", &fakePicker{granted: true, file: &File{Data: pngBytes(t, 8, 8)}}, profile); err != nil {
		t.Fatalf("second Replace: %v", err)
	}
}

func TestProfileWriteFailureIsRemote(t *testing.T) {
	p, _ := newTestProtocol(newFakeStore())
	_, err := p.Replace(context.Background(), "u1",
		&fakePicker{granted: true, file: &File{Data: pngBytes(t, 8, 8)}},
		&fakeProfile{err: errors.New("db down")})
	if apperr.KindOf(err) != apperr.KindRemote {
		t.Fatalf("err = %v, kind = %s", err, apperr.KindOf(err))
	}
}

func TestPickerFailureKeepsItsKind(t *testing.T) {
	cases := []struct {
		name   string
		picker *fakePicker
		want   apperr.Kind
	}{
		{"bad permission input", &fakePicker{permErr: apperr.Validation("permission", errors.New("bad value"))}, apperr.KindValidation},
		{"permission service down", &fakePicker{permErr: errors.New("device unreachable")}, apperr.KindRemote},
		{"malformed pick", &fakePicker{granted: true, pickErr: apperr.Validation("pick", errors.New("truncated form"))}, apperr.KindValidation},
		{"pick io failure", &fakePicker{granted: true, pickErr: errors.New("read failed")}, apperr.KindRemote},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			p, _ := newTestProtocol(store)
			res, err := p.Replace(context.Background(), "u1", tc.picker, &fakeProfile{})
			if err == nil || res.Changed {
				t.Fatalf("res = %+v, err = %v", res, err)
			}
			if apperr.KindOf(err) != tc.want {
				t.Fatalf("kind = %s, want %s", apperr.KindOf(err), tc.want)
			}
			if p.State() != Idle || len(store.calls) != 0 {
				t.Fatalf("state = %s, calls = %v", p.State(), store.calls)
			}
		})
	}
}

func TestConcurrentReplaceRejected(t *testing.T) {
	p, _ := newTestProtocol(newFakeStore())

	var inner error
	picker := &fakePicker{granted: true, file: &File{Data: pngBytes(t, 8, 8)}}
	picker.beforePick = func() {
		_, inner = p.Replace(context.Background(), "u1", &fakePicker{granted: true}, &fakeProfile{})
	}

	if _, err := p.Replace(context.Background(), "u1", picker, &fakeProfile{}); err != nil {
		t.Fatalf("outer Replace: %v", err)
	}
	if !errors.Is(inner, apperr.ErrUploadInProgress) {
		t.Fatalf("inner err = %v, want ErrUploadInProgress", inner)
	}
}

func TestNormalizeCropsToSquare(t *testing.T) {
	out, err := Normalize(pngBytes(t, 90, 30), Options{Size: 20})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 20 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	if got := squareCrop(image.Rect(0, 0, 90, 30)); got != image.Rect(30, 0, 60, 30) {
		t.Fatalf("crop = %v", got)
	}
	if got := squareCrop(image.Rect(0, 0, 10, 40)); got != image.Rect(0, 15, 10, 25) {
		t.Fatalf("crop = %v", got)
	}
}

func TestNormalizeRejectsOversize(t *testing.T) {
	if _, err := Normalize(pngBytes(t, 50, 50), Options{MaxBytes: 10}); err == nil {
		t.Fatalf("expected size error")
	}
}
