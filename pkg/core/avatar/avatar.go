// Package avatar replaces a user's avatar image.
//
// A replacement walks idle -> permission-pending -> selecting -> uploading
// -> persisting -> idle. Any failing step passes through failed and lands
// back in idle with the cause returned. Permission denial and a cancelled
// pick return to idle with no error and no side effects.
//
// Objects live under avatars/<user id>/ with a timestamped name. Every object
// already under that prefix is removed before the new one is written, so a
// user has at most one stored avatar once a replacement completes.
package avatar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	apperr "rider-profile/pkg/common/errors"
)

type State int

const (
	Idle State = iota
	PermissionPending
	Selecting
	Uploading
	Persisting
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PermissionPending:
		return "permission-pending"
	case Selecting:
		return "selecting"
	case Uploading:
		return "uploading"
	case Persisting:
		return "persisting"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// File is what the picker hands back.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Picker asks the device for media access and lets the user choose a file.
// PickImage returns a nil file when the user cancels.
type Picker interface {
	RequestPermission(ctx context.Context) (bool, error)
	PickImage(ctx context.Context) (*File, error)
}

// ObjectStore is a bucket with publicly resolvable objects.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Remove(ctx context.Context, keys []string) error
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(ctx context.Context, key string) (string, error)
}

// ProfileWriter stores the new avatar address on the profile.
type ProfileWriter interface {
	SetAvatarURL(ctx context.Context, url string) error
}

type Result struct {
	Changed bool
	Key     string
	URL     string
	Removed []string
}

type Protocol struct {
	store ObjectStore
	opts  Options
	now   func() time.Time

	mu        sync.Mutex
	state     State
	observers []func(from, to State)
}

func NewProtocol(store ObjectStore, opts Options) *Protocol {
	return &Protocol{
		store: store,
		opts:  opts.withDefaults(),
		now:   time.Now,
	}
}

func (p *Protocol) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// OnTransition registers fn to be called after every state change.
func (p *Protocol) OnTransition(fn func(from, to State)) {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

func KeyPrefix(userID string) string {
	return "avatars/" + userID + "/"
}

func ObjectKey(userID string, at time.Time) string {
	return fmt.Sprintf("%s%s-%d.jpg", KeyPrefix(userID), userID, at.UnixNano())
}

// Replace runs one avatar replacement for userID. A Protocol runs one
// replacement at a time; a second call while one is in flight fails with
// ErrUploadInProgress.
func (p *Protocol) Replace(ctx context.Context, userID string, picker Picker, profile ProfileWriter) (Result, error) {
	if userID == "" {
		return Result{}, apperr.Precondition("avatar.replace", apperr.ErrNoSession)
	}

	p.mu.Lock()
	if p.state != Idle {
		p.mu.Unlock()
		return Result{}, apperr.Precondition("avatar.replace", apperr.ErrUploadInProgress)
	}
	p.state = PermissionPending
	observers := p.observers
	p.mu.Unlock()
	for _, fn := range observers {
		fn(Idle, PermissionPending)
	}

	granted, err := picker.RequestPermission(ctx)
	if err != nil {
		return Result{}, p.fail(ctx, classify("avatar.permission", err))
	}
	if !granted {
		hlog.CtxInfof(ctx, "avatar: media permission denied user=%s", userID)
		p.transition(Idle)
		return Result{}, nil
	}

	p.transition(Selecting)
	file, err := picker.PickImage(ctx)
	if err != nil {
		return Result{}, p.fail(ctx, classify("avatar.pick", err))
	}
	if file == nil {
		p.transition(Idle)
		return Result{}, nil
	}
	data, err := Normalize(file.Data, p.opts)
	if err != nil {
		return Result{}, p.fail(ctx, apperr.Validation("avatar.pick", err))
	}

	p.transition(Uploading)
	prior, err := p.store.List(ctx, KeyPrefix(userID))
	if err != nil {
		return Result{}, p.fail(ctx, apperr.Remote("avatar.list", err))
	}
	if len(prior) > 0 {
		if err := p.store.Remove(ctx, prior); err != nil {
			return Result{}, p.fail(ctx, apperr.Remote("avatar.remove", err))
		}
	}

	key := ObjectKey(userID, p.now())
	if err := p.store.Upload(ctx, key, data, "image/jpeg"); err != nil {
		return Result{}, p.fail(ctx, apperr.Remote("avatar.upload", err))
	}
	url, err := p.store.PublicURL(ctx, key)
	if err != nil {
		return Result{}, p.fail(ctx, apperr.Remote("avatar.resolve_url", err))
	}

	p.transition(Persisting)
	if err := profile.SetAvatarURL(ctx, url); err != nil {
		return Result{}, p.fail(ctx, classify("avatar.persist", err))
	}

	p.transition(Idle)
	hlog.CtxInfof(ctx, "avatar replaced user=%s key=%s removed=%d", userID, key, len(prior))
	return Result{Changed: true, Key: key, URL: url, Removed: prior}, nil
}

// classify keeps a collaborator's own failure kind and treats anything
// unclassified as a remote failure.
func classify(op string, err error) error {
	if apperr.KindOf(err) == apperr.KindUnknown {
		return apperr.Remote(op, err)
	}
	return err
}

func (p *Protocol) fail(ctx context.Context, err error) error {
	hlog.CtxWarnf(ctx, "avatar: replacement failed in %s: %v", p.State(), err)
	p.transition(Failed)
	p.transition(Idle)
	return err
}

func (p *Protocol) transition(to State) {
	p.mu.Lock()
	from := p.state
	p.state = to
	observers := p.observers
	p.mu.Unlock()

	for _, fn := range observers {
		fn(from, to)
	}
}
