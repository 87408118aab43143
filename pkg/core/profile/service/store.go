// Package service holds the per-session profile store.
//
// Store is a write-through cache over the profiles table: every mutation
// writes the record store first and then patches the in-memory snapshot
// while still holding the store lock, so once concurrent writers on one
// Store have returned the snapshot equals the stored row. No re-fetch is
// done after a write except when new titles are unlocked.
package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gorm.io/datatypes"

	apperr "rider-profile/pkg/common/errors"
	"rider-profile/pkg/core/profile/model"
	"rider-profile/pkg/core/profile/repository/dao"
	"rider-profile/pkg/core/session"
	"rider-profile/pkg/core/title"
)

const maxNameLength = 64

// Transports accepted for preferred_transport. Empty clears the preference.
var Transports = map[string]bool{
	"":      true,
	"bus":   true,
	"tram":  true,
	"metro": true,
	"train": true,
	"ferry": true,
	"bike":  true,
	"walk":  true,
}

var (
	errNameTooLong      = apperr.New("name must be at most 64 characters")
	errUnknownTransport = apperr.New("unknown preferred transport")
	errEmptyFavorite    = apperr.New("favorite key is required")
)

// SessionSource is the part of the auth service the store needs.
type SessionSource interface {
	SignOut(ctx context.Context, id string) error
}

// Details are the user-editable profile fields. Nil leaves a field unchanged.
type Details struct {
	FirstName          *string
	LastName           *string
	PreferredTransport *string
}

type Store struct {
	profiles dao.ProfileRepository
	titles   dao.TitleRepository
	sessions SessionSource
	now      func() time.Time

	mu       sync.Mutex
	session  *session.Session
	snapshot *model.Profile
}

func NewStore(sess session.Session, sessions SessionSource, profiles dao.ProfileRepository, titles dao.TitleRepository) *Store {
	s := &Store{
		profiles: profiles,
		titles:   titles,
		sessions: sessions,
		now:      time.Now,
	}
	if sess.ID != "" {
		s.session = &sess
	}
	return s
}

// Session returns the session the store is bound to, if any.
func (s *Store) Session() (session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return session.Session{}, false
	}
	return *s.session, true
}

// Snapshot returns a copy of the cached profile.
func (s *Store) Snapshot() (model.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return model.Profile{}, false
	}
	return s.snapshot.Clone(), true
}

// Load replaces the whole snapshot with the stored profile.
func (s *Store) Load(ctx context.Context) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSession("profile.load"); err != nil {
		return model.Profile{}, err
	}
	if err := s.loadLocked(ctx); err != nil {
		return model.Profile{}, err
	}
	return s.snapshot.Clone(), nil
}

// EvaluateTitles unlocks every title the current points qualify for and
// returns the newly unlocked ones. The snapshot is refreshed from the
// record store when anything was unlocked.
func (s *Store) EvaluateTitles(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, "profile.evaluate_titles"); err != nil {
		return nil, err
	}

	table, err := s.titles.ListOrdered(ctx)
	if err != nil {
		return nil, apperr.Remote("profile.evaluate_titles", err)
	}

	delta := title.Evaluate(table, s.snapshot.Points, s.snapshot.Titles)
	if len(delta) == 0 {
		return nil, nil
	}

	merged := title.Merge(s.snapshot.Titles, delta)
	err = s.profiles.UpdateFields(ctx, s.snapshot.ID, map[string]interface{}{
		"titles":     datatypes.JSONSlice[string](merged),
		"updated_at": s.now(),
	})
	if err != nil {
		return nil, apperr.Remote("profile.evaluate_titles", err)
	}
	hlog.CtxInfof(ctx, "titles unlocked user=%s points=%d titles=%v", s.snapshot.ID, s.snapshot.Points, delta)

	if err := s.loadLocked(ctx); err != nil {
		return delta, err
	}
	return delta, nil
}

// SelectTitle makes t the displayed title. t must already be unlocked.
func (s *Store) SelectTitle(ctx context.Context, t string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, "profile.select_title"); err != nil {
		return err
	}
	if !s.snapshot.HasTitle(t) {
		return apperr.Precondition("profile.select_title", apperr.ErrTitleNotUnlocked)
	}

	now := s.now()
	err := s.profiles.UpdateFields(ctx, s.snapshot.ID, map[string]interface{}{
		"selected_title": t,
		"updated_at":     now,
	})
	if err != nil {
		return apperr.Remote("profile.select_title", err)
	}

	selected := t
	s.snapshot.SelectedTitle = &selected
	s.snapshot.UpdatedAt = now
	return nil
}

// SetAvatarURL persists the avatar address and patches the snapshot.
func (s *Store) SetAvatarURL(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, "profile.set_avatar"); err != nil {
		return err
	}

	now := s.now()
	err := s.profiles.UpdateFields(ctx, s.snapshot.ID, map[string]interface{}{
		"avatar_url": url,
		"updated_at": now,
	})
	if err != nil {
		return apperr.Remote("profile.set_avatar", err)
	}

	s.snapshot.AvatarURL = url
	s.snapshot.UpdatedAt = now
	return nil
}

// UpdateDetails validates and writes the editable fields.
func (s *Store) UpdateDetails(ctx context.Context, d Details) (model.Profile, error) {
	fields := map[string]interface{}{}
	if d.FirstName != nil {
		name := strings.TrimSpace(*d.FirstName)
		if utf8.RuneCountInString(name) > maxNameLength {
			return model.Profile{}, apperr.Validation("profile.update", errNameTooLong)
		}
		fields["first_name"] = name
	}
	if d.LastName != nil {
		name := strings.TrimSpace(*d.LastName)
		if utf8.RuneCountInString(name) > maxNameLength {
			return model.Profile{}, apperr.Validation("profile.update", errNameTooLong)
		}
		fields["last_name"] = name
	}
	if d.PreferredTransport != nil {
		transport := strings.ToLower(strings.TrimSpace(*d.PreferredTransport))
		if !Transports[transport] {
			return model.Profile{}, apperr.Validation("profile.update", errUnknownTransport)
		}
		fields["preferred_transport"] = transport
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, "profile.update"); err != nil {
		return model.Profile{}, err
	}
	if len(fields) == 0 {
		return s.snapshot.Clone(), nil
	}

	now := s.now()
	fields["updated_at"] = now
	if err := s.profiles.UpdateFields(ctx, s.snapshot.ID, fields); err != nil {
		return model.Profile{}, apperr.Remote("profile.update", err)
	}

	if v, ok := fields["first_name"].(string); ok {
		s.snapshot.FirstName = v
	}
	if v, ok := fields["last_name"].(string); ok {
		s.snapshot.LastName = v
	}
	if v, ok := fields["preferred_transport"].(string); ok {
		s.snapshot.PreferredTransport = v
	}
	s.snapshot.UpdatedAt = now
	return s.snapshot.Clone(), nil
}

// AddFavorite adds key to the favorites set. Adding an existing key is a no-op.
// Favorite edits always start from the stored row, not the cached snapshot.
func (s *Store) AddFavorite(ctx context.Context, key string) error {
	return s.editFavorites(ctx, "profile.add_favorite", key, func(favs []string) ([]string, bool) {
		for _, f := range favs {
			if f == key {
				return favs, false
			}
		}
		return append(favs, key), true
	})
}

// RemoveFavorite drops key from the favorites set.
func (s *Store) RemoveFavorite(ctx context.Context, key string) error {
	return s.editFavorites(ctx, "profile.remove_favorite", key, func(favs []string) ([]string, bool) {
		out := make([]string, 0, len(favs))
		for _, f := range favs {
			if f != key {
				out = append(out, f)
			}
		}
		return out, len(out) != len(favs)
	})
}

func (s *Store) editFavorites(ctx context.Context, op, key string, edit func([]string) ([]string, bool)) error {
	if strings.TrimSpace(key) == "" {
		return apperr.Validation(op, errEmptyFavorite)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireSession(op); err != nil {
		return err
	}
	// 收藏集合可能被同一用户的其他会话改过, 先取最新行再合并
	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	current := append([]string(nil), s.snapshot.Favorites...)
	next, changed := edit(current)
	if !changed {
		return nil
	}

	now := s.now()
	err := s.profiles.UpdateFields(ctx, s.snapshot.ID, map[string]interface{}{
		"favorites":  datatypes.JSONSlice[string](next),
		"updated_at": now,
	})
	if err != nil {
		return apperr.Remote(op, err)
	}

	s.snapshot.Favorites = next
	s.snapshot.UpdatedAt = now
	return nil
}

// SignOut invalidates the session and clears session and snapshot together,
// whether or not the auth service call succeeds.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.snapshot = nil
	// 先释放锁, 会话监听方会回调 Reset
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	if err := s.sessions.SignOut(ctx, sess.ID); err != nil {
		hlog.CtxWarnf(ctx, "sign-out of sid=%s failed: %v", sess.ID, err)
		return apperr.Remote("profile.sign_out", err)
	}
	return nil
}

// Reset drops local state without calling the auth service. Used when the
// session ended elsewhere.
func (s *Store) Reset() {
	s.mu.Lock()
	s.session = nil
	s.snapshot = nil
	s.mu.Unlock()
}

func (s *Store) requireSession(op string) error {
	if s.session == nil || !s.session.Live(s.now()) {
		return apperr.Precondition(op, apperr.ErrNoSession)
	}
	return nil
}

func (s *Store) ensureLoaded(ctx context.Context, op string) error {
	if err := s.requireSession(op); err != nil {
		return err
	}
	if s.snapshot != nil {
		return nil
	}
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	p, err := s.profiles.QueryByID(ctx, s.session.UserID)
	if err != nil {
		return apperr.Remote("profile.load", err)
	}
	s.snapshot = &p
	return nil
}
