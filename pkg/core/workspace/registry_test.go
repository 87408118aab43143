package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"rider-profile/pkg/core/avatar"
	"rider-profile/pkg/core/profile/model"
	"rider-profile/pkg/core/session"
)

type fakeEvents struct {
	mu        sync.Mutex
	listeners []func(session.Event)
}

func (f *fakeEvents) OnChange(fn func(session.Event)) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.listeners = nil
		f.mu.Unlock()
	}
}

func (f *fakeEvents) SignOut(_ context.Context, id string) error {
	f.emit(session.Event{Type: session.SignedOut, Session: session.Session{ID: id}})
	return nil
}

func (f *fakeEvents) emit(ev session.Event) {
	f.mu.Lock()
	fns := append([]func(session.Event){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

type stubProfiles struct{}

func (stubProfiles) QueryByID(_ context.Context, id string) (model.Profile, error) {
	return model.Profile{ID: id}, nil
}
func (stubProfiles) Upsert(context.Context, model.Profile) error { return nil }
func (stubProfiles) UpdateFields(context.Context, string, map[string]interface{}) error {
	return nil
}

type stubTitles struct{}

func (stubTitles) ListOrdered(context.Context) ([]model.Title, error) { return nil, nil }

func newSession(id string) session.Session {
	return session.Session{ID: id, UserID: "u-" + id, ExpiresAt: time.Now().Add(time.Hour)}
}

func TestRegistryReusesWorkspacePerSession(t *testing.T) {
	events := &fakeEvents{}
	r := NewRegistry(events, stubProfiles{}, stubTitles{}, nil, avatar.Options{})
	defer r.Close()

	a1 := r.Get(newSession("a"))
	a2 := r.Get(newSession("a"))
	b := r.Get(newSession("b"))
	if a1 != a2 {
		t.Fatalf("same session produced two workspaces")
	}
	if a1 == b || a1.Store == b.Store || a1.Avatar == b.Avatar {
		t.Fatalf("sessions share state")
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestRegistryDropsWorkspaceOnSignOut(t *testing.T) {
	events := &fakeEvents{}
	r := NewRegistry(events, stubProfiles{}, stubTitles{}, nil, avatar.Options{})
	defer r.Close()
	ctx := context.Background()

	ws := r.Get(newSession("a"))
	if _, err := ws.Store.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Store.SignOut calls back into the registry through the event.
	done := make(chan error, 1)
	go func() { done <- ws.Store.SignOut(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SignOut: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("SignOut deadlocked")
	}

	if r.Len() != 0 {
		t.Fatalf("workspace not dropped")
	}
	if _, ok := ws.Store.Snapshot(); ok {
		t.Fatalf("snapshot survived sign-out")
	}
	if fresh := r.Get(newSession("a")); fresh == ws {
		t.Fatalf("stale workspace returned")
	}
}

func TestRegistrySignOutElsewhereResetsStore(t *testing.T) {
	events := &fakeEvents{}
	r := NewRegistry(events, stubProfiles{}, stubTitles{}, nil, avatar.Options{})
	defer r.Close()

	ws := r.Get(newSession("a"))
	if _, err := ws.Store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	events.emit(session.Event{Type: session.SignedOut, Session: session.Session{ID: "a"}})

	_, hasSession := ws.Store.Session()
	_, hasSnapshot := ws.Store.Snapshot()
	if hasSession || hasSnapshot {
		t.Fatalf("session=%v snapshot=%v", hasSession, hasSnapshot)
	}
}

func TestRegistrySweepsExpiredWorkspaces(t *testing.T) {
	events := &fakeEvents{}
	r := NewRegistry(events, stubProfiles{}, stubTitles{}, nil, avatar.Options{})
	defer r.Close()

	clock := time.Now()
	r.now = func() time.Time { return clock }

	short := session.Session{ID: "a", UserID: "u-a", ExpiresAt: clock.Add(time.Hour)}
	long := session.Session{ID: "b", UserID: "u-b", ExpiresAt: clock.Add(3 * time.Hour)}
	wsA := r.Get(short)
	if _, err := wsA.Store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	r.Get(long)
	if r.Len() != 2 {
		t.Fatalf("len = %d", r.Len())
	}

	clock = clock.Add(2 * time.Hour)
	r.Get(long)
	if r.Len() != 1 {
		t.Fatalf("expired workspace kept, len = %d", r.Len())
	}
	if _, ok := wsA.Store.Snapshot(); ok {
		t.Fatalf("expired workspace still holds a snapshot")
	}
}

func TestRegistryDoesNotRegisterExpiredSession(t *testing.T) {
	events := &fakeEvents{}
	r := NewRegistry(events, stubProfiles{}, stubTitles{}, nil, avatar.Options{})
	defer r.Close()

	sess := newSession("a")
	r.Get(sess)

	sess.ExpiresAt = time.Now().Add(-time.Second)
	ws := r.Get(sess)
	if r.Len() != 0 {
		t.Fatalf("len = %d, want 0", r.Len())
	}
	if _, err := ws.Store.Load(context.Background()); err == nil {
		t.Fatalf("expired session loaded a profile")
	}
}
