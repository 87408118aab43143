// Package workspace keeps the per-session state objects: one profile Store
// and one avatar Protocol per live session.
//
// Workspaces are dropped when the session signs out, and swept once their
// session has expired.
package workspace

import (
	"sync"
	"time"

	"rider-profile/pkg/core/avatar"
	"rider-profile/pkg/core/profile/repository/dao"
	"rider-profile/pkg/core/profile/service"
	"rider-profile/pkg/core/session"
)

// Workspace is the state owned by one session.
type Workspace struct {
	Store  *service.Store
	Avatar *avatar.Protocol

	expiresAt time.Time
}

// SessionEvents is where the registry learns about sign-outs.
type SessionEvents interface {
	OnChange(fn func(session.Event)) func()
	service.SessionSource
}

type Registry struct {
	sessions SessionEvents
	profiles dao.ProfileRepository
	titles   dao.TitleRepository
	objects  avatar.ObjectStore
	opts     avatar.Options

	now func() time.Time

	mu        sync.Mutex
	byID      map[string]*Workspace
	lastSweep time.Time
	cancel    func()
}

// sweepInterval bounds how often Get scans for expired workspaces.
const sweepInterval = time.Minute

func NewRegistry(sessions SessionEvents, profiles dao.ProfileRepository, titles dao.TitleRepository, objects avatar.ObjectStore, opts avatar.Options) *Registry {
	r := &Registry{
		sessions: sessions,
		profiles: profiles,
		titles:   titles,
		objects:  objects,
		opts:     opts,
		now:      time.Now,
		byID:     make(map[string]*Workspace),
	}
	r.cancel = sessions.OnChange(r.handle)
	return r
}

// Get returns the workspace for sess, creating it on first use. An expired
// session gets a throwaway workspace that is never registered.
func (r *Registry) Get(sess session.Session) *Workspace {
	now := r.now()

	r.mu.Lock()
	var expired []*Workspace
	if now.Sub(r.lastSweep) >= sweepInterval {
		expired = r.sweepLocked(now)
		r.lastSweep = now
	}

	ws, ok := r.byID[sess.ID]
	switch {
	case !sess.Live(now):
		if ok {
			delete(r.byID, sess.ID)
			expired = append(expired, ws)
		}
		ws = r.newWorkspace(sess)
	case !ok:
		ws = r.newWorkspace(sess)
		r.byID[sess.ID] = ws
	}
	r.mu.Unlock()

	for _, old := range expired {
		old.Store.Reset()
	}
	return ws
}

func (r *Registry) newWorkspace(sess session.Session) *Workspace {
	return &Workspace{
		Store:     service.NewStore(sess, r.sessions, r.profiles, r.titles),
		Avatar:    avatar.NewProtocol(r.objects, r.opts),
		expiresAt: sess.ExpiresAt,
	}
}

func (r *Registry) sweepLocked(now time.Time) []*Workspace {
	var expired []*Workspace
	for id, ws := range r.byID {
		if !now.Before(ws.expiresAt) {
			delete(r.byID, id)
			expired = append(expired, ws)
		}
	}
	return expired
}

// Len is the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Close stops listening for session events.
func (r *Registry) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Registry) handle(ev session.Event) {
	if ev.Type != session.SignedOut {
		return
	}

	r.mu.Lock()
	ws, ok := r.byID[ev.Session.ID]
	delete(r.byID, ev.Session.ID)
	r.mu.Unlock()

	if ok {
		ws.Store.Reset()
	}
}
