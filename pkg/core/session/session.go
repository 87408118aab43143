// Package session issues bearer tokens and tracks which sessions are live.
//
// A token is only honoured while its session record exists in Redis, so
// SignOut takes effect immediately even though the JWT itself has not expired.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperr "rider-profile/pkg/common/errors"
)

const keyNamespace = "session"

// Session is the proof of identity for one signed-in client.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the session is set and inside its validity window.
func (s Session) Live(now time.Time) bool {
	return s.ID != "" && s.UserID != "" && now.Before(s.ExpiresAt)
}

type EventType int

const (
	SignedIn EventType = iota + 1
	SignedOut
)

func (t EventType) String() string {
	switch t {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

type Event struct {
	Type    EventType
	Session Session
}

// Claims carried by the bearer token.
type Claims struct {
	SessionID string `json:"sid"`
	UserID    string `json:"user_id"`
	jwt.RegisteredClaims
}

type Options struct {
	Secret        string
	Issuer        string
	SigningMethod string
	TTL           time.Duration
}

type Provider struct {
	rdb    redis.UniversalClient
	secret []byte
	method jwt.SigningMethod
	issuer string
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	listeners map[int]func(Event)
	nextID    int
}

func NewProvider(rdb redis.UniversalClient, opts Options) (*Provider, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("session: secret is required")
	}
	if opts.SigningMethod == "" {
		opts.SigningMethod = jwt.SigningMethodHS256.Alg()
	}
	method := jwt.GetSigningMethod(opts.SigningMethod)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("session: unsupported signing method %q", opts.SigningMethod)
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}

	return &Provider{
		rdb:       rdb,
		secret:    []byte(opts.Secret),
		method:    method,
		issuer:    opts.Issuer,
		ttl:       opts.TTL,
		now:       time.Now,
		listeners: make(map[int]func(Event)),
	}, nil
}

func key(id string) string {
	return keyNamespace + ":" + id
}

// Issue opens a new session for userID and returns its signed token.
func (p *Provider) Issue(ctx context.Context, userID string) (string, Session, error) {
	now := p.now().UTC().Truncate(time.Second)
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(p.ttl),
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return "", Session{}, err
	}
	if err := p.rdb.Set(ctx, key(sess.ID), payload, p.ttl).Err(); err != nil {
		return "", Session{}, apperr.Remote("session.issue", err)
	}

	token := jwt.NewWithClaims(p.method, Claims{
		SessionID: sess.ID,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   userID,
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		p.rdb.Del(ctx, key(sess.ID))
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}

	hlog.CtxInfof(ctx, "session issued sid=%s user=%s expires=%s", sess.ID, userID, sess.ExpiresAt.Format(time.RFC3339))
	p.notify(Event{Type: SignedIn, Session: sess})
	return signed, sess, nil
}

// Parse verifies the token signature, issuer and expiry.
func (p *Provider) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, apperr.Precondition("session.parse", fmt.Errorf("%w: %v", apperr.ErrNoSession, err))
	}
	return claims, nil
}

// Get returns the live session with the given id.
func (p *Provider) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, apperr.Precondition("session.get", apperr.ErrNoSession)
	}

	raw, err := p.rdb.Get(ctx, key(id)).Bytes()
	switch {
	case err == redis.Nil:
		return Session{}, apperr.Precondition("session.get", apperr.ErrNoSession)
	case err != nil:
		return Session{}, apperr.Remote("session.get", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, apperr.Remote("session.get", fmt.Errorf("corrupt session record: %w", err))
	}
	if !sess.Live(p.now()) {
		return Session{}, apperr.Precondition("session.get", apperr.ErrNoSession)
	}
	return sess, nil
}

// SignOut deletes the session record and tells listeners about it.
// Listeners are notified even if the record was already gone.
func (p *Provider) SignOut(ctx context.Context, id string) error {
	sess := Session{ID: id}
	if raw, err := p.rdb.Get(ctx, key(id)).Bytes(); err == nil {
		_ = json.Unmarshal(raw, &sess)
	}

	err := p.rdb.Del(ctx, key(id)).Err()
	p.notify(Event{Type: SignedOut, Session: sess})
	if err != nil {
		return apperr.Remote("session.sign_out", err)
	}
	hlog.CtxInfof(ctx, "session signed out sid=%s user=%s", id, sess.UserID)
	return nil
}

// OnChange registers fn for sign-in and sign-out events. The returned
// function removes the registration.
func (p *Provider) OnChange(fn func(Event)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *Provider) notify(ev Event) {
	p.mu.RLock()
	fns := make([]func(Event), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
