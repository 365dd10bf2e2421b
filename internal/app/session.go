package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pinspot/api/pkg/cookie"
	"github.com/pinspot/api/pkg/id"
	"github.com/pinspot/api/pkg/session"
)

const (
	defaultSessionCookieName = "pinspot.sid"
	defaultSessionMaxAge     = 30 * 24 * time.Hour
	sessionTouchInterval     = time.Minute
)

// SessionConfig configures the session middleware.
//
// Resave persists every loaded session before the response is written, even
// when it was not modified. SaveUninitialized persists a fresh session for
// every request that arrives without one; when false nothing is stored until
// a value is written.
type SessionConfig struct {
	Secret            string
	CookieName        string
	Domain            string
	MaxAge            time.Duration
	Resave            bool
	SaveUninitialized bool
	Secure            bool
}

// SessionManager loads sessions from the signed cookie and persists them
// through the store.
type SessionManager struct {
	store   session.Store
	cookies *cookie.Manager
	logger  *slog.Logger
	cfg     SessionConfig
}

// NewSessionManager validates cfg and builds a manager.
func NewSessionManager(store session.Store, cfg SessionConfig, l *slog.Logger) (*SessionManager, error) {
	if store == nil {
		return nil, session.ErrNotConfigured
	}
	if cfg.Secret == "" {
		return nil, cookie.ErrNoSecret
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultSessionCookieName
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultSessionMaxAge
	}
	return &SessionManager{
		store: store,
		cookies: cookie.New(
			cookie.WithSecret(cfg.Secret),
			cookie.WithDomain(cfg.Domain),
			cookie.WithSecure(cfg.Secure),
		),
		logger: l,
		cfg:    cfg,
	}, nil
}

// Store returns the underlying session store.
func (sm *SessionManager) Store() session.Store { return sm.store }

// load returns the session referenced by the request cookie, or nil when
// there is none. Unknown, expired and tampered tokens count as none.
func (sm *SessionManager) load(ctx context.Context, r *http.Request) (*session.Session, error) {
	token, err := sm.cookies.GetSigned(r, sm.cfg.CookieName)
	if err != nil {
		if errors.Is(err, cookie.ErrNotFound) || errors.Is(err, cookie.ErrBadSig) {
			return nil, nil
		}
		return nil, err
	}
	sess, err := sm.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// create builds an unsaved session for the request.
func (sm *SessionManager) create(r *http.Request) (*session.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	sess := session.New(id.NewULID(), token, time.Now().Add(sm.cfg.MaxAge))
	sess.IP = remoteIP(r)
	sess.UserAgent = r.UserAgent()
	return sess, nil
}

func (sm *SessionManager) persist(ctx context.Context, sess *session.Session) error {
	if sess.IsNew() {
		if err := sm.store.Create(ctx, sess); err != nil {
			return err
		}
		sess.ClearNew()
	} else if err := sm.store.Update(ctx, sess); err != nil {
		return err
	}
	sess.ClearDirty()
	return nil
}

// rotate issues a new token. A stored session is updated right away so the
// old token stops resolving.
func (sm *SessionManager) rotate(ctx context.Context, sess *session.Session) error {
	old := sess.Token
	token, err := generateToken()
	if err != nil {
		return err
	}
	sess.Token = token
	sess.MarkDirty()
	if sess.IsNew() {
		return nil
	}
	if err := sm.store.Update(ctx, sess); err != nil {
		sess.Token = old
		return err
	}
	sess.ClearDirty()
	return nil
}

func (sm *SessionManager) writeCookie(w http.ResponseWriter, sess *session.Session) error {
	return sm.cookies.SetSigned(w, sm.cfg.CookieName, sess.Token, int(time.Until(sess.ExpiresAt).Seconds()))
}

func (sm *SessionManager) clearCookie(w http.ResponseWriter) {
	sm.cookies.Delete(w, sm.cfg.CookieName)
}

// sessionState is the per-request view of the session.
type sessionState struct {
	mgr       *SessionManager
	sess      *session.Session
	loaded    bool
	destroyed bool
}

// flush runs right before the response header is sent.
func (st *sessionState) flush(ctx context.Context, w http.ResponseWriter) {
	sm := st.mgr
	if st.sess == nil {
		if st.destroyed {
			sm.clearCookie(w)
		}
		return
	}
	sess := st.sess
	if !sess.IsDirty() && !sess.IsNew() && !sm.cfg.Resave {
		sm.touch(ctx, sess)
		return
	}
	if sm.cfg.Resave && !sess.IsNew() {
		now := time.Now()
		sess.LastActiveAt = now
		sess.ExpiresAt = now.Add(sm.cfg.MaxAge)
	}
	if err := sm.persist(ctx, sess); err != nil {
		sm.logger.ErrorContext(ctx, "session save failed",
			slog.String("session_id", sess.ID),
			slog.Any("error", err),
		)
		return
	}
	if err := sm.writeCookie(w, sess); err != nil {
		sm.logger.ErrorContext(ctx, "session cookie write failed", slog.Any("error", err))
	}
}

// touch records activity on a clean session at most once per interval.
// The expiry is left alone.
func (sm *SessionManager) touch(ctx context.Context, sess *session.Session) {
	now := time.Now()
	if now.Sub(sess.LastActiveAt) < sessionTouchInterval {
		return
	}
	if err := sm.store.Touch(ctx, sess.ID, now); err != nil {
		sm.logger.DebugContext(ctx, "session touch failed",
			slog.String("session_id", sess.ID),
			slog.Any("error", err),
		)
		return
	}
	sess.LastActiveAt = now
}

// middleware attaches the per-request session state and registers
// the flush hook.
func (sm *SessionManager) middleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			ac, ok := c.(*appContext)
			if !ok {
				return next(c)
			}
			st := &sessionState{mgr: sm}
			ac.session = st
			// Resave touches every session on every request, so it loads
			// eagerly; otherwise loading waits for the first access.
			if sm.cfg.Resave || sm.cfg.SaveUninitialized {
				sess, err := ac.loadSession()
				if err != nil {
					return err
				}
				if sess == nil && sm.cfg.SaveUninitialized {
					if st.sess, err = sm.create(c.Request()); err != nil {
						return err
					}
				}
			}
			ac.rw.OnBeforeWrite(func() { st.flush(c.Request().Context(), ac.rw) })
			return next(c)
		}
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
