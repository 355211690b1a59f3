package httpmiddleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionCookie names the cookie that identifies a shopper's cart.
const DefaultSessionCookie = "cart_session"

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	// CookieName defaults to DefaultSessionCookie.
	CookieName string
	// MaxAge of the cookie; zero makes it a browser-session cookie.
	MaxAge time.Duration
	Secure bool
}

func (cfg SessionConfig) cookieName() string {
	if cfg.CookieName == "" {
		return DefaultSessionCookie
	}
	return cfg.CookieName
}

type sessionKey struct{}

// SessionFromContext returns the session id stored by Session, or "".
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Session reads the shopper's session id from its cookie, issuing a new
// random id when the cookie is missing or malformed. The cookie is rewritten
// on every request so its expiry slides.
func Session(cfg SessionConfig) Middleware {
	name := cfg.cookieName()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(name); err == nil {
				if u, err := uuid.Parse(c.Value); err == nil {
					id = u.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     name,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.MaxAge / time.Second),
				Secure:   cfg.Secure,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
		})
	}
}

// SessionKey is a RateLimitConfig.KeyFunc that limits per cart session,
// falling back to the client address for requests without one. It reads
// DefaultSessionCookie; use SessionKeyFor when the cookie is renamed.
func SessionKey(r *http.Request) string {
	return sessionKeyFrom(r, DefaultSessionCookie)
}

// SessionKeyFor returns a SessionKey reading the cookie configured in cfg.
func SessionKeyFor(cfg SessionConfig) func(*http.Request) string {
	name := cfg.cookieName()
	return func(r *http.Request) string {
		return sessionKeyFrom(r, name)
	}
}

func sessionKeyFrom(r *http.Request, cookie string) string {
	if c, err := r.Cookie(cookie); err == nil {
		if u, err := uuid.Parse(c.Value); err == nil {
			return "session:" + u.String()
		}
	}
	return "ip:" + clientIP(r)
}
