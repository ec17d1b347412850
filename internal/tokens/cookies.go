package tokens

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// SetCookies attaches both tokens. Call only after the refresh token is persisted.
func (m *Manager) SetCookies(w http.ResponseWriter, p Pair) {
	http.SetCookie(w, m.cookie(AccessCookie, p.AccessToken, m.cfg.AccessTTL))
	http.SetCookie(w, m.cookie(RefreshCookie, p.RefreshToken, m.cfg.RefreshTTL))
}

// ClearCookies expires both cookies with the same attributes they were set with.
func (m *Manager) ClearCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := m.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (m *Manager) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl / time.Second)
		c.Expires = m.now().Add(ttl)
	}
	return c
}

// FromRequest returns the named cookie's value, or "" when it is absent.
func FromRequest(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
