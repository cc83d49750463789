package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

// SessionCookie describes the session cookie attributes. The same value is used
// to set and to clear the cookie; browsers only drop a cookie when path, domain
// and flags match the ones it was set with.
type SessionCookie struct {
	Name     string
	Path     string
	Domain   string
	MaxAge   time.Duration
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// NewSessionCookie returns the cookie attributes for a deployment.
func NewSessionCookie(maxAge time.Duration, secure bool, sameSite http.SameSite, domain string) SessionCookie {
	return SessionCookie{
		Name:     SessionCookieName,
		Path:     "/",
		Domain:   domain,
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}

func (sc SessionCookie) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     sc.Name,
		Value:    value,
		Path:     sc.Path,
		Domain:   sc.Domain,
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: sc.HTTPOnly,
		Secure:   sc.Secure,
		SameSite: sc.SameSite,
	}
}

// Attach sets the session cookie on the response.
func (sc SessionCookie) Attach(w http.ResponseWriter, token string) {
	http.SetCookie(w, sc.cookie(token, int(sc.MaxAge.Seconds()), time.Now().Add(sc.MaxAge)))
}

// Clear expires the session cookie using the attributes it was set with.
func (sc SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, sc.cookie("", -1, time.Unix(0, 0)))
}

// Extract returns the session token from the request, if present and non-empty.
func (sc SessionCookie) Extract(r *http.Request) (string, bool) {
	c, err := r.Cookie(sc.Name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
