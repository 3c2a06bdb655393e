package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookie describes the workflow session id cookie.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Set writes id as the session cookie.
func (c SessionCookie) Set(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Rotate issues a fresh session id, abandoning whatever workflow state the
// previous id carried.
func (c SessionCookie) Rotate(w http.ResponseWriter) string {
	id := uuid.NewString()
	c.Set(w, id)
	return id
}

// Session makes sure every request carries a workflow session id cookie and
// exposes it through SessionIDFromContext.
func Session(cookie SessionCookie) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cookie.Name); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
			}
			cookie.Set(w, id)
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}
