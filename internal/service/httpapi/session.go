package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// HeaderSessionID позволяет клиенту явно передать идентификатор корзины.
	HeaderSessionID = "X-Session-ID"
	// CookieSession — cookie с идентификатором корзины браузера.
	CookieSession = "cart_session"

	sessionCookieMaxAge = 30 * 24 * time.Hour
	maxSessionIDLength  = 128
)

type sessionKey struct{}

// withSession определяет сессию корзины по заголовку или cookie.
// Если сессии нет, выдаёт новую и ставит cookie.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimSpace(r.Header.Get(HeaderSessionID))
		if sessionID == "" {
			if c, err := r.Cookie(CookieSession); err == nil {
				sessionID = strings.TrimSpace(c.Value)
			}
		}
		if sessionID == "" || len(sessionID) > maxSessionIDLength {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     CookieSession,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(sessionCookieMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(HeaderSessionID, sessionID)

		ctx := context.WithValue(r.Context(), sessionKey{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
