package cookie

import (
	"net/http"
	"time"

	"github.com/atelierline/storefront/internal/envutil"
	"github.com/atelierline/storefront/internal/log"
)

// Common cookie names used by the storefront
const (
	SessionCookie   = "storefront_session"
	CartCookie      = "storefront_cart"
	AuthStateCookie = "auth_state"
)

// AuthStateTTL bounds how long a login attempt can sit at the identity
// provider before the state cookie expires
const AuthStateTTL = 5 * time.Minute

// SetSession sets the customer session cookie
func SetSession(w http.ResponseWriter, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogDebugWithFields("cookie", "Session cookie set", map[string]any{
		"maxAge":   maxAge.String(),
		"secure":   secure,
		"sameSite": "Lax",
	})
}

// SetCart sets the cart identifier cookie. Carts outlive sessions, so the
// cookie gets a long expiry.
func SetCart(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
	})
}

// SetAuthState stores the signed OAuth state across the redirect boundary.
// SameSite must stay Lax: the callback arrives as a cross-site navigation
// from the identity provider and Strict cookies would not be sent.
func SetAuthState(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthStateCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(AuthStateTTL.Seconds()),
	})
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// ClearSession removes the session cookie
func ClearSession(w http.ResponseWriter) {
	Clear(w, SessionCookie)
	log.LogDebugWithFields("cookie", "Session cookie cleared", nil)
}

// ClearAuthState removes the auth state cookie
func ClearAuthState(w http.ResponseWriter) {
	Clear(w, AuthStateCookie)
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetSession retrieves the session cookie value
func GetSession(r *http.Request) (string, error) {
	return Get(r, SessionCookie)
}

// GetCart retrieves the cart cookie value
func GetCart(r *http.Request) (string, error) {
	return Get(r, CartCookie)
}

// GetAuthState retrieves the auth state cookie value
func GetAuthState(r *http.Request) (string, error) {
	return Get(r, AuthStateCookie)
}
