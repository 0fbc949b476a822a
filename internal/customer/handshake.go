package customer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/atelierline/storefront/internal/commerce"
	"github.com/atelierline/storefront/internal/config"
	"github.com/atelierline/storefront/internal/cookie"
	"github.com/atelierline/storefront/internal/crypto"
	"github.com/atelierline/storefront/internal/log"
	"github.com/atelierline/storefront/internal/storage"
	"github.com/segmentio/ksuid"
	"golang.org/x/oauth2"
)

// Failure modes of the callback, each mapped to its own user-facing message
// by the handler layer
var (
	// ErrMissingParams: the provider redirected back without code or state
	// and without an error parameter
	ErrMissingParams = errors.New("missing required parameters in login callback")

	// ErrNoStoredState: no login attempt is in progress for this browser
	ErrNoStoredState = errors.New("no stored login state found")

	// ErrStateMismatch: the returned state does not match the one generated
	// at initiation. This is the CSRF check; it must never silently pass.
	ErrStateMismatch = errors.New("state parameter mismatch")

	// ErrVerifierMissing: state checked out but the PKCE verifier is gone
	ErrVerifierMissing = errors.New("code verifier not found")
)

// ProviderError is an error the identity provider reported via the callback
// redirect (error / error_description query parameters)
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("login failed: %s (%s)", e.Description, e.Code)
	}
	return fmt.Sprintf("login failed: %s", e.Code)
}

// stateCookiePayload is the signed contents of the auth state cookie
type stateCookiePayload struct {
	State string `json:"state"`
}

// Controller drives the authorization-code + PKCE handshake with the
// platform's customer-account identity provider.
//
// The generated state is written to two independent places before the
// browser navigates away: an HMAC-signed cookie and the server-side session
// store (keyed by the state value itself). Some browser configurations drop
// one of the two across the redirect boundary; either surviving copy lets
// the callback be validated. The PKCE verifier lives only in the store.
type Controller struct {
	store      storage.Storage
	commerce   *commerce.Client
	oauth      oauth2.Config
	signer     crypto.TokenSigner
	logoutURL  string
	sessionTTL time.Duration
}

// NewController creates the handshake controller
func NewController(cfg config.AuthConfig, store storage.Storage, commerceClient *commerce.Client, signingKey []byte, sessionTTL time.Duration) *Controller {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email"}
	}

	return &Controller{
		store:    store,
		commerce: commerceClient,
		oauth: oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: cfg.TokenURL,
			},
		},
		signer:     crypto.NewTokenSigner(signingKey, cookie.AuthStateTTL),
		logoutURL:  cfg.LogoutURL,
		sessionTTL: sessionTTL,
	}
}

// StartLogin generates the handshake secrets, persists them, and returns
// the authorization URL to redirect the browser to. Both persistence writes
// must succeed before any URL is returned: a flow whose secrets did not
// reach durable storage cannot be validated on return and must not start.
func (c *Controller) StartLogin(ctx context.Context, w http.ResponseWriter) (string, error) {
	state, err := crypto.GenerateStateToken()
	if err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	now := time.Now()
	if err := c.store.StoreHandshake(ctx, state, storage.Handshake{
		State:     state,
		Verifier:  verifier,
		CreatedAt: now,
		ExpiresAt: now.Add(storage.HandshakeTTL),
	}); err != nil {
		return "", fmt.Errorf("persisting login state: %w", err)
	}

	signed, err := c.signer.Sign(stateCookiePayload{State: state})
	if err != nil {
		return "", fmt.Errorf("signing state cookie: %w", err)
	}
	cookie.SetAuthState(w, signed)

	authURL := c.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	log.LogInfoWithFields("customer", "Starting login handshake", map[string]any{
		"redirect": c.oauth.RedirectURL,
	})

	return authURL, nil
}

// HandleCallback validates the provider's redirect and completes the token
// exchange. The stored state and verifier are consumed before any check
// runs: one initiation buys at most one validation attempt, pass or fail.
func (c *Controller) HandleCallback(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, *storage.CustomerSession, error) {
	query := r.URL.Query()

	code := query.Get("code")
	receivedState := query.Get("state")

	if errCode := query.Get("error"); errCode != "" {
		// Still burn any stored secrets for this attempt
		c.consumeStored(ctx, w, r, receivedState)
		return "", nil, &ProviderError{
			Code:        errCode,
			Description: query.Get("error_description"),
		}
	}

	if code == "" || receivedState == "" {
		c.consumeStored(ctx, w, r, receivedState)
		return "", nil, ErrMissingParams
	}

	cookieState, handshake := c.consumeStored(ctx, w, r, receivedState)

	storedState := cookieState
	if storedState == "" && handshake != nil {
		storedState = handshake.State
	}

	if storedState == "" {
		return "", nil, ErrNoStoredState
	}
	if storedState != receivedState {
		log.LogWarnWithFields("customer", "State mismatch in login callback", nil)
		return "", nil, ErrStateMismatch
	}
	if handshake == nil || handshake.Verifier == "" {
		return "", nil, ErrVerifierMissing
	}

	token, err := c.Exchange(ctx, code, handshake.Verifier)
	if err != nil {
		return "", nil, err
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		// Provider sent no expires_in; fall back to the configured TTL
		expiresAt = time.Now().Add(c.sessionTTL)
	}

	session := &storage.CustomerSession{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    time.Now(),
	}

	// Best-effort profile fetch; a missing profile never fails the login
	if customer, err := c.commerce.Customer(ctx, token.AccessToken); err != nil {
		log.LogWarnWithFields("customer", "Profile fetch after login failed", map[string]any{
			"error": err.Error(),
		})
	} else {
		session.Profile = &storage.CustomerProfile{
			ID:        customer.ID,
			Email:     customer.Email,
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
		}
	}

	sessionID := ksuid.New().String()
	if err := c.store.PutSession(ctx, sessionID, session); err != nil {
		return "", nil, fmt.Errorf("persisting session: %w", err)
	}

	log.LogInfoWithFields("customer", "Login completed", map[string]any{
		"expires_at": session.ExpiresAt,
	})

	return sessionID, session, nil
}

// Exchange trades an authorization code plus PKCE verifier for tokens at
// the token endpoint. The customer-account client is public: no client
// secret is involved, the verifier is the proof.
func (c *Controller) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := c.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		// Surface the token endpoint's message verbatim; the handler shows
		// it to the user
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// TokenExchange serves the JSON token endpoint. API clients run the same
// single-use state validation as the browser callback, except the verifier
// may arrive in the request body when the client held it itself.
func (c *Controller) TokenExchange(ctx context.Context, code, state, verifier string) (*oauth2.Token, error) {
	if code == "" {
		return nil, ErrMissingParams
	}

	if state != "" {
		if handshake, err := c.store.ConsumeHandshake(ctx, state); err == nil && handshake.Verifier != "" {
			verifier = handshake.Verifier
		}
	}
	if verifier == "" {
		return nil, ErrVerifierMissing
	}

	return c.Exchange(ctx, code, verifier)
}

// CurrentSession resolves the request's session cookie to a live session.
// Expired sessions are destroyed by the store on read, so a stale cookie
// simply comes back unauthenticated.
func (c *Controller) CurrentSession(ctx context.Context, r *http.Request) (string, *storage.CustomerSession, error) {
	sessionID, err := cookie.GetSession(r)
	if err != nil || sessionID == "" {
		return "", nil, storage.ErrSessionNotFound
	}

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	return sessionID, session, nil
}

// Logout destroys the stored session and clears the cookie, returning the
// URL to send the browser to afterwards
func (c *Controller) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) string {
	if sessionID, err := cookie.GetSession(r); err == nil && sessionID != "" {
		if err := c.store.DeleteSession(ctx, sessionID); err != nil {
			log.LogWarnWithFields("customer", "Failed to delete session on logout", map[string]any{
				"error": err.Error(),
			})
		}
	}
	cookie.ClearSession(w)

	if c.logoutURL != "" {
		return c.logoutURL
	}
	return "/"
}

// SessionTTL is the max-age used for the session cookie
func (c *Controller) SessionTTL() time.Duration {
	return c.sessionTTL
}

// consumeStored reads back the dual-written state and the stored handshake
// and deletes both, regardless of what the caller decides afterwards. The
// cookie value only counts when its signature verifies.
func (c *Controller) consumeStored(ctx context.Context, w http.ResponseWriter, r *http.Request, receivedState string) (string, *storage.Handshake) {
	var cookieState string
	if raw, err := cookie.GetAuthState(r); err == nil && raw != "" {
		var payload stateCookiePayload
		if err := c.signer.Verify(raw, &payload); err != nil {
			log.LogWarnWithFields("customer", "Discarding invalid state cookie", map[string]any{
				"error": err.Error(),
			})
		} else {
			cookieState = payload.State
		}
	}
	cookie.ClearAuthState(w)

	var handshake *storage.Handshake
	// The store is keyed by state; consult it under whichever state value
	// we have. Consuming deletes the record either way.
	lookupState := cookieState
	if lookupState == "" {
		lookupState = receivedState
	}
	if lookupState != "" {
		hs, err := c.store.ConsumeHandshake(ctx, lookupState)
		if err == nil {
			handshake = hs
		} else if !errors.Is(err, storage.ErrHandshakeNotFound) {
			log.LogWarnWithFields("customer", "Handshake lookup failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	return cookieState, handshake
}
