package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/atelierline/storefront/internal/cookie"
	"github.com/atelierline/storefront/internal/customer"
	jsonwriter "github.com/atelierline/storefront/internal/json"
	"github.com/atelierline/storefront/internal/log"
)

// AuthHandlers owns the customer login flow endpoints
type AuthHandlers struct {
	customers *customer.Controller
	pages     *PageHandlers
}

func NewAuthHandlers(customers *customer.Controller, pages *PageHandlers) *AuthHandlers {
	return &AuthHandlers{
		customers: customers,
		pages:     pages,
	}
}

// LoginHandler starts the authorization-code flow and sends the browser to
// the identity provider
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	// Already signed in, nothing to do
	if _, _, err := h.customers.CurrentSession(r.Context(), r); err == nil {
		http.Redirect(w, r, "/account", http.StatusFound)
		return
	}

	authURL, err := h.customers.StartLogin(r.Context(), w)
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to start login", map[string]any{
			"error": err.Error(),
		})
		h.pages.renderError(w, r, http.StatusInternalServerError, "Sign-in could not be started. Please try again.")
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// CallbackHandler finishes the flow when the identity provider redirects
// back. Success sets the session cookie and lands on the account page;
// failure renders the callback status page with a customer-readable reason.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, _, err := h.customers.HandleCallback(r.Context(), w, r)
	if err != nil {
		h.renderCallbackFailure(w, r, err)
		return
	}

	cookie.SetSession(w, sessionID, h.customers.SessionTTL())
	http.Redirect(w, r, "/account", http.StatusFound)
}

func (h *AuthHandlers) renderCallbackFailure(w http.ResponseWriter, r *http.Request, err error) {
	log.LogWarnWithFields("auth", "Login callback failed", map[string]any{
		"error": err.Error(),
	})

	message := "Sign-in failed. Please try again."
	var provErr *customer.ProviderError
	switch {
	case errors.As(err, &provErr):
		message = provErr.Error()
	case errors.Is(err, customer.ErrMissingParams):
		message = "The sign-in response was missing required parameters."
	case errors.Is(err, customer.ErrStateMismatch),
		errors.Is(err, customer.ErrNoStoredState):
		message = "This sign-in attempt could not be verified. Please start again."
	}

	renderPage(w, http.StatusBadRequest, "callback", CallbackPageData{
		BasePageData: h.pages.base(r, "Sign in"),
		Succeeded:    false,
		Message:      message,
	})
}

// LogoutHandler destroys the session and sends the browser to the provider
// logout when one is configured
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteMethodNotAllowed(w, "Method not allowed")
		return
	}

	target := h.customers.Logout(r.Context(), w, r)
	http.Redirect(w, r, target, http.StatusFound)
}

// tokenRequest is the JSON body of the API token endpoint
type tokenRequest struct {
	Code         string `json:"code"`
	State        string `json:"state"`
	CodeVerifier string `json:"codeVerifier"`
}

// tokenResponse mirrors the provider's token payload for API clients
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// TokenHandler is the JSON token exchange endpoint for API clients that run
// the redirect dance themselves
func (h *AuthHandlers) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonwriter.WriteMethodNotAllowed(w, "Method not allowed")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeTokenError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	token, err := h.customers.TokenExchange(r.Context(), req.Code, req.State, req.CodeVerifier)
	if err != nil {
		log.LogWarnWithFields("auth", "API token exchange failed", map[string]any{
			"error": err.Error(),
		})
		switch {
		case errors.Is(err, customer.ErrMissingParams), errors.Is(err, customer.ErrVerifierMissing):
			writeTokenError(w, http.StatusBadRequest, "invalid_request")
		default:
			writeTokenError(w, http.StatusUnauthorized, "invalid_grant")
		}
		return
	}

	resp := tokenResponse{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		resp.ExpiresIn = int64(time.Until(token.Expiry).Seconds())
	}
	if scope, ok := token.Extra("scope").(string); ok {
		resp.Scope = scope
	}

	jsonwriter.WriteResponse(w, http.StatusOK, resp)
}

func writeTokenError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
