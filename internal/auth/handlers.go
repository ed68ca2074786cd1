package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/joestump/frequency/internal/identity"
	"github.com/joestump/frequency/internal/store"
	"github.com/joestump/frequency/internal/view"
)

// MinPasswordLength is the shortest password sign-up accepts.
const MinPasswordLength = 8

const (
	cookieState        = "__auth_state"
	cookieCodeVerifier = "__auth_pkce"
	cookieRedirect     = "__auth_redirect"
)

var (
	errShortPassword = fmt.Errorf("%w: password must be at least %d characters", store.ErrValidation, MinPasswordLength)
	errNoIdentifier  = fmt.Errorf("%w: email or phone is required", store.ErrValidation)
)

// HandlerOptions configures NewHandlers.
type HandlerOptions struct {
	// AdminEmail is granted the admin role on first sign-in.
	AdminEmail string
	Insecure   bool
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// OnLogout is called with the signed-out user's id after the session
	// is destroyed.
	OnLogout func(userID string)
}

// Handlers serves sign-up, sign-in and sign-out. Provider is nil when no
// OIDC identity provider is configured.
type Handlers struct {
	provider *Provider
	sessions *scs.SessionManager
	users    *store.UserStore
	opts     HandlerOptions
	logger   *log.Logger
}

func NewHandlers(p *Provider, sm *scs.SessionManager, us *store.UserStore, opts HandlerOptions, logger *log.Logger) *Handlers {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Handlers{provider: p, sessions: sm, users: us, opts: opts, logger: logger.WithPrefix("auth")}
}

// Routes mounts the auth endpoints on r, which must run inside
// sessions.LoadAndSave.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/signup", h.SignUp)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	if h.provider != nil {
		r.Get("/oidc/login", h.OIDCLogin)
		r.Get("/oidc/callback", h.OIDCCallback)
	}
}

// CredentialsRequest is the body of POST /auth/signup and /auth/login.
// Exactly one of Email and Phone is expected.
type CredentialsRequest struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// SignUp creates a password account and signs it in.
// POST /auth/signup
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Password) < MinPasswordLength {
		writeError(w, errShortPassword)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.opts.BcryptCost)
	if err != nil {
		h.logger.Error("hashing password", "err", err)
		writeError(w, store.ErrStore)
		return
	}
	user, err := h.users.CreateWithPassword(r.Context(), store.NewCredentialUser{
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
	}, h.opts.AdminEmail)
	if err != nil {
		writeError(w, err)
		return
	}
	if !h.start(w, r, user) {
		return
	}
	writeJSON(w, http.StatusCreated, view.NewMe(user))
}

// Login signs in with email or phone and password.
// POST /auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decode(w, r, &req) {
		return
	}
	var (
		user *store.User
		err  error
	)
	switch email, phone := strings.TrimSpace(req.Email), strings.TrimSpace(req.Phone); {
	case email != "":
		user, err = h.users.GetByEmail(r.Context(), strings.ToLower(email))
	case phone != "":
		user, err = h.users.GetByPhone(r.Context(), phone)
	default:
		writeError(w, errNoIdentifier)
		return
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, err)
		return
	}
	if user == nil || !user.PasswordHash.Valid ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, view.ErrorBody{Error: "wrong email, phone or password", Code: "INVALID_CREDENTIALS"})
		return
	}
	if !h.start(w, r, user) {
		return
	}
	writeJSON(w, http.StatusOK, view.NewMe(user))
}

// Logout ends the session.
// POST /auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessions.GetString(r.Context(), SessionUserIDKey)
	if err := h.sessions.Destroy(r.Context()); err != nil {
		h.logger.Error("destroying session", "err", err)
		writeError(w, store.ErrStore)
		return
	}
	if userID != "" && h.opts.OnLogout != nil {
		h.opts.OnLogout(userID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// OIDCLogin starts the authorization code flow with PKCE.
// GET /auth/oidc/login?redirect=/somewhere
func (h *Handlers) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	state, err := GenerateState()
	if err != nil {
		writeError(w, store.ErrStore)
		return
	}
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		writeError(w, store.ErrStore)
		return
	}
	h.setPreAuthCookie(w, cookieState, state)
	h.setPreAuthCookie(w, cookieCodeVerifier, verifier)
	h.setPreAuthCookie(w, cookieRedirect, localRedirect(r.URL.Query().Get("redirect")))

	http.Redirect(w, r, h.provider.AuthCodeURL(state, challenge), http.StatusFound)
}

// OIDCCallback completes the flow, upserts the profile and signs it in.
// GET /auth/oidc/callback
func (h *Handlers) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(cookieState)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, view.ErrorBody{Error: "invalid sign-in state", Code: "INVALID_STATE"})
		return
	}
	verifier, err := r.Cookie(cookieCodeVerifier)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, view.ErrorBody{Error: "missing code verifier", Code: "INVALID_STATE"})
		return
	}

	claims, err := h.provider.Identify(r.Context(), r.URL.Query().Get("code"), verifier.Value)
	if err != nil {
		h.logger.Warn("oidc sign-in failed", "err", err)
		writeError(w, identity.ErrNotAuthenticated)
		return
	}
	user, err := h.users.Upsert(r.Context(), claims.Issuer, claims.Subject, claims.Email, claims.Name, h.opts.AdminEmail)
	if err != nil {
		writeError(w, err)
		return
	}
	if !h.start(w, r, user) {
		return
	}

	redirect := "/"
	if c, err := r.Cookie(cookieRedirect); err == nil {
		redirect = localRedirect(c.Value)
	}
	clearCookie(w, cookieState)
	clearCookie(w, cookieCodeVerifier)
	clearCookie(w, cookieRedirect)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// start binds user to a fresh session token.
func (h *Handlers) start(w http.ResponseWriter, r *http.Request, user *store.User) bool {
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		h.logger.Error("renewing session", "err", err)
		writeError(w, store.ErrStore)
		return false
	}
	h.sessions.Put(r.Context(), SessionUserIDKey, user.ID)
	h.logger.Info("signed in", "user", user.ID, "provider", user.Provider)
	return true
}

// localRedirect keeps post-login redirects on this site.
func localRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", store.ErrValidation))
		return false
	}
	return true
}

func (h *Handlers) setPreAuthCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   !h.opts.Insecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}
