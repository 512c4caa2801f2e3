package handler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/wadjakorntonsri/linkpulse/pkg/config"
	"github.com/wadjakorntonsri/linkpulse/pkg/core/domain"
	"github.com/wadjakorntonsri/linkpulse/pkg/ports"
)

const (
	tokenCookie = "admin_token"
	stateCookie = "oauthstate"
	tokenTTL    = 24 * time.Hour
	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type AuthHandler struct {
	auth          ports.AuthService
	oauthConfig   *oauth2.Config
	userInfoURL   string
	frontendURL   string
	allowedEmails []string
	isProduction  bool
}

type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// LoginRequest is the username/password sign-in payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func NewAuthHandler(cfg *config.Config, auth ports.AuthService) *AuthHandler {
	h := &AuthHandler{
		auth:          auth,
		userInfoURL:   userInfoURL,
		allowedEmails: cfg.AdminEmails,
		isProduction:  cfg.IsProduction(),
	}
	if len(cfg.FrontendURL) > 0 {
		h.frontendURL = cfg.FrontendURL[0]
	}
	if cfg.GoogleEnabled() {
		h.oauthConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		}
	}
	return h
}

// Login checks a username and password and sets the admin cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, admin, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			zerolog.Ctx(r.Context()).Warn().Str("username", req.Username).Msg("Failed admin login")
		}
		writeError(w, r, err)
		return
	}

	h.setTokenCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"role":    admin.Role,
		"token":   token,
	})
}

// Check reports whether the request carries a valid admin token.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	id, ok := domain.IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": true, "user": id})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Logged out successfully"})
}

// GoogleLogin starts the OAuth flow.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := h.generateStateOauthCookie(w)
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback exchanges the code and signs in allowlisted emails as admin.
// An empty allowlist admits nobody.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	oauthState, err := r.Cookie(stateCookie)
	if err != nil || r.FormValue("state") != oauthState.Value {
		logger.Warn().Msg("Google callback with missing or mismatched oauth state")
		writeBadRequest(w, "invalid oauth state")
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		logger.Error().Err(err).Msg("Google code exchange failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "code exchange failed"})
		return
	}

	resp, err := h.oauthConfig.Client(r.Context(), token).Get(h.userInfoURL)
	if err != nil {
		logger.Error().Err(err).Msg("Failed getting Google user info")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed getting user info"})
		return
	}
	defer resp.Body.Close()

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		logger.Error().Err(err).Msg("Failed decoding Google user info")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed decoding user info"})
		return
	}

	if !user.VerifiedEmail || !h.emailAllowed(user.Email) {
		logger.Warn().Str("email", user.Email).Msg("Google sign-in rejected")
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Access denied: your email is not in the allowlist"})
		return
	}

	signed, err := h.auth.IssueToken(user.Email, domain.RoleAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setTokenCookie(w, signed)

	logger.Info().Str("email", user.Email).Msg("Google sign-in successful")
	http.Redirect(w, r, h.frontendURL+"/admin", http.StatusTemporaryRedirect)
}

func (h *AuthHandler) emailAllowed(email string) bool {
	for _, allowed := range h.allowedEmails {
		if strings.EqualFold(allowed, email) {
			return true
		}
	}
	return false
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Expires:  time.Now().Add(tokenTTL),
		MaxAge:   int(tokenTTL / time.Second),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}
