package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/glyscope/glyscope/internal/server"
)

// Credentials are the configured operator login. PasswordHash is a
// bcrypt hash; plaintext passwords never appear in configuration.
type Credentials struct {
	Username     string
	PasswordHash string
}

// HashPassword creates a bcrypt hash for storing in configuration.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Handler serves the login endpoint and guards the rest of the API.
type Handler struct {
	creds  Credentials
	tokens *TokenService
	logger *zap.Logger
}

func NewHandler(creds Credentials, tokens *TokenService, logger *zap.Logger) *Handler {
	return &Handler{creds: creds, tokens: tokens, logger: logger}
}

// RegisterRoutes mounts the auth endpoints.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/login", h.handleLogin)
}

// Middleware returns the bearer-token guard for API routes.
func (h *Handler) Middleware() func(http.Handler) http.Handler {
	return TokenMiddleware(h.tokens)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}

	if req.Username != h.creds.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.creds.PasswordHash), []byte(req.Password)) != nil {
		h.logger.Warn("failed login attempt", zap.String("username", req.Username))
		server.Unauthorized(w, "invalid credentials", r.URL.Path)
		return
	}

	token, err := h.tokens.IssueAccessToken(req.Username)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		server.InternalError(w, "could not issue token", r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.AccessTokenTTL().Seconds()),
	})
}
