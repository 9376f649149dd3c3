package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenRequest is the POST /api/auth/token body.
type tokenRequest struct {
	APIKey string `json:"api_key"`
}

// tokenResponse carries the minted bearer token.
type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleToken exchanges the configured API key for a short-lived HS256
// token. Disabled (404) when no token secret is configured.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.config.Web.TokenSecret == "" {
		writeError(w, http.StatusNotFound, "token auth is not enabled")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.APIKey == "" || req.APIKey != s.config.Web.APIKey {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	token, expiresAt, err := s.mintToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mint token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (s *Server) mintToken() (string, time.Time, error) {
	expiresAt := time.Now().Add(s.config.Web.TokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    "candlecast",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Web.TokenSecret))
	return signed, expiresAt, err
}

// MintToken exposes token minting for the CLI token subcommand.
func (s *Server) MintToken() (string, time.Time, error) {
	return s.mintToken()
}

// authRequired wraps a handler with bearer-token verification. When no
// token secret is configured, auth is disabled and requests pass
// through.
func (s *Server) authRequired(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.Web.TokenSecret == "" {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{},
			func(t *jwt.Token) (interface{}, error) {
				return []byte(s.config.Web.TokenSecret), nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next(w, r)
	}
}
