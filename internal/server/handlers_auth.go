package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ostapkoval/startrade/internal/clients/telegram"
	"github.com/ostapkoval/startrade/internal/common"
)

// signJWT creates a signed HMAC-SHA256 session token for a Telegram user.
func signJWT(userID, firstName, username, languageCode string, config *common.AuthConfig) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":           userID,
		"first_name":    firstName,
		"username":      username,
		"language_code": languageCode,
		"iss":           "startrade-server",
		"iat":           now.Unix(),
		"exp":           now.Add(config.GetTokenExpiry()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}

// validateJWT parses and validates a session token string using the given secret.
func validateJWT(tokenString string, secret []byte) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

type authResponse struct {
	Token     string   `json:"token"`
	ExpiresIn int      `json:"expires_in"`
	User      authUser `json:"user"`
}

type authUser struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// handleAuthTelegram handles POST /api/auth/telegram. The Mini App sends its
// raw initData; a verified launch yields a session token scoped to the
// Telegram user id. An empty initData falls back to the shared demo user when
// demo access is enabled.
func (s *Server) handleAuthTelegram(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		InitData string `json:"init_data"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	cfg := &s.app.Config.Auth

	if req.InitData == "" {
		if !cfg.AllowDemo {
			WriteErrorWithCode(w, http.StatusUnauthorized, "Telegram init data is required", "init_data_required")
			return
		}
		s.issueToken(w, authUser{ID: common.DemoUserID, FirstName: "Demo"}, cfg)
		return
	}

	if s.app.Validator == nil {
		WriteError(w, http.StatusServiceUnavailable, "Telegram authentication is not configured")
		return
	}

	parsed, err := s.app.Validator.Validate(req.InitData)
	if err != nil {
		switch {
		case errors.Is(err, telegram.ErrExpiredInitData):
			WriteErrorWithCode(w, http.StatusUnauthorized, "Init data expired", "init_data_expired")
		case errors.Is(err, telegram.ErrHashMismatch), errors.Is(err, telegram.ErrMissingHash):
			WriteErrorWithCode(w, http.StatusUnauthorized, "Init data signature invalid", "init_data_invalid")
		default:
			WriteError(w, http.StatusBadRequest, "Malformed init data")
		}
		return
	}
	if parsed.User == nil {
		WriteError(w, http.StatusBadRequest, "Init data has no user")
		return
	}

	user := authUser{
		ID:           strconv.FormatInt(parsed.User.ID, 10),
		FirstName:    parsed.User.FirstName,
		Username:     parsed.User.Username,
		LanguageCode: parsed.User.LanguageCode,
	}
	s.issueToken(w, user, cfg)
}

func (s *Server) issueToken(w http.ResponseWriter, user authUser, cfg *common.AuthConfig) {
	token, err := signJWT(user.ID, user.FirstName, user.Username, user.LanguageCode, cfg)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign session token")
		WriteError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	s.logger.Info().Str("user", user.ID).Msg("Session issued")

	WriteJSON(w, http.StatusOK, authResponse{
		Token:     token,
		ExpiresIn: int(cfg.GetTokenExpiry().Seconds()),
		User:      user,
	})
}
