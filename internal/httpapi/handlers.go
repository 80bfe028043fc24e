package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/middleware"
	"github.com/rs/zerolog/hlog"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string               `json:"accessToken"`
	User        tokenauth.PublicUser `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type logoutAllResponse struct {
	Message          string `json:"message"`
	DevicesLoggedOut int    `json:"devicesLoggedOut"`
}

type meResponse struct {
	User               any `json:"user"`
	ActiveSessionCount int `json:"activeSessionCount"`
}

type healthResponse struct {
	Status     string  `json:"status"`
	StoreRTTms float64 `json:"storeRTTms"`
}

type rootResponse struct {
	Server  string `json:"server"`
	Version string `json:"version"`
	RunDate string `json:"runDate"`
}

func (s *server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Server:  s.opts.ServerName,
		Version: s.opts.Version,
		RunDate: s.opts.StartedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (s *server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "PONG"})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rtt, err := s.auth.Health(r.Context())
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("health check failed")
		writeError(w, http.StatusServiceUnavailable, "Session store unavailable", codeUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		StoreRTTms: float64(rtt.Microseconds()) / 1000,
	})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	// A malformed body is treated as missing credentials.
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required", codeMissingCredentials)
		return
	}

	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	s.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: res.AccessToken, User: res.User})
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := s.refreshCookie(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Refresh token not found", codeNoRefreshToken)
		return
	}

	res, err := s.auth.Refresh(r.Context(), token)
	if err != nil {
		if tokenauth.IsAuthFailure(err) {
			s.clearRefreshCookie(w)
		}
		s.writeAuthError(w, r, err)
		return
	}

	s.setRefreshCookie(w, res.RefreshToken)
	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: res.AccessToken})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := s.refreshCookie(r); token != "" {
		if err := s.auth.Logout(r.Context(), token); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("logout: revoke failed")
		}
	}
	s.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	payload, _ := middleware.PayloadFromContext(r.Context())

	n, err := s.auth.LogoutAll(r.Context(), payload.UserID)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	s.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, logoutAllResponse{
		Message:          fmt.Sprintf("Logged out from %d device(s)", n),
		DevicesLoggedOut: n,
	})
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	payload, _ := middleware.PayloadFromContext(r.Context())

	n, err := s.auth.GetSessionCount(r.Context(), payload.UserID)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: payload, ActiveSessionCount: n})
}

// writeAuthError maps expected failures to 401 with their code and message.
// Anything else is logged and hidden behind a generic 500.
func (s *server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *tokenauth.AuthError
	if errors.As(err, &authErr) {
		writeError(w, http.StatusUnauthorized, authErr.Message, authErr.Code)
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	writeInternal(w)
}
