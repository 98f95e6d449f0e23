package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wlan-sim/wlan-sim-pro/internal/auth"
	"github.com/wlan-sim/wlan-sim-pro/pkg/wlan"
)

// ========== Auth handlers ==========

// HandleLogin exchanges operator credentials for a token pair
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required,max=64"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.authenticator.Authenticate(req.Username, req.Password); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.Error().Err(err).Msg("Authentication failed")
		}
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	accessToken, refreshToken, err := s.auth.GenerateTokenPair(req.Username)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	log.Info().Str("username", req.Username).Msg("Operator logged in")

	s.respondTokens(w, accessToken, refreshToken)
}

// HandleRefresh handles token refresh
func (s *RESTServer) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, refreshToken, err := s.auth.RefreshToken(req.RefreshToken)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.respondTokens(w, accessToken, refreshToken)
}

func (s *RESTServer) respondTokens(w http.ResponseWriter, accessToken, refreshToken string) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(s.config.JWT.AccessTokenTTL.Seconds()),
		"token_type":    "Bearer",
	})
}

// HandleGetCurrentOperator returns the authenticated operator
func (s *RESTServer) HandleGetCurrentOperator(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "missing claims")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"username":   claims.Username,
		"session_id": claims.SessionID,
		"expires_at": claims.ExpiresAt,
	})
}

// ========== Simulation metadata ==========

// HandleListDisciplines lists the supported medium access disciplines
func (s *RESTServer) HandleListDisciplines(w http.ResponseWriter, r *http.Request) {
	type discipline struct {
		Name  wlan.Discipline `json:"name"`
		Label string          `json:"label"`
	}

	out := make([]discipline, 0, len(wlan.Disciplines))
	for _, d := range wlan.Disciplines {
		out = append(out, discipline{Name: d, Label: d.Label()})
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"disciplines": out,
	})
}

// HandleGetConfig returns the default simulation parameters
func (s *RESTServer) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	phy, err := s.config.Simulation.PHY()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"simulation":   s.config.Simulation,
		"dataRateMbps": phy.DataRateMbps(),
	})
}

// ========== Service ==========

// HandleHealth health check handler
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// HandleRoot root handler
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": s.config.Server.Name,
		"version": s.config.Server.Version,
		"health":  "/api/v1/health",
		"message": "Log in at /api/v1/auth/login and submit scenarios to /api/v1/scenarios",
	})
}
