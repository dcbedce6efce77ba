package httpapp

import (
	"net/http"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister godoc
//
//	@Summary		Register a user
//	@Description	Create an account. Email is case-insensitive and must be unique, as must the username.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest		true	"Account details"
//	@Success		201		{object}	map[string]any		"Message and created user"
//	@Failure		400		{object}	map[string]string	"Validation error"
//	@Failure		409		{object}	map[string]string	"Email or username taken"
//	@Router			/api/auth/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "register", s.cfg.RateLimits.RegisterPerMinute) {
		return
	}
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	user, err := s.svc.Auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered",
		"user":    user,
	})
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchange email and password for a bearer token.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest		true	"Credentials"
//	@Success		200		{object}	map[string]any		"Token, expiry and user"
//	@Failure		401		{object}	map[string]string	"Wrong password"
//	@Failure		404		{object}	map[string]string	"Unknown email"
//	@Router			/api/auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "login", s.cfg.RateLimits.LoginPerMinute) {
		return
	}
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	tok, user, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "login successful",
		"token":      tok.Value,
		"expires_at": tok.ExpiresAt,
		"user":       user,
	})
}
