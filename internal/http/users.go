package httpapp

import (
	"net/http"

	"github.com/alphabot-ai/microblog/internal/service"

	"github.com/gorilla/mux"
)

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// handleListUsers godoc
//
//	@Summary	List users
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]any	"users"
//	@Router		/api/users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// handleGetUser godoc
//
//	@Summary	Get a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	map[string]any		"user"
//	@Failure	404	{object}	map[string]string	"User not found"
//	@Router		/api/users/{id} [get]
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// handleUpdateUser godoc
//
//	@Summary		Update your profile
//	@Description	Change username or email. Passwords go through /password.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string				true	"User ID"
//	@Param			request	body		updateUserRequest	true	"Fields to change"
//	@Success		200		{object}	map[string]any		"user"
//	@Failure		403		{object}	map[string]string	"Not your account"
//	@Failure		409		{object}	map[string]string	"Email or username taken"
//	@Router			/api/users/{id} [put]
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	user, err := s.svc.Users.Update(r.Context(), mux.Vars(r)["id"], acting(r), service.UserUpdate{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// handleChangePassword godoc
//
//	@Summary	Change your password
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"User ID"
//	@Param		request	body		changePasswordRequest	true	"Current and new password"
//	@Success	200		{object}	map[string]string		"Success message"
//	@Failure	401		{object}	map[string]string		"Current password wrong"
//	@Failure	403		{object}	map[string]string		"Not your account"
//	@Router		/api/users/{id}/password [put]
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.svc.Users.ChangePassword(r.Context(), mux.Vars(r)["id"], acting(r), req.CurrentPassword, req.NewPassword); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

// handleDeleteUser godoc
//
//	@Summary		Delete your account
//	@Description	Removes the account and, when enabled, its posts and comments.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string				true	"User ID"
//	@Success		200	{object}	map[string]string	"Success message"
//	@Failure		403	{object}	map[string]string	"Not your account"
//	@Router			/api/users/{id} [delete]
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Users.Delete(r.Context(), mux.Vars(r)["id"], acting(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
