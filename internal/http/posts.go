package httpapp

import (
	"net/http"

	"github.com/gorilla/mux"
)

type postRequest struct {
	Content string `json:"content"`
}

// handleCreatePost godoc
//
//	@Summary	Create a post
//	@Tags		Posts
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		postRequest			true	"Post content"
//	@Success	201		{object}	map[string]any		"Message and post"
//	@Failure	400		{object}	map[string]string	"Empty content"
//	@Failure	429		{object}	map[string]any		"Rate limited"
//	@Router		/api/posts [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "post", s.cfg.RateLimits.PostPerMinute) {
		return
	}
	var req postRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	post, err := s.svc.Posts.Create(r.Context(), acting(r), req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "post created", "post": post})
}

// handleListPosts godoc
//
//	@Summary	List posts, newest first
//	@Tags		Posts
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]any	"posts"
//	@Router		/api/posts [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.Posts.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *Server) handleListUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.Posts.ListByAuthor(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.svc.Posts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

// handleUpdatePost godoc
//
//	@Summary	Edit your post
//	@Tags		Posts
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"Post ID"
//	@Param		request	body		postRequest			true	"New content"
//	@Success	200		{object}	map[string]any		"post"
//	@Failure	403		{object}	map[string]string	"Not your post"
//	@Failure	404		{object}	map[string]string	"Post not found"
//	@Router		/api/posts/{id} [put]
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	post, err := s.svc.Posts.Update(r.Context(), mux.Vars(r)["id"], acting(r), req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

// handleDeletePost godoc
//
//	@Summary		Delete your post
//	@Description	Deletes the post and then every comment on it.
//	@Tags			Posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string				true	"Post ID"
//	@Success		200	{object}	map[string]string	"Success message"
//	@Failure		403	{object}	map[string]string	"Not your post"
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Router			/api/posts/{id} [delete]
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Posts.Delete(r.Context(), mux.Vars(r)["id"], acting(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}
