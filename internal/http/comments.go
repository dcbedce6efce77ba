package httpapp

import (
	"net/http"

	"github.com/gorilla/mux"
)

type commentRequest struct {
	PostID  string `json:"post_id,omitempty"`
	Content string `json:"content"`
}

// handleCreateComment godoc
//
//	@Summary		Comment on a post
//	@Description	The post id comes from the path when present, otherwise from the body.
//	@Tags			Comments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		commentRequest		true	"Comment"
//	@Success		201		{object}	map[string]any		"Message and comment"
//	@Failure		400		{object}	map[string]string	"Empty content or post id"
//	@Failure		404		{object}	map[string]string	"Post not found"
//	@Router			/api/comments [post]
//	@Router			/api/comments/post/{postId} [post]
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "comment", s.cfg.RateLimits.CommentPerMinute) {
		return
	}
	var req commentRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	postID := req.PostID
	if v, ok := mux.Vars(r)["postId"]; ok {
		postID = v
	}
	comment, err := s.svc.Comments.Create(r.Context(), acting(r), postID, req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "comment created", "comment": comment})
}

// handlePostComments serves both /posts/{id}/comments and /comments/post/{postId}.
func (s *Server) handlePostComments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, ok := vars["postId"]
	if !ok {
		postID = vars["id"]
	}
	comments, err := s.svc.Comments.ListByPost(r.Context(), postID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	comment, err := s.svc.Comments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	comment, err := s.svc.Comments.Update(r.Context(), mux.Vars(r)["id"], acting(r), req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
}

// handleDeleteComment godoc
//
//	@Summary	Delete your comment
//	@Tags		Comments
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string				true	"Comment ID"
//	@Success	200	{object}	map[string]string	"Success message"
//	@Failure	403	{object}	map[string]string	"Not your comment"
//	@Failure	404	{object}	map[string]string	"Comment not found"
//	@Router		/api/comments/{id} [delete]
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Comments.Delete(r.Context(), mux.Vars(r)["id"], acting(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}
