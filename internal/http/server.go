package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alphabot-ai/microblog/internal/config"
	"github.com/alphabot-ai/microblog/internal/rate"
	"github.com/alphabot-ai/microblog/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type Server struct {
	svc     *service.Services
	limiter rate.Limiter
	cfg     config.Config
	log     logrus.FieldLogger
	handler http.Handler
}

func NewServer(svc *service.Services, limiter rate.Limiter, cfg config.Config, log logrus.FieldLogger) *Server {
	s := &Server{svc: svc, limiter: limiter, cfg: cfg, log: log}
	s.handler = &logHandler{log: log, next: s.recoverer(s.routes())}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Full paths on the root router. A mux subrouter reports a method
	// mismatch as 404.
	api := routePrefix{r: r, prefix: "/api"}
	api.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	api.HandleFunc("/users", s.withAuth(s.handleListUsers)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", s.withAuth(s.handleGetUser)).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", s.withAuth(s.handleUpdateUser)).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}", s.withAuth(s.handleDeleteUser)).Methods(http.MethodDelete)
	api.HandleFunc("/users/{id}/password", s.withAuth(s.handleChangePassword)).Methods(http.MethodPut)

	api.HandleFunc("/posts", s.withAuth(s.handleCreatePost)).Methods(http.MethodPost)
	api.HandleFunc("/posts", s.withAuth(s.handleListPosts)).Methods(http.MethodGet)
	api.HandleFunc("/posts/user/{userId}", s.withAuth(s.handleListUserPosts)).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", s.withAuth(s.handleGetPost)).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", s.withAuth(s.handleUpdatePost)).Methods(http.MethodPut)
	api.HandleFunc("/posts/{id}", s.withAuth(s.handleDeletePost)).Methods(http.MethodDelete)
	api.HandleFunc("/posts/{id}/comments", s.withAuth(s.handlePostComments)).Methods(http.MethodGet)

	api.HandleFunc("/comments", s.withAuth(s.handleCreateComment)).Methods(http.MethodPost)
	api.HandleFunc("/comments/post/{postId}", s.withAuth(s.handleCreateComment)).Methods(http.MethodPost)
	api.HandleFunc("/comments/post/{postId}", s.withAuth(s.handlePostComments)).Methods(http.MethodGet)
	api.HandleFunc("/comments/{id}", s.withAuth(s.handleGetComment)).Methods(http.MethodGet)
	api.HandleFunc("/comments/{id}", s.withAuth(s.handleUpdateComment)).Methods(http.MethodPut)
	api.HandleFunc("/comments/{id}", s.withAuth(s.handleDeleteComment)).Methods(http.MethodDelete)
	return r
}

type routePrefix struct {
	r      *mux.Router
	prefix string
}

func (p routePrefix) HandleFunc(path string, h http.HandlerFunc) *mux.Route {
	return p.r.HandleFunc(p.prefix+path, h)
}

// handleHealth godoc
//
//	@Summary	Liveness probe
//	@Tags		Meta
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion godoc
//
//	@Summary	Build information
//	@Tags		Meta
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/api/version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    s.cfg.Version,
		"commit":     s.cfg.Commit,
		"build_time": s.cfg.BuildTime,
	})
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, action string, limit int) bool {
	if limit <= 0 {
		return true
	}
	key := fmt.Sprintf("%s:ip:%s", action, s.clientIP(r))
	if ok, retry := s.limiter.Allow(r.Context(), key, limit, time.Minute); !ok {
		requestLog(r, s.log).WithField("action", action).Warn("rate limited")
		writeRateLimit(w, retry)
		return false
	}
	return true
}

// clientIP honours X-Forwarded-For only when the server sits behind a
// trusted proxy. Otherwise any caller could pick its own rate limit key.
func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" && s.cfg.TrustProxy {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

var errBadJSON = errors.New("invalid JSON body")

func readJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadJSON)
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	secs := int(retry.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": secs,
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}
