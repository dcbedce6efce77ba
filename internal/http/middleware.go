package httpapp

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/alphabot-ai/microblog/internal/auth"
	"github.com/alphabot-ai/microblog/internal/logging"
	"github.com/alphabot-ai/microblog/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type logHandler struct {
	log  logrus.FieldLogger
	next http.Handler
}

type responseRecorder struct {
	b      int
	status int
	w      http.ResponseWriter
}

func (r *responseRecorder) Header() http.Header { return r.w.Header() }

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.w.Write(p)
	r.b += n
	return n, err
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.w.WriteHeader(statusCode)
}

func (lh *logHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	start := time.Now()
	rr := &responseRecorder{w: w}
	w.Header().Set("X-Request-Id", requestID)

	log := lh.log.WithFields(logrus.Fields{
		"http.req.path":   r.URL.Path,
		"http.req.method": r.Method,
		"http.req.id":     requestID,
	})
	log.Debug("request started")
	defer func() {
		log.WithFields(logrus.Fields{
			"http.resp.took_ms": int64(time.Since(start) / time.Millisecond),
			"http.resp.status":  rr.status,
			"http.resp.bytes":   rr.b,
		}).Info("request complete")
	}()

	r = r.WithContext(logging.WithLogger(r.Context(), log))
	lh.next.ServeHTTP(rr, r)
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				requestLog(r, s.log).WithField("panic", v).Errorf("handler panic\n%s", debug.Stack())
				writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withAuth rejects requests without a valid bearer token and puts the
// caller's identity into the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		id, err := s.svc.Auth.Authenticate(r.Context(), token)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = logging.WithLogger(ctx, requestLog(r, s.log).WithField("user_id", id.UserID))
		next(w, r.WithContext(ctx))
	}
}

func acting(r *http.Request) model.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

func requestLog(r *http.Request, fallback logrus.FieldLogger) logrus.FieldLogger {
	return logging.FromContext(r.Context(), fallback)
}
