// Package devapi is an in-memory implementation of the grocery REST API for
// local development and end-to-end tests. State lives in process memory.
package devapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/grocery-keeper/internal/api"
	"github.com/and161185/grocery-keeper/internal/limiter"
)

// Config holds server settings.
type Config struct {
	JWTKey    []byte
	AccessTTL time.Duration
	ResetTTL  time.Duration
	Login     limiter.Policy
}

// Server wires the in-memory store into HTTP handlers.
type Server struct {
	store   *memStore
	tokens  signer
	lim     limiter.Limiter
	log     *zap.Logger
	now     func() time.Time
	reset   time.Duration
	onReset func(email, token string)
}

// Option customizes a Server.
type Option func(*Server)

// WithClock overrides the clock for tokens and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLimiter replaces the default in-memory login limiter.
func WithLimiter(l limiter.Limiter) Option {
	return func(s *Server) { s.lim = l }
}

// WithResetHook receives every issued password reset token in place of an email.
func WithResetHook(fn func(email, token string)) Option {
	return func(s *Server) { s.onReset = fn }
}

// New constructs a server. JWTKey must be non-empty.
func New(cfg Config, log *zap.Logger, opts ...Option) (*Server, error) {
	if len(cfg.JWTKey) == 0 {
		return nil, errors.New("devapi: empty jwt signing key")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store: newMemStore(),
		log:   log,
		now:   time.Now,
		reset: cfg.ResetTTL,
	}
	for _, o := range opts {
		o(s)
	}
	if s.lim == nil {
		s.lim = limiter.NewMemory(cfg.Login)
	}
	if s.onReset == nil {
		s.onReset = func(email, token string) {
			s.log.Info("password reset token issued", zap.String("email", email), zap.String("token", token))
		}
	}
	s.tokens = signer{key: cfg.JWTKey, ttl: cfg.AccessTTL, now: s.now}
	return s, nil
}

// Handler returns the routed HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, Recover(s.log), Logging(s.log))

	r.Post(api.PathRegister, s.register)
	r.Post(api.PathLogin, s.login)
	r.Post(api.PathForgotPassword, s.forgotPassword)
	r.Post(api.PathResetPassword, s.resetPassword)
	r.With(s.requireAuth).Put(api.PathUser, s.updateUser)

	r.Get(api.PathProducts, s.listProducts)
	r.Get(api.PathProducts+"/{id}", s.getProduct)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post(api.PathAddProduct, s.addProduct)
		r.Put(api.PathProducts+"/{id}", s.updateProduct)
		r.Delete(api.PathProducts+"/{id}", s.deleteProduct)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// readJSON decodes a request body; unknown fields are ignored.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
