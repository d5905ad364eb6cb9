package devapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/and161185/grocery-keeper/internal/crypto"
	"github.com/and161185/grocery-keeper/internal/limiter"
	"github.com/and161185/grocery-keeper/internal/model"
	"github.com/and161185/grocery-keeper/internal/validate"
)

// userView renders a user. Auth endpoints return numeric ids, the profile endpoint strings.
func userView(a account, numericID bool) map[string]any {
	m := map[string]any{"name": a.Name, "email": a.Email}
	if numericID {
		m["id"] = a.ID
	} else {
		m["id"] = strconv.FormatInt(a.ID, 10)
	}
	if a.ProfilePicture != nil {
		m["profile_picture"] = *a.ProfilePicture
	}
	return m
}

func (s *Server) authenticated(w http.ResponseWriter, status int, a account) {
	tok, err := s.tokens.issue(a.ID)
	if err != nil {
		s.log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, status, map[string]any{"token": tok, "user": userView(a, true)})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := validate.Register(req.Name, req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.log.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	a, err := s.store.createUser(req.Name, req.Email, hash)
	if errors.Is(err, errEmailTaken) {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	s.authenticated(w, http.StatusCreated, a)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := validate.Login(req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	acct, origin := limiter.Account(req.Email), limiter.HashIP(remoteIP(r))
	ok, retry, err := s.lim.Allow(ctx, acct, origin)
	if err != nil {
		s.log.Error("limiter allow", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	if !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "Too many login attempts. Try again later.")
		return
	}

	a, err := s.store.userByEmail(req.Email)
	if err == nil {
		var match bool
		match, err = crypto.VerifyPassword(req.Password, a.PwdHash)
		if err == nil && !match {
			err = errBadCredentials
		}
	}
	if err != nil {
		if _, _, lerr := s.lim.Failure(ctx, acct, origin); lerr != nil {
			s.log.Warn("limiter failure", zap.Error(lerr))
		}
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err := s.lim.Success(ctx, acct, origin); err != nil {
		s.log.Warn("limiter success", zap.Error(err))
	}
	s.authenticated(w, http.StatusOK, a)
}

var errBadCredentials = errors.New("bad credentials")

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := validate.ForgotPassword(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// unknown addresses get the same answer
	if a, err := s.store.userByEmail(req.Email); err == nil {
		tok, err := s.store.grantReset(a.ID, s.reset, s.now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal")
			return
		}
		s.onReset(a.Email, tok)
	}
	writeMessage(w, "If that email is registered, a password reset link has been sent")
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := validate.ResetPassword(req.Token, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.store.redeemReset(req.Token, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	hash, err := crypto.HashPassword(req.Password)
	if err == nil {
		err = s.store.setPassword(id, hash)
	}
	if err != nil {
		s.log.Error("reset password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeMessage(w, "Password has been reset successfully")
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           *string `json:"name"`
		Email          *string `json:"email"`
		ProfilePicture *string `json:"profile_picture"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	patch := model.UserPatch{Name: req.Name, Email: req.Email, ProfilePicture: req.ProfilePicture}
	if err := validate.UpdateUser(patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, _ := UserIDFromCtx(r.Context())
	a, err := s.store.updateUser(id, patch)
	switch {
	case errors.Is(err, errEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
	case err != nil:
		writeError(w, http.StatusNotFound, "User not found")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"user": userView(a, false)})
	}
}
