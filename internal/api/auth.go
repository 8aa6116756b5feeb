package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pai-labs/pai/internal/auth"
	"github.com/pai-labs/pai/internal/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.auth.Register(req.Email, req.Password, req.Name)
	if errors.Is(err, auth.ErrEmailTaken) {
		httpError(w, "Email already registered", http.StatusConflict)
		return
	}
	if errors.Is(err, auth.ErrInvalidCredentials) {
		httpError(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("failed to register user", zap.Error(err))
		httpError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	token, _, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		h.logger.Error("failed to log in new user", zap.Error(err))
		httpError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, loginResponse{Token: token, User: user})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, user, err := h.auth.Login(req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		httpError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.logger.Error("failed to log in", zap.Error(err))
		httpError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(bearerToken(r)); err != nil {
		h.logger.Error("failed to log out", zap.Error(err))
		httpError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.dropSession(currentUser(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, currentUser(r))
}
