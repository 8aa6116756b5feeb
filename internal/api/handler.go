// Package api exposes the product surface over HTTP: auth, the chat session
// endpoints, and the dashboard record CRUD.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pai-labs/pai/internal/auth"
	"github.com/pai-labs/pai/internal/chat"
	"github.com/pai-labs/pai/internal/db"
	"github.com/pai-labs/pai/internal/models"
)

// GatewayFactory builds a fresh text-generation gateway for each chat
// session so conversation context never crosses users.
type GatewayFactory func() (chat.Gateway, error)

type Handler struct {
	db      *db.Database
	auth    *auth.Service
	gateway GatewayFactory
	logger  *zap.Logger
	chatCfg chat.Config

	mu       sync.Mutex
	sessions map[string]*userSession
	limiters map[string]*rate.Limiter
}

// userSession pairs a live in-memory chat session with its persisted
// conversation mirror.
type userSession struct {
	session *chat.Session
	convID  int64
}

func NewHandler(database *db.Database, authSvc *auth.Service, gateway GatewayFactory, logger *zap.Logger, chatCfg chat.Config) *Handler {
	return &Handler{
		db:       database,
		auth:     authSvc,
		gateway:  gateway,
		logger:   logger,
		chatCfg:  chatCfg,
		sessions: make(map[string]*userSession),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Routes builds the full router.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", h.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(h.requireUser)
	authed.HandleFunc("/auth/logout", h.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/auth/me", h.handleMe).Methods(http.MethodGet)

	authed.HandleFunc("/chat/session", h.handleCreateSession).Methods(http.MethodPost)
	authed.HandleFunc("/chat/session", h.handleDestroySession).Methods(http.MethodDelete)
	authed.HandleFunc("/chat/messages", h.handleListMessages).Methods(http.MethodGet)
	authed.HandleFunc("/chat/message", h.handleSubmit).Methods(http.MethodPost)
	authed.HandleFunc("/chat/cancel", h.handleCancel).Methods(http.MethodPost)
	authed.HandleFunc("/chat/messages/{id}/reaction", h.handleReaction).Methods(http.MethodPost)
	authed.HandleFunc("/conversations", h.handleListConversations).Methods(http.MethodGet)
	authed.HandleFunc("/conversations/{id}/messages", h.handleConversationHistory).Methods(http.MethodGet)
	authed.HandleFunc("/conversations/{id}", h.handleRenameConversation).Methods(http.MethodPut)
	authed.HandleFunc("/conversations/{id}", h.handleDeleteConversation).Methods(http.MethodDelete)

	authed.HandleFunc("/tasks", h.handleCreateTask).Methods(http.MethodPost)
	authed.HandleFunc("/tasks", h.handleListTasks).Methods(http.MethodGet)
	authed.HandleFunc("/tasks/{id}", h.handleUpdateTask).Methods(http.MethodPut)
	authed.HandleFunc("/tasks/{id}", h.handleDeleteTask).Methods(http.MethodDelete)

	authed.HandleFunc("/memory", h.handleCreateMemory).Methods(http.MethodPost)
	authed.HandleFunc("/memory", h.handleListMemory).Methods(http.MethodGet)
	authed.HandleFunc("/memory/search", h.handleSearchMemory).Methods(http.MethodGet)
	authed.HandleFunc("/memory/{id}", h.handleUpdateMemory).Methods(http.MethodPut)
	authed.HandleFunc("/memory/{id}", h.handleDeleteMemory).Methods(http.MethodDelete)

	authed.HandleFunc("/calendar", h.handleCreateEvent).Methods(http.MethodPost)
	authed.HandleFunc("/calendar", h.handleListEvents).Methods(http.MethodGet)
	authed.HandleFunc("/calendar/{id}", h.handleUpdateEvent).Methods(http.MethodPut)
	authed.HandleFunc("/calendar/{id}", h.handleDeleteEvent).Methods(http.MethodDelete)

	authed.HandleFunc("/files", h.handleCreateFile).Methods(http.MethodPost)
	authed.HandleFunc("/files", h.handleListFiles).Methods(http.MethodGet)
	authed.HandleFunc("/files/{id}", h.handleDeleteFile).Methods(http.MethodDelete)

	authed.HandleFunc("/notifications", h.handleListNotifications).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/{id}/read", h.handleMarkNotificationRead).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireUser, h.requireAdmin)
	admin.HandleFunc("/users", h.handleListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", h.handleUpdateUser).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}", h.handleDeleteUser).Methods(http.MethodDelete)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

type contextKey int

const userKey contextKey = iota

// requireUser resolves the bearer token and stores the user on the request
// context.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.auth.UserForToken(bearerToken(r))
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				httpError(w, "Not authenticated", http.StatusUnauthorized)
				return
			}
			h.logger.Error("failed to resolve token", zap.Error(err))
			httpError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).IsAdmin() {
			httpError(w, "Admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey).(*models.User)
	return user
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, msg string, status int) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
