package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pai-labs/pai/internal/db"
	"github.com/pai-labs/pai/internal/models"
)

type updateUserRequest struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	Plan models.Plan `json:"plan"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers()
	if err != nil {
		h.serverError(w, "failed to list users", err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// handleUpdateUser applies the provided fields on top of the stored profile;
// omitted fields keep their current values.
func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := mux.Vars(r)["id"]
	user, err := h.db.GetUser(id)
	if errors.Is(err, db.ErrNotFound) {
		httpError(w, "Record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, "failed to load user", err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Role != "" {
		if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
			httpError(w, "Unknown role", http.StatusBadRequest)
			return
		}
		user.Role = req.Role
	}
	if req.Plan != "" {
		switch req.Plan {
		case models.PlanFree, models.PlanPro, models.PlanEnterprise:
		default:
			httpError(w, "Unknown plan", http.StatusBadRequest)
			return
		}
		user.Plan = req.Plan
	}

	err = h.db.UpdateUser(id, user.Name, user.Role, user.Plan)
	if h.respondMutation(w, "failed to update user", err) {
		respondJSON(w, http.StatusOK, user)
	}
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == currentUser(r).ID {
		httpError(w, "Cannot delete the active admin account", http.StatusBadRequest)
		return
	}
	err := h.db.DeleteUser(id)
	if h.respondMutation(w, "failed to delete user", err) {
		h.dropSession(id)
		w.WriteHeader(http.StatusNoContent)
	}
}
