package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mercado-pos/domain"
	"mercado-pos/internal/audit"
	"mercado-pos/internal/users"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if h.requireRole(w, r, "users", domain.RoleAdmin) == nil {
		return
	}
	list, err := h.users.List(r.URL.Query().Get("search"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	if h.requireRole(w, r, "users", domain.RoleAdmin) == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := h.users.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "users", domain.RoleAdmin)
	if sess == nil {
		return
	}
	var in users.Input
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.users.Create(in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.UserCreated, actorOf(sess), map[string]any{
		"new_user_id":  user.ID,
		"new_username": user.Username,
		"role":         user.Role,
	})
	respondJSON(w, http.StatusCreated, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "users", domain.RoleAdmin)
	if sess == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var in users.Input
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.users.Update(id, in, sess.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.UserUpdated, actorOf(sess), map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	respondJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "users", domain.RoleAdmin)
	if sess == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := h.users.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := h.users.Delete(id, sess.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.UserDeleted, actorOf(sess), map[string]any{
		"deleted_user_id":  user.ID,
		"deleted_username": user.Username,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
