package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mercado-pos/domain"
	"mercado-pos/internal/audit"
)

func (h *Handler) listBackups(w http.ResponseWriter, r *http.Request) {
	if h.requireRole(w, r, "backups", domain.RoleAdmin) == nil {
		return
	}
	backups, err := h.backups.List()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, backups)
}

func (h *Handler) backupStats(w http.ResponseWriter, r *http.Request) {
	if h.requireRole(w, r, "backups", domain.RoleAdmin) == nil {
		return
	}
	stats, err := h.backups.Stats()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) createBackup(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "backups", domain.RoleAdmin)
	if sess == nil {
		return
	}
	info, err := h.backups.CreateManual()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.BackupCreated, actorOf(sess), map[string]any{
		"filename": info.Filename,
		"type":     "manual",
	})
	respondJSON(w, http.StatusCreated, info)
}

type restoreRequest struct {
	Filename string `json:"filename"`
}

func (h *Handler) restoreBackup(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "backups", domain.RoleAdmin)
	if sess == nil {
		return
	}
	var req restoreRequest
	if err := decodeJSON(r, &req); err != nil || req.Filename == "" {
		respondError(w, http.StatusBadRequest, "filename is required")
		return
	}
	if err := h.backups.Restore(req.Filename); err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.BackupRestored, actorOf(sess), map[string]any{"filename": req.Filename})
	respondJSON(w, http.StatusOK, map[string]string{"status": "restored", "backup_used": req.Filename})
}

func (h *Handler) deleteBackup(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "backups", domain.RoleAdmin)
	if sess == nil {
		return
	}
	filename := chi.URLParam(r, "filename")
	if err := h.backups.Delete(filename); err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.BackupDeleted, actorOf(sess), map[string]any{"filename": filename})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
