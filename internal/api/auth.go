package api

import (
	"net/http"

	"mercado-pos/domain"
	"mercado-pos/internal/audit"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Session *domain.Session `json:"session"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.guard.Login(req.Username, req.Password)
	if err != nil {
		h.audit.Record(audit.LoginFailed, nil, map[string]any{
			"attempted_username": req.Username,
			"reason":             err.Error(),
		})
		respondServiceError(w, err)
		return
	}

	token, err := h.generateToken(sess)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	h.audit.Record(audit.LoginSuccess, actorOf(sess), nil)
	respondJSON(w, http.StatusOK, loginResponse{Token: token, Session: sess})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	h.guard.Logout()
	h.audit.Record(audit.Logout, actorOf(sess), nil)
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFromContext(r))
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	h.guard.UpdateActivity()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
