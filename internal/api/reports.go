package api

import (
	"net/http"

	"mercado-pos/domain"
	"mercado-pos/internal/audit"
)

func (h *Handler) allSales(w http.ResponseWriter, r *http.Request) {
	if h.requireRole(w, r, "reports", domain.RoleAdmin, domain.RoleManager) == nil {
		return
	}
	sales, err := h.register.AllSales()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	if h.requireRole(w, r, "reports", domain.RoleAdmin, domain.RoleManager) == nil {
		return
	}
	summary, err := h.register.Summary()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) closeRegister(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "close-register", domain.RoleAdmin, domain.RoleManager)
	if sess == nil {
		return
	}
	result, err := h.register.Close()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.CashRegisterClosed, actorOf(sess), map[string]any{
		"total_revenue":   result.Summary.TotalRevenue,
		"total_profit":    result.Summary.TotalProfit,
		"total_items":     result.Summary.TotalItems,
		"deleted_records": result.DeletedRecords,
	})
	respondJSON(w, http.StatusOK, result)
}
