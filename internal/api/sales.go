package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mercado-pos/domain"
	"mercado-pos/internal/audit"
	"mercado-pos/internal/money"
)

type saleRequest struct {
	Items           []domain.CartItem `json:"items"`
	DiscountPercent float64           `json:"discount_percent"`
}

func (h *Handler) finalizeSale(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)

	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saleIDs, err := h.ledger.FinalizeSale(req.Items, sess.UserID, req.DiscountPercent)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var total float64
	for _, item := range req.Items {
		final := money.ApplyDiscount(item.SalePrice, req.DiscountPercent)
		total += money.Subtotal(final, item.Quantity)
	}
	h.audit.Record(audit.SaleCompleted, actorOf(sess), map[string]any{
		"item_count": len(req.Items),
		"total":      money.Round(total),
		"discount":   req.DiscountPercent,
	})

	respondJSON(w, http.StatusCreated, map[string]any{"sale_ids": saleIDs})
}

func (h *Handler) todaySales(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)

	// Operators only see their own sales; managers see everyone's.
	var userID *int64
	if sess.Role == domain.RoleOperator {
		userID = &sess.UserID
	}

	sales, err := h.ledger.TodaySales(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) todaySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.TodaySummary()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) productByBarcode(w http.ResponseWriter, r *http.Request) {
	product, err := h.ledger.ProductByBarcode(chi.URLParam(r, "barcode"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}
