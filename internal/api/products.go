package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mercado-pos/domain"
	"mercado-pos/internal/audit"
	"mercado-pos/internal/products"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	list, err := h.products.List(q.Get("search"), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total, err := h.products.Count(q.Get("search"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": list, "total": total})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.ParseInt(r.URL.Query().Get("threshold"), 10, 64)
	list, err := h.products.LowStock(threshold)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := h.products.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "products", domain.RoleAdmin, domain.RoleManager)
	if sess == nil {
		return
	}
	var in products.Input
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	product, err := h.products.Create(in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.ProductCreated, actorOf(sess), map[string]any{
		"product_id": product.ID,
		"name":       product.Name,
		"barcode":    product.Barcode,
	})
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "products", domain.RoleAdmin, domain.RoleManager)
	if sess == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var in products.Input
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	product, err := h.products.Update(id, in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.ProductUpdated, actorOf(sess), map[string]any{
		"product_id": product.ID,
		"name":       product.Name,
	})
	respondJSON(w, http.StatusOK, product)
}

type stockAdjustRequest struct {
	Delta int64 `json:"delta"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "products", domain.RoleAdmin, domain.RoleManager)
	if sess == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req stockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	product, err := h.products.AdjustQuantity(id, req.Delta)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.ProductUpdated, actorOf(sess), map[string]any{
		"product_id": product.ID,
		"name":       product.Name,
		"delta":      req.Delta,
	})
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	sess := h.requireRole(w, r, "products", domain.RoleAdmin, domain.RoleManager)
	if sess == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.products.Delete(id); err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(audit.ProductDeleted, actorOf(sess), map[string]any{"product_id": id})
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
