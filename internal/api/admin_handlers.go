package api

import (
	"net/http"

	"github.com/example/storefront/internal/command"
	"github.com/example/storefront/internal/domain/promotion"
)

// Admin handlers sit behind RequireRole(admin).

type activeRequest struct {
	Active *bool `json:"active"`
}

func decodeActive(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var req activeRequest
	if !decodeJSON(w, r, &req) {
		return false, false
	}
	if req.Active == nil {
		respondJSONError(w, "active is required", "invalid_input", http.StatusBadRequest)
		return false, false
	}
	return *req.Active, true
}

// Categories

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateCategory
	if !decodeJSON(w, r, &cmd) {
		return
	}
	c, err := h.cmdHandler.CreateCategory(r.Context(), cmd)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handlers) SetCategoryActive(w http.ResponseWriter, r *http.Request) {
	active, ok := decodeActive(w, r)
	if !ok {
		return
	}
	if err := h.cmdHandler.SetCategoryActive(r.Context(), r.PathValue("id"), active); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Products

func (h *Handlers) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListAllProducts(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if !decodeJSON(w, r, &cmd) {
		return
	}
	product, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdateProduct
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.ProductID = r.PathValue("id")

	product, err := h.cmdHandler.UpdateProduct(r.Context(), cmd)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) SetProductActive(w http.ResponseWriter, r *http.Request) {
	active, ok := decodeActive(w, r)
	if !ok {
		return
	}
	if err := h.cmdHandler.SetProductActive(r.Context(), r.PathValue("id"), active); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Restock(w http.ResponseWriter, r *http.Request) {
	var cmd command.Restock
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.ProductID = r.PathValue("id")
	if err := h.cmdHandler.Restock(r.Context(), cmd); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Offers and coupons

func (h *Handlers) GetOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.queryHandler.ListOffers(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, offers)
}

func (h *Handlers) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var in promotion.NewOffer
	if !decodeJSON(w, r, &in) {
		return
	}
	o, err := h.cmdHandler.CreateOffer(r.Context(), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) DeactivateOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeactivateOffer(r.Context(), r.PathValue("id")); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.queryHandler.ListCoupons(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, coupons)
}

func (h *Handlers) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var in promotion.NewCoupon
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.cmdHandler.CreateCoupon(r.Context(), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handlers) DeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.DeactivateCoupon(r.Context(), r.PathValue("code")); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Orders

func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListAllOrders(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.cmdHandler.UpdateOrderStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Wallets

func (h *Handlers) CreditWallet(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreditWallet
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.UserID = r.PathValue("userID")
	txn, err := h.cmdHandler.CreditWallet(r.Context(), cmd)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, txn)
}
