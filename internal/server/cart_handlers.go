package server

import (
	"net/http"
	"strconv"

	"github.com/atelierline/storefront/internal/cart"
	"github.com/atelierline/storefront/internal/commerce"
	"github.com/atelierline/storefront/internal/cookie"
	"github.com/atelierline/storefront/internal/log"
	"github.com/atelierline/storefront/internal/storage"
	"github.com/segmentio/ksuid"
)

// CartHandlers owns the cart mutation endpoints. Everything is a form POST
// from a rendered page; mutations redirect back to the page that posted.
type CartHandlers struct {
	commerce *commerce.Client
	carts    *cart.Service
	pages    *PageHandlers
}

func NewCartHandlers(commerceClient *commerce.Client, carts *cart.Service, pages *PageHandlers) *CartHandlers {
	return &CartHandlers{
		commerce: commerceClient,
		carts:    carts,
		pages:    pages,
	}
}

// currentCart returns the request's cart ID, minting one and setting the
// cookie on first use
func currentCart(w http.ResponseWriter, r *http.Request) string {
	if cartID, err := cookie.GetCart(r); err == nil && cartID != "" {
		return cartID
	}
	cartID := ksuid.New().String()
	cookie.SetCart(w, cartID)
	return cartID
}

func redirectBack(w http.ResponseWriter, r *http.Request) {
	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// AddHandler adds a product variant to the cart. The product is re-fetched
// from the platform so the stored line carries server-side prices, never
// whatever the form claimed.
func (h *CartHandlers) AddHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.renderError(w, r, http.StatusBadRequest, "That request could not be read.")
		return
	}

	handle := r.PostForm.Get("handle")
	if handle == "" {
		h.pages.renderError(w, r, http.StatusBadRequest, "No product was selected.")
		return
	}

	product, err := h.commerce.ProductByHandle(r.Context(), handle)
	if err != nil {
		log.LogErrorWithFields("cart", "Failed to load product for add", map[string]any{
			"handle": handle,
			"error":  err.Error(),
		})
		h.pages.renderError(w, r, http.StatusBadGateway, "The shop is temporarily unavailable.")
		return
	}
	if product == nil || len(product.Variants) == 0 {
		h.pages.renderError(w, r, http.StatusNotFound, "That product is no longer available.")
		return
	}

	variant := product.Variants[0]
	if wanted := r.PostForm.Get("variant"); wanted != "" {
		found := false
		for _, v := range product.Variants {
			if v.ID == wanted {
				variant = v
				found = true
				break
			}
		}
		if !found {
			h.pages.renderError(w, r, http.StatusBadRequest, "That option is no longer available.")
			return
		}
	}

	quantity := 1
	if q := r.PostForm.Get("quantity"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			quantity = parsed
		}
	}

	price, err := product.MinPrice.Float()
	if err != nil {
		log.LogErrorWithFields("cart", "Product has unparseable price", map[string]any{
			"handle": handle,
			"error":  err.Error(),
		})
		h.pages.renderError(w, r, http.StatusBadGateway, "The shop is temporarily unavailable.")
		return
	}

	line := storage.CartLine{
		ID:        variant.ID,
		Name:      product.Title,
		UnitPrice: price,
		Quantity:  quantity,
		Href:      "/products/" + product.Handle,
	}
	if variant.Title != "" && variant.Title != "Default Title" {
		line.VariantTitle = variant.Title
	}
	if len(product.Images) > 0 {
		line.ImageURL = product.Images[0].URL
	}

	cartID := currentCart(w, r)
	if _, err := h.carts.AddItem(r.Context(), cartID, line); err != nil {
		h.pages.renderError(w, r, http.StatusInternalServerError, "Your cart could not be updated.")
		return
	}

	redirectBack(w, r)
}

// RemoveHandler deletes a line from the cart
func (h *CartHandlers) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.renderError(w, r, http.StatusBadRequest, "That request could not be read.")
		return
	}

	cartID := currentCart(w, r)
	if _, err := h.carts.RemoveItem(r.Context(), cartID, r.PostForm.Get("id")); err != nil {
		h.pages.renderError(w, r, http.StatusInternalServerError, "Your cart could not be updated.")
		return
	}

	redirectBack(w, r)
}

// QuantityHandler sets a line's quantity; zero removes the line
func (h *CartHandlers) QuantityHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.renderError(w, r, http.StatusBadRequest, "That request could not be read.")
		return
	}

	quantity, err := strconv.Atoi(r.PostForm.Get("quantity"))
	if err != nil {
		h.pages.renderError(w, r, http.StatusBadRequest, "That quantity was not understood.")
		return
	}

	cartID := currentCart(w, r)
	if _, err := h.carts.SetQuantity(r.Context(), cartID, r.PostForm.Get("id"), quantity); err != nil {
		h.pages.renderError(w, r, http.StatusInternalServerError, "Your cart could not be updated.")
		return
	}

	redirectBack(w, r)
}

// OpenHandler and CloseHandler persist the drawer flag so pages render with
// the drawer in the state the customer left it

func (h *CartHandlers) OpenHandler(w http.ResponseWriter, r *http.Request) {
	cartID := currentCart(w, r)
	if _, err := h.carts.SetOpen(r.Context(), cartID, true); err != nil {
		h.pages.renderError(w, r, http.StatusInternalServerError, "Your cart could not be updated.")
		return
	}
	redirectBack(w, r)
}

func (h *CartHandlers) CloseHandler(w http.ResponseWriter, r *http.Request) {
	cartID := currentCart(w, r)
	if _, err := h.carts.SetOpen(r.Context(), cartID, false); err != nil {
		h.pages.renderError(w, r, http.StatusInternalServerError, "Your cart could not be updated.")
		return
	}
	redirectBack(w, r)
}

// CheckoutHandler hands the cart to the platform and sends the customer to
// the returned checkout URL. Any platform error keeps the cart as-is and
// surfaces the platform's message.
func (h *CartHandlers) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	cartID := currentCart(w, r)

	checkoutURL, err := h.carts.Checkout(r.Context(), cartID)
	if err != nil {
		h.pages.renderError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	http.Redirect(w, r, checkoutURL, http.StatusFound)
}
