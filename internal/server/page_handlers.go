package server

import (
	"net/http"

	"github.com/atelierline/storefront/internal/cart"
	"github.com/atelierline/storefront/internal/commerce"
	"github.com/atelierline/storefront/internal/cookie"
	"github.com/atelierline/storefront/internal/customer"
	"github.com/atelierline/storefront/internal/log"
)

// PageHandlers renders the storefront pages. Handlers only assemble data and
// render; all business rules live in the cart, customer, and commerce
// packages.
type PageHandlers struct {
	storeName string
	commerce  *commerce.Client
	carts     *cart.Service
	customers *customer.Controller
}

func NewPageHandlers(storeName string, commerceClient *commerce.Client, carts *cart.Service, customers *customer.Controller) *PageHandlers {
	return &PageHandlers{
		storeName: storeName,
		commerce:  commerceClient,
		carts:     carts,
		customers: customers,
	}
}

// base assembles the shared page chrome. Both lookups are best-effort: a
// missing cart or session just renders the signed-out, empty-cart header.
func (h *PageHandlers) base(r *http.Request, title string) BasePageData {
	data := BasePageData{
		Title:     title,
		StoreName: h.storeName,
	}

	if cartID, err := cookie.GetCart(r); err == nil {
		if record, err := h.carts.Get(r.Context(), cartID); err == nil {
			data.Cart = record
		}
	}

	if _, session, err := h.customers.CurrentSession(r.Context(), r); err == nil {
		data.Customer = session.Profile
	}

	return data
}

func (h *PageHandlers) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	renderPage(w, status, "error", ErrorPageData{
		BasePageData: h.base(r, "Error"),
		Message:      message,
	})
}

// HomeHandler renders the landing page with the storefront's collections
func (h *PageHandlers) HomeHandler(w http.ResponseWriter, r *http.Request) {
	collections, err := h.commerce.Collections(r.Context())
	if err != nil {
		log.LogErrorWithFields("pages", "Failed to load collections", map[string]any{
			"error": err.Error(),
		})
		h.renderError(w, r, http.StatusBadGateway, "The shop is temporarily unavailable.")
		return
	}

	renderPage(w, http.StatusOK, "home", HomePageData{
		BasePageData: h.base(r, "Home"),
		Collections:  collections,
	})
}

// CollectionsHandler renders the collections index
func (h *PageHandlers) CollectionsHandler(w http.ResponseWriter, r *http.Request) {
	collections, err := h.commerce.Collections(r.Context())
	if err != nil {
		log.LogErrorWithFields("pages", "Failed to load collections", map[string]any{
			"error": err.Error(),
		})
		h.renderError(w, r, http.StatusBadGateway, "The shop is temporarily unavailable.")
		return
	}

	renderPage(w, http.StatusOK, "collections", CollectionsPageData{
		BasePageData: h.base(r, "Collections"),
		Collections:  collections,
	})
}

// CollectionHandler renders a single collection's products
func (h *PageHandlers) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")

	detail, err := h.commerce.CollectionProducts(r.Context(), handle)
	if err != nil {
		log.LogErrorWithFields("pages", "Failed to load collection", map[string]any{
			"handle": handle,
			"error":  err.Error(),
		})
		h.renderError(w, r, http.StatusBadGateway, "The shop is temporarily unavailable.")
		return
	}
	if detail == nil {
		h.renderError(w, r, http.StatusNotFound, "That collection does not exist.")
		return
	}

	renderPage(w, http.StatusOK, "collection", CollectionPageData{
		BasePageData: h.base(r, detail.Title),
		Collection:   detail,
		Products:     detail.Products,
	})
}

// ProductHandler renders the product detail page
func (h *PageHandlers) ProductHandler(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")

	product, err := h.commerce.ProductByHandle(r.Context(), handle)
	if err != nil {
		log.LogErrorWithFields("pages", "Failed to load product", map[string]any{
			"handle": handle,
			"error":  err.Error(),
		})
		h.renderError(w, r, http.StatusBadGateway, "The shop is temporarily unavailable.")
		return
	}
	if product == nil {
		h.renderError(w, r, http.StatusNotFound, "That product does not exist.")
		return
	}

	renderPage(w, http.StatusOK, "product", ProductPageData{
		BasePageData: h.base(r, product.Title),
		Product:      product,
	})
}

// SearchHandler renders the search page; with no query it is just the form
func (h *PageHandlers) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	data := SearchPageData{
		BasePageData: h.base(r, "Search"),
		Query:        query,
	}

	if query != "" {
		products, err := h.commerce.SearchProducts(r.Context(), query)
		if err != nil {
			log.LogErrorWithFields("pages", "Search failed", map[string]any{
				"query": query,
				"error": err.Error(),
			})
			h.renderError(w, r, http.StatusBadGateway, "Search is temporarily unavailable.")
			return
		}
		data.Products = products
	}

	renderPage(w, http.StatusOK, "search", data)
}

// AccountHandler renders the signed-in account page. Anonymous visitors are
// sent to the login flow.
func (h *PageHandlers) AccountHandler(w http.ResponseWriter, r *http.Request) {
	_, session, err := h.customers.CurrentSession(r.Context(), r)
	if err != nil {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return
	}

	data := AccountPageData{BasePageData: h.base(r, "Account")}
	data.Customer = session.Profile
	renderPage(w, http.StatusOK, "account", data)
}

// brandPages is the static content behind /pages/{slug}
var brandPages = map[string]ContentPageData{
	"about": {
		Heading: "About",
		Paragraphs: []string{
			"Atelier Line makes considered clothing in small runs, cut and finished in our own workshop.",
			"Every piece is designed to be worn for years, not seasons.",
		},
	},
	"story": {
		Heading: "Our story",
		Paragraphs: []string{
			"We started with a single rail of samples and a belief that fewer, better garments beat a full wardrobe.",
			"Today the collection is still small on purpose. Each new piece has to earn its place.",
		},
	},
	"contact": {
		Heading: "Contact",
		Paragraphs: []string{
			"Questions about an order, a fit, or a fabric? Write to hello@atelierline.example and a human will answer.",
			"Our studio is open by appointment.",
		},
	},
}

// ContentHandler renders the static brand pages
func (h *PageHandlers) ContentHandler(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	page, ok := brandPages[slug]
	if !ok {
		h.renderError(w, r, http.StatusNotFound, "That page does not exist.")
		return
	}

	page.BasePageData = h.base(r, page.Heading)
	renderPage(w, http.StatusOK, "page", page)
}

