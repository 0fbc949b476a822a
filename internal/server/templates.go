package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/atelierline/storefront/internal/commerce"
	"github.com/atelierline/storefront/internal/log"
	"github.com/atelierline/storefront/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// Every page shares the layout but defines its own "content" block, so the
// layout is parsed once and cloned per page.
var pageTemplates = mustParsePages(
	"home",
	"collections",
	"collection",
	"product",
	"search",
	"account",
	"callback",
	"page",
	"error",
)

func mustParsePages(names ...string) map[string]*template.Template {
	base := template.Must(template.New("layout").ParseFS(templateFS, "templates/layout.html"))
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		clone := template.Must(base.Clone())
		pages[name] = template.Must(clone.ParseFS(templateFS, "templates/"+name+".html"))
	}
	return pages
}

// BasePageData is the shared chrome: store name, cart summary for the header
// badge and drawer, and the signed-in customer if any
type BasePageData struct {
	Title     string
	StoreName string
	Cart      *storage.CartRecord
	Customer  *storage.CustomerProfile
}

// HomePageData renders the landing page
type HomePageData struct {
	BasePageData
	Collections []commerce.Collection
}

// CollectionsPageData renders the collections index
type CollectionsPageData struct {
	BasePageData
	Collections []commerce.Collection
}

// CollectionPageData renders a single collection with its products
type CollectionPageData struct {
	BasePageData
	Collection *commerce.CollectionDetail
	Products   []commerce.Product
}

// ProductPageData renders the product detail page
type ProductPageData struct {
	BasePageData
	Product *commerce.Product
}

// SearchPageData renders the search form and results
type SearchPageData struct {
	BasePageData
	Query    string
	Products []commerce.Product
}

// AccountPageData renders the signed-in account page
type AccountPageData struct {
	BasePageData
}

// CallbackPageData reports the outcome of the login callback
type CallbackPageData struct {
	BasePageData
	Succeeded bool
	Message   string
}

// ContentPageData renders the static brand pages (about, story, contact)
type ContentPageData struct {
	BasePageData
	Heading    string
	Paragraphs []string
}

// ErrorPageData renders the error page
type ErrorPageData struct {
	BasePageData
	Message string
}

func renderPage(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := pageTemplates[name]
	if !ok {
		log.LogErrorWithFields("server", "Unknown page template", map[string]any{
			"template": name,
		})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.LogErrorWithFields("server", "Failed to render page", map[string]any{
			"template": name,
			"error":    err.Error(),
		})
	}
}
