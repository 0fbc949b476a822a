package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelierline/storefront/internal/cart"
	"github.com/atelierline/storefront/internal/commerce"
	"github.com/atelierline/storefront/internal/config"
	"github.com/atelierline/storefront/internal/crypto"
	"github.com/atelierline/storefront/internal/customer"
	"github.com/atelierline/storefront/internal/log"
	"github.com/atelierline/storefront/internal/server"
	"github.com/atelierline/storefront/internal/storage"
	"golang.org/x/sync/errgroup"
)

const cleanupInterval = time.Minute

// Storefront is the complete storefront application
type Storefront struct {
	config     config.Config
	httpServer *server.HTTPServer
	storage    storage.Storage
	cleanup    *storage.CleanupManager
	commerce   *commerce.Client
}

// NewStorefront builds the application with all dependencies wired
func NewStorefront(ctx context.Context, cfg config.Config) (*Storefront, error) {
	log.LogInfoWithFields("storefront", "Building storefront application", map[string]any{
		"baseURL": cfg.Store.BaseURL,
		"domain":  cfg.Commerce.Domain,
	})

	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	commerceClient := commerce.NewClient(
		cfg.Commerce.Domain,
		cfg.Commerce.APIVersion,
		string(cfg.Commerce.StorefrontToken),
	)

	customers := customer.NewController(
		cfg.Auth,
		store,
		commerceClient,
		[]byte(cfg.Store.SigningKey),
		cfg.Store.SessionTTL,
	)

	carts := cart.NewService(store, commerceClient)

	mux := buildHTTPHandler(cfg, store, commerceClient, carts, customers)
	httpServer := server.NewHTTPServer(mux, cfg.Store.Addr)

	return &Storefront{
		config:     cfg,
		httpServer: httpServer,
		storage:    store,
		cleanup:    storage.NewCleanupManager(store, cleanupInterval),
		commerce:   commerceClient,
	}, nil
}

// Run starts the application and blocks until shutdown
func (s *Storefront) Run() error {
	log.LogInfoWithFields("storefront", "Starting storefront", map[string]any{
		"addr": s.config.Store.Addr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)

	go func() {
		if err := s.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	s.cleanup.Start(ctx)

	// Best-effort catalog warmup; failures only cost the first visitor a
	// slower page
	go s.prefetchCatalog(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("storefront", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("storefront", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	case <-ctx.Done():
		shutdownReason = "context cancelled"
		log.LogInfoWithFields("storefront", "Context cancelled, shutting down", nil)
	}

	log.LogInfoWithFields("storefront", "Starting graceful shutdown", map[string]any{
		"reason":  shutdownReason,
		"timeout": "30s",
	})
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := s.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("storefront", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	s.cleanup.Stop()

	if err := s.storage.Close(); err != nil {
		log.LogWarnWithFields("storefront", "Storage close error", map[string]any{
			"error": err.Error(),
		})
	}

	log.LogInfoWithFields("storefront", "Application shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}

// prefetchCatalog warms the platform's caches for the collections a visitor
// hits first. Bounded concurrency, first error only logged.
func (s *Storefront) prefetchCatalog(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	collections, err := s.commerce.Collections(ctx)
	if err != nil {
		log.LogWarnWithFields("storefront", "Catalog prefetch skipped", map[string]any{
			"error": err.Error(),
		})
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, collection := range collections {
		handle := collection.Handle
		group.Go(func() error {
			_, err := s.commerce.CollectionProducts(groupCtx, handle)
			return err
		})
	}

	if err := group.Wait(); err != nil {
		log.LogWarnWithFields("storefront", "Catalog prefetch incomplete", map[string]any{
			"error": err.Error(),
		})
		return
	}

	log.LogInfoWithFields("storefront", "Catalog prefetch complete", map[string]any{
		"collections": len(collections),
	})
}

// setupStorage creates the session store backend selected by config
func setupStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	if cfg.Store.Storage == config.StorageKindFirestore {
		fs := cfg.Store.Firestore
		log.LogInfoWithFields("storage", "Using Firestore storage", map[string]any{
			"project":    fs.ProjectID,
			"database":   fs.Database,
			"collection": fs.Collection,
		})

		encryptor, err := crypto.NewAESEncryptor(string(cfg.Store.EncryptionKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create encryptor: %w", err)
		}

		firestoreStorage, err := storage.NewFirestoreStorage(
			ctx,
			fs.ProjectID,
			fs.Database,
			fs.Collection,
			fs.CredentialsFile,
			encryptor,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore storage: %w", err)
		}
		return firestoreStorage, nil
	}

	log.LogInfoWithFields("storage", "Using in-memory storage", map[string]any{})
	return storage.NewMemoryStorage(), nil
}

// buildHTTPHandler registers all routes with their middleware chains
func buildHTTPHandler(
	cfg config.Config,
	store storage.Storage,
	commerceClient *commerce.Client,
	carts *cart.Service,
	customers *customer.Controller,
) http.Handler {
	mux := http.NewServeMux()

	storeName := cfg.Store.Name
	if storeName == "" {
		storeName = "Storefront"
	}

	securityHeaders := server.NewSecurityHeadersMiddleware()
	pageLogger := server.NewLoggerMiddleware("pages")
	cartLogger := server.NewLoggerMiddleware("cart")
	authLogger := server.NewLoggerMiddleware("auth")
	adminLogger := server.NewLoggerMiddleware("admin")
	recoverer := server.NewRecoverMiddleware("server")

	pageHandlers := server.NewPageHandlers(storeName, commerceClient, carts, customers)
	cartHandlers := server.NewCartHandlers(commerceClient, carts, pageHandlers)
	authHandlers := server.NewAuthHandlers(customers, pageHandlers)

	mux.Handle("/health", server.NewHealthHandler())

	pageMiddleware := []server.MiddlewareFunc{securityHeaders, pageLogger, recoverer}
	mux.Handle("GET /{$}", server.ChainMiddleware(http.HandlerFunc(pageHandlers.HomeHandler), pageMiddleware...))
	mux.Handle("GET /collections", server.ChainMiddleware(http.HandlerFunc(pageHandlers.CollectionsHandler), pageMiddleware...))
	mux.Handle("GET /collections/{handle}", server.ChainMiddleware(http.HandlerFunc(pageHandlers.CollectionHandler), pageMiddleware...))
	mux.Handle("GET /products/{handle}", server.ChainMiddleware(http.HandlerFunc(pageHandlers.ProductHandler), pageMiddleware...))
	mux.Handle("GET /search", server.ChainMiddleware(http.HandlerFunc(pageHandlers.SearchHandler), pageMiddleware...))
	mux.Handle("GET /account", server.ChainMiddleware(http.HandlerFunc(pageHandlers.AccountHandler), pageMiddleware...))
	mux.Handle("GET /pages/{slug}", server.ChainMiddleware(http.HandlerFunc(pageHandlers.ContentHandler), pageMiddleware...))

	cartMiddleware := []server.MiddlewareFunc{securityHeaders, cartLogger, recoverer}
	mux.Handle("POST /cart/add", server.ChainMiddleware(http.HandlerFunc(cartHandlers.AddHandler), cartMiddleware...))
	mux.Handle("POST /cart/remove", server.ChainMiddleware(http.HandlerFunc(cartHandlers.RemoveHandler), cartMiddleware...))
	mux.Handle("POST /cart/quantity", server.ChainMiddleware(http.HandlerFunc(cartHandlers.QuantityHandler), cartMiddleware...))
	mux.Handle("POST /cart/open", server.ChainMiddleware(http.HandlerFunc(cartHandlers.OpenHandler), cartMiddleware...))
	mux.Handle("POST /cart/close", server.ChainMiddleware(http.HandlerFunc(cartHandlers.CloseHandler), cartMiddleware...))
	mux.Handle("POST /cart/checkout", server.ChainMiddleware(http.HandlerFunc(cartHandlers.CheckoutHandler), cartMiddleware...))

	authMiddleware := []server.MiddlewareFunc{securityHeaders, authLogger, recoverer}
	mux.Handle("GET /auth/login", server.ChainMiddleware(http.HandlerFunc(authHandlers.LoginHandler), authMiddleware...))
	mux.Handle("GET /auth/callback", server.ChainMiddleware(http.HandlerFunc(authHandlers.CallbackHandler), authMiddleware...))
	mux.Handle("POST /auth/logout", server.ChainMiddleware(http.HandlerFunc(authHandlers.LogoutHandler), authMiddleware...))
	mux.Handle("POST /api/auth/token", server.ChainMiddleware(http.HandlerFunc(authHandlers.TokenHandler), server.NewCORSMiddleware(nil), authLogger, recoverer))

	if admin := cfg.Store.Admin; admin != nil && admin.Enabled {
		log.LogInfoWithFields("server", "Admin endpoints enabled", map[string]any{
			"username": admin.Username,
		})

		adminHandlers := server.NewAdminHandlers(store, storeName)
		adminMiddleware := []server.MiddlewareFunc{
			adminLogger,
			server.NewAdminAuthMiddleware(admin),
			recoverer,
		}
		mux.Handle("/admin/status", server.ChainMiddleware(http.HandlerFunc(adminHandlers.StatusHandler), adminMiddleware...))
		mux.Handle("/admin/logging", server.ChainMiddleware(http.HandlerFunc(adminHandlers.LoggingHandler), adminMiddleware...))
	}

	log.LogInfoWithFields("server", "Storefront routes initialized", nil)
	return mux
}
