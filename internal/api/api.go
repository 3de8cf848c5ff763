// Package api wires the HTTP surface: routing, request decoding, response
// shaping and the background token-cleanup task.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/budgetd-io/budgetd/internal/auth"
	"github.com/budgetd-io/budgetd/internal/config"
	"github.com/budgetd-io/budgetd/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Api struct {
	Config *config.Config
	Store  *store.Store
	Auth   *auth.Service
	Router *chi.Mux
}

func NewApi(cfg *config.Config, st *store.Store, authSvc *auth.Service) *Api {
	api := &Api{
		Config: cfg,
		Store:  st,
		Auth:   authSvc,
		Router: chi.NewRouter(),
	}
	api.setupRoutes()
	return api
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Heartbeat("/heartbeat"))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", api.Register)
			r.Post("/login", api.Login)
			r.Post("/refresh", api.Refresh)
			r.Post("/forgot-password", api.ForgotPassword)
			r.Post("/reset-password", api.ResetPassword)
			r.Post("/verify-email", api.VerifyEmail)
			r.Post("/resend-verification", api.ResendVerification)

			r.Group(func(r chi.Router) {
				r.Use(api.Auth.RequireAuth)
				r.Get("/me", api.Me)
				r.Put("/profile", api.UpdateProfile)
				r.Post("/logout", api.Logout)
				r.Post("/change-password", api.ChangePassword)
				r.Delete("/account", api.DeleteAccount)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(api.Auth.RequireAuth)

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", api.ListAccounts)
				r.Post("/", api.CreateAccount)
				r.Get("/{accountID}", api.GetAccount)
				r.Put("/{accountID}", api.UpdateAccount)
				r.Delete("/{accountID}", api.DeleteFinancialAccount)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", api.ListCategories)
				r.Post("/", api.CreateCategory)
				r.Get("/{categoryID}", api.GetCategory)
				r.Put("/{categoryID}", api.UpdateCategory)
				r.Delete("/{categoryID}", api.DeleteCategory)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", api.ListTransactions)
				r.Post("/", api.CreateTransaction)
				r.Get("/{transactionID}", api.GetTransaction)
				r.Put("/{transactionID}", api.UpdateTransaction)
				r.Delete("/{transactionID}", api.DeleteTransaction)
			})

			r.Route("/budgets", func(r chi.Router) {
				r.Get("/", api.ListBudgets)
				r.Route("/{year}/{month}", func(r chi.Router) {
					r.Get("/", api.GetBudget)
					r.Post("/items", api.CreateBudgetItem)
					r.Put("/items/{categoryID}", api.UpdateBudgetItem)
					r.Delete("/items/{categoryID}", api.DeleteBudgetItem)
				})
			})
		})
	})
}

// Serve starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully. The token cleanup loop runs for the life of the server.
func (api *Api) Serve() error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort),
		Handler: api.Router,
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go api.cleanupLoop(cleanupCtx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[API] Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Printf("[API] Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// cleanupLoop deletes expired blacklist, reset and verification rows once
// an hour.
func (api *Api) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		n, err := api.Auth.CleanupExpiredTokens(ctx)
		if err != nil {
			log.Printf("[API] Token cleanup failed: %v", err)
		} else if n > 0 {
			log.Printf("[API] Token cleanup removed %d expired rows", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
