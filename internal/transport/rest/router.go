package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/krwhynot/pantry-crm/internal/auth"
	"github.com/krwhynot/pantry-crm/internal/contact"
	"github.com/krwhynot/pantry-crm/internal/interaction"
	"github.com/krwhynot/pantry-crm/internal/opportunity"
	"github.com/krwhynot/pantry-crm/internal/organization"
	"github.com/krwhynot/pantry-crm/internal/product"
	"github.com/krwhynot/pantry-crm/internal/rbac"
	"github.com/krwhynot/pantry-crm/internal/reporting"
	"github.com/krwhynot/pantry-crm/internal/session"
	"github.com/krwhynot/pantry-crm/internal/transport/middleware"
	"github.com/krwhynot/pantry-crm/internal/transport/swagger"
	"github.com/krwhynot/pantry-crm/internal/user"
)

// Handlers bundles every domain handler the router mounts. A nil handler
// skips its routes, which keeps partial wiring possible in tests.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Session      *session.Handler
	RBAC         *rbac.Handler
	Organization *organization.Handler
	Contact      *contact.Handler
	Interaction  *interaction.Handler
	Opportunity  *opportunity.Handler
	Product      *product.Handler
	Reporting    *reporting.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, redisClient *redis.Client, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, redisClient)

	middleware.RegisterMetrics()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.Metrics)

	router.Handle("/metrics", middleware.MetricsHandler())

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		if h.Auth == nil {
			return
		}

		// Everything below requires a valid access token.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/auth/me", h.Auth.Me)

			if h.Session != nil {
				pr.Route("/sessions", func(sr chi.Router) {
					sr.Get("/", h.Session.List)
					sr.Delete("/{id}", h.Session.Revoke)
					sr.Delete("/", h.Session.RevokeAll)
				})
			}

			if h.User != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Post("/change-password", h.User.ChangePassword)

					ur.Group(func(ar chi.Router) {
						ar.Use(middleware.RequireLevel(auth.LevelAdmin))
						ar.Post("/", h.User.Create)
						ar.Get("/", h.User.List)
						ar.Get("/{id}", h.User.Get)
						ar.Put("/{id}", h.User.Update)
						ar.Delete("/{id}", h.User.Deactivate)
					})
				})
			}

			if h.RBAC != nil {
				pr.Route("/roles", func(rr chi.Router) {
					rr.Get("/", h.RBAC.ListRoles)

					rr.Group(func(ar chi.Router) {
						ar.Use(middleware.RequireLevel(auth.LevelAdmin))
						ar.Get("/users/{userID}", h.RBAC.UserRoles)
						ar.Post("/assign", h.RBAC.Assign)
						ar.Post("/revoke", h.RBAC.Revoke)
					})
				})
			}

			if h.Organization != nil {
				pr.Route("/organizations", func(or chi.Router) {
					or.With(middleware.RequirePermission(rbac.ResourceOrganizations, rbac.ActionRead)).Get("/", h.Organization.List)
					or.With(middleware.RequirePermission(rbac.ResourceOrganizations, rbac.ActionRead)).Get("/duplicates", h.Organization.Duplicates)
					or.With(middleware.RequirePermission(rbac.ResourceOrganizations, rbac.ActionRead)).Get("/{id}", h.Organization.Get)
					or.With(middleware.RequirePermission(rbac.ResourceOrganizations, rbac.ActionRead)).Get("/{id}/hierarchy", h.Organization.Hierarchy)
					or.With(middleware.RequirePermission(rbac.ResourceOrganizations, rbac.ActionWrite)).Post("/", h.Organization.Create)
					or.With(middleware.RequirePermission(rbac.ResourceOrganizations, rbac.ActionWrite)).Put("/{id}", h.Organization.Update)
					or.With(middleware.RequirePermission(rbac.ResourceOrganizations, rbac.ActionWrite)).Put("/{id}/parent", h.Organization.SetParent)
					or.With(middleware.RequirePermission(rbac.ResourceOrganizations, rbac.ActionWrite)).Post("/{id}/merge", h.Organization.Merge)
					or.With(middleware.RequirePermission(rbac.ResourceOrganizations, rbac.ActionDelete)).Delete("/{id}", h.Organization.Delete)
				})
			}

			if h.Contact != nil {
				pr.Route("/contacts", func(cr chi.Router) {
					cr.With(middleware.RequirePermission(rbac.ResourceContacts, rbac.ActionRead)).Get("/", h.Contact.List)
					cr.With(middleware.RequirePermission(rbac.ResourceContacts, rbac.ActionRead)).Get("/{id}", h.Contact.Get)
					cr.With(middleware.RequirePermission(rbac.ResourceContacts, rbac.ActionWrite)).Post("/", h.Contact.Create)
					cr.With(middleware.RequirePermission(rbac.ResourceContacts, rbac.ActionWrite)).Put("/{id}", h.Contact.Update)
					cr.With(middleware.RequirePermission(rbac.ResourceContacts, rbac.ActionWrite)).Put("/{id}/primary", h.Contact.SetPrimary)
					cr.With(middleware.RequirePermission(rbac.ResourceContacts, rbac.ActionDelete)).Delete("/{id}", h.Contact.Delete)
				})
			}

			if h.Interaction != nil {
				pr.Route("/interactions", func(ir chi.Router) {
					ir.With(middleware.RequirePermission(rbac.ResourceInteractions, rbac.ActionRead)).Get("/", h.Interaction.List)
					ir.With(middleware.RequirePermission(rbac.ResourceInteractions, rbac.ActionRead)).Get("/{id}", h.Interaction.Get)
					ir.With(middleware.RequirePermission(rbac.ResourceInteractions, rbac.ActionWrite)).Post("/", h.Interaction.Create)
					ir.With(middleware.RequirePermission(rbac.ResourceInteractions, rbac.ActionWrite)).Put("/{id}", h.Interaction.Update)
					ir.With(middleware.RequirePermission(rbac.ResourceInteractions, rbac.ActionWrite)).Patch("/{id}/complete", h.Interaction.Complete)
					ir.With(middleware.RequirePermission(rbac.ResourceInteractions, rbac.ActionWrite)).Patch("/{id}/cancel", h.Interaction.Cancel)
					ir.With(middleware.RequirePermission(rbac.ResourceInteractions, rbac.ActionDelete)).Delete("/{id}", h.Interaction.Delete)
				})
			}

			if h.Opportunity != nil {
				pr.Route("/opportunities", func(or chi.Router) {
					or.With(middleware.RequirePermission(rbac.ResourceOpportunities, rbac.ActionRead)).Get("/", h.Opportunity.List)
					or.With(middleware.RequirePermission(rbac.ResourceOpportunities, rbac.ActionRead)).Get("/{id}", h.Opportunity.Get)
					or.With(middleware.RequirePermission(rbac.ResourceOpportunities, rbac.ActionRead)).Get("/{id}/history", h.Opportunity.StageHistory)
					or.With(middleware.RequirePermission(rbac.ResourceOpportunities, rbac.ActionWrite)).Post("/", h.Opportunity.Create)
					or.With(middleware.RequirePermission(rbac.ResourceOpportunities, rbac.ActionWrite)).Put("/{id}", h.Opportunity.Update)
					or.With(middleware.RequirePermission(rbac.ResourceOpportunities, rbac.ActionWrite)).Patch("/{id}/stage", h.Opportunity.ChangeStage)
					or.With(middleware.RequirePermission(rbac.ResourceOpportunities, rbac.ActionDelete)).Delete("/{id}", h.Opportunity.Delete)
				})
			}

			if h.Product != nil {
				pr.Route("/products", func(pdr chi.Router) {
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionRead)).Get("/", h.Product.List)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionRead)).Get("/low-stock", h.Product.LowStock)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionRead)).Get("/{id}", h.Product.Get)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionRead)).Get("/{id}/tiers", h.Product.Tiers)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionRead)).Get("/{id}/price", h.Product.Price)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionRead)).Get("/{id}/inventory", h.Product.Inventory)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionWrite)).Post("/", h.Product.Create)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionWrite)).Put("/{id}", h.Product.Update)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionWrite)).Put("/{id}/tiers", h.Product.SetTiers)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionWrite)).Patch("/{id}/inventory", h.Product.AdjustInventory)
					pdr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionDelete)).Delete("/{id}", h.Product.Delete)
				})

				pr.Route("/product-categories", func(cr chi.Router) {
					cr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionRead)).Get("/", h.Product.ListCategories)
					cr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionWrite)).Post("/", h.Product.CreateCategory)
					cr.With(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionDelete)).Delete("/{categoryID}", h.Product.DeactivateCategory)
				})
			}

			if h.Reporting != nil {
				pr.Route("/reports", func(rr chi.Router) {
					rr.Use(middleware.RequirePermission(rbac.ResourceReports, rbac.ActionRead))
					rr.Use(middleware.RequireLevel(auth.LevelManager))
					rr.Get("/pipeline", h.Reporting.Pipeline)
					rr.Get("/activity", h.Reporting.Activity)
					rr.Get("/top-organizations", h.Reporting.TopOrganizations)
				})
			}
		})
	})
}
