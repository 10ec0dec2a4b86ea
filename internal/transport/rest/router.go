package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/arityo/merchant-bridge/internal/bridge"
	"github.com/arityo/merchant-bridge/internal/identity"
	"github.com/arityo/merchant-bridge/internal/invite"
	"github.com/arityo/merchant-bridge/internal/permission"
	"github.com/arityo/merchant-bridge/internal/team"
	"github.com/arityo/merchant-bridge/internal/transport/middleware"
	"github.com/arityo/merchant-bridge/internal/transport/swagger"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	bridgeHandler *bridge.Handler,
	identityHandler *identity.Handler,
	inviteHandler *invite.Handler,
	teamHandler *team.Handler,
	levelHandler *permission.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check routes
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// OAuth bridge routes: the browser dance plus the JSON invocation,
		// including the NeedsEmail retry path. All pre-session, no auth.
		if bridgeHandler != nil {
			r.Route("/oauth/square", func(sr chi.Router) {
				sr.Get("/authorize", bridgeHandler.Authorize)
				sr.Get("/callback", bridgeHandler.Callback)
				sr.Post("/bridge", bridgeHandler.Bridge)
			})
		}

		// Email+password auth for invited members
		if identityHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", identityHandler.Login)
				sr.Post("/refresh", identityHandler.RefreshToken)
			})
		}

		if identityHandler != nil {
			// Administrative routes require a bearer session with the admin role
			r.Group(func(ar chi.Router) {
				ar.Use(identityHandler.AuthMiddleware)
				ar.Use(middleware.RequireAdmin(logger))

				if inviteHandler != nil {
					ar.Post("/team/invites", inviteHandler.CreateInvite)
				}

				if teamHandler != nil {
					ar.Route("/team/members", func(tr chi.Router) {
						tr.Get("/", teamHandler.ListMembers)
						tr.Get("/{id}", teamHandler.GetMember)
						tr.Patch("/{id}/level", teamHandler.ReassignLevel)
						tr.Patch("/{id}/permissions", teamHandler.TogglePermission)
					})
				}

				if levelHandler != nil {
					ar.Route("/levels", func(lr chi.Router) {
						lr.Get("/", levelHandler.ListLevels)
						lr.Post("/", levelHandler.CreateLevel)
						lr.Get("/{id}", levelHandler.GetLevel)
						lr.Patch("/{id}", levelHandler.UpdateLevel)
						lr.Delete("/{id}", levelHandler.DeleteLevel)
					})
				}
			})
		}
	})
}
