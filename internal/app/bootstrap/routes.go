// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"errors"
	"net/http"

	catalogfeature "github.com/dalemusser/washhub/internal/app/features/catalog"
	customersfeature "github.com/dalemusser/washhub/internal/app/features/customers"
	feedsfeature "github.com/dalemusser/washhub/internal/app/features/feeds"
	healthfeature "github.com/dalemusser/washhub/internal/app/features/health"
	invitationsfeature "github.com/dalemusser/washhub/internal/app/features/invitations"
	ordersfeature "github.com/dalemusser/washhub/internal/app/features/orders"
	userinfofeature "github.com/dalemusser/washhub/internal/app/features/userinfo"
	workspacesfeature "github.com/dalemusser/washhub/internal/app/features/workspaces"
	"github.com/dalemusser/washhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/washhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/washhub/internal/app/store/users"
	"github.com/dalemusser/washhub/internal/app/system/apiresp"
	"github.com/dalemusser/washhub/internal/app/system/auditlog"
	"github.com/dalemusser/washhub/internal/app/system/auth"
	"github.com/dalemusser/washhub/internal/app/system/ratelimit"
	"github.com/dalemusser/washhub/internal/app/system/workspace"
	"github.com/dalemusser/washhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errNotStarted = errors.New("bootstrap: BuildHandler called before Startup")

// BuildHandler constructs the root HTTP handler.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. Everything except /health requires a bearer
// token.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.bg == nil || deps.bg.limiter == nil {
		return nil, errNotStarted
	}
	return buildRouter(appCfg, deps, deps.bg.limiter, logger), nil
}

func buildRouter(appCfg AppConfig, deps DBDeps, limiter ratelimit.Allower, logger *zap.Logger) chi.Router {
	db := deps.MongoDatabase
	fail := apiresp.Failer(logger)

	auditLog := auditlog.New(audit.New(db), logger, deps.Publisher, auditlog.Config{Mode: appCfg.AuditLog})
	members := membershipstore.New(db, logger)
	verifier := auth.NewVerifier(appCfg.JWTSecret, appCfg.JWTIssuer)
	requireWorkspace := workspace.Middleware(userstore.New(db), logger, fail)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	var checks map[string]healthfeature.Check
	if deps.Redis != nil {
		checks = map[string]healthfeature.Check{
			"redis": func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
		}
	}
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(deps.MongoClient, checks, logger)))

	r.Group(func(r chi.Router) {
		r.Use(verifier.Require(fail))

		userinfofeature.MountRoutes(r, userinfofeature.NewHandler(db, logger))

		workspacesHandler := workspacesfeature.NewHandler(db, members, auditLog, logger)
		r.Mount("/workspaces", workspacesfeature.Routes(workspacesHandler, requireWorkspace, fail))

		invitationsHandler := invitationsfeature.NewHandler(members, limiter, auditLog, logger)
		r.Mount("/invitations", invitationsfeature.Routes(invitationsHandler, requireWorkspace))

		// Business records
		r.Mount("/customers", customersfeature.Routes(customersfeature.NewHandler(db, logger), requireWorkspace))
		r.Mount("/services", catalogfeature.Routes(catalogfeature.NewHandler(db, models.KindService, logger), requireWorkspace))
		r.Mount("/items", catalogfeature.Routes(catalogfeature.NewHandler(db, models.KindItem, logger), requireWorkspace))
		r.Mount("/orders", ordersfeature.Routes(ordersfeature.NewHandler(db, logger), requireWorkspace))

		// Realtime
		r.Mount("/feeds", feedsfeature.Routes(feedsfeature.NewHandler(db, logger), requireWorkspace))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apiresp.WriteJSON(w, http.StatusNotFound, apiresp.Envelope{
			Code:    apiresp.CodeNotFound,
			Message: "no such endpoint",
		})
	})

	return r
}
