package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loangraph/microlend/internal/auth"
	"github.com/loangraph/microlend/internal/config"
	"github.com/loangraph/microlend/internal/contract"
	"github.com/loangraph/microlend/internal/http/handlers"
	"github.com/loangraph/microlend/internal/http/middleware"
	"github.com/loangraph/microlend/internal/version"
	"github.com/loangraph/microlend/internal/ws"
)

type Dependencies struct {
	Pinger     handlers.Pinger
	Dispatcher *contract.Dispatcher
	WSHandler  *ws.Handler
	JWTManager *auth.JWTManager
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "duration_ms", time.Since(start).Milliseconds())
	})
	r.Use(middleware.RequestBodyLimit(cfg.MaxBodyBytes))

	var height func() uint64
	if deps.Dispatcher != nil {
		height = deps.Dispatcher.System().Host.Height
	}
	health := handlers.NewHealthHandler(deps.Pinger, height)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version, contract.LiquidityPool, contract.LoanManager)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.JWTManager != nil {
		requireAuth := middleware.RequireAuth(deps.JWTManager, cfg.AuthEnableBearer)
		authHandler := handlers.NewAuthHandler(deps.JWTManager, auth.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure, Strict: cfg.CookieStrict}, cfg.JWTAccessTTL)

		authGroup := r.Group("/v1/auth")
		if !cfg.IsProd() {
			authGroup.POST("/dev-token", authHandler.DevToken)
		}
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", requireAuth, authHandler.Me)

		if deps.Dispatcher != nil {
			ledger := handlers.NewLedgerHandler(deps.Dispatcher, logger)
			views := handlers.NewViewHandler(deps.Dispatcher)

			v1 := r.Group("/v1")
			v1.GET("/chain", ledger.Chain)
			v1.GET("/balances/:principal", ledger.Balance)
			v1.GET("/contracts/:contract/methods", ledger.Methods)
			v1.POST("/contracts/:contract/read", ledger.Read)
			v1.POST("/contracts/:contract/call", requireAuth, ledger.Call)
			v1.GET("/assets", views.ListAssets)
			v1.GET("/assets/:assetId", views.GetAsset)
			v1.GET("/loans/:loanId", views.GetLoan)

			if !cfg.IsProd() {
				v1.POST("/chain/advance", requireAuth, middleware.RequireRole(auth.RoleOperator), ledger.Advance)
			}
		}

		if deps.WSHandler != nil {
			r.GET("/v1/ws", requireAuth, deps.WSHandler.HandleWebSocket)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
