package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/account"
	googleauth "esign-backend/internal/auth"
	"esign-backend/internal/documents"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/server/middleware"
	"esign-backend/internal/shared/server/respond"
	"esign-backend/internal/signatures"
	"esign-backend/internal/uploads"
	"esign-backend/internal/users"
)

// signRateLimitGroup throttles the public signing endpoints. They carry
// no authenticated principal, so the limiter keys on client IP.
const signRateLimitGroup = "SIGN"

// RouterDeps carries the handlers the router mounts. Construction is
// bootstrap's job; the router only wires middleware and routes.
type RouterDeps struct {
	Config           config.Config
	AccountHandler   *account.Handler
	DocumentHandler  *documents.Handler
	SignatureHandler *signatures.Handler
	UserHandler      *users.Handler
	GoogleAuth       *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Registered before the middleware chain: scrapes carry no identity
	// and should not show up in request logs.
	r.GET("/metrics", metrics.Handler())

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	deps.GoogleAuth.RegisterRoutes(api)
	deps.UserHandler.RegisterRoutes(api)
	deps.DocumentHandler.RegisterRoutes(api)
	deps.SignatureHandler.RegisterRoutes(api)
	deps.AccountHandler.RegisterRoutes(api)
	uploads.RegisterRoutes(api)

	public := api.Group("")
	public.Use(middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: signRateLimitGroup,
		Rules: map[string]middleware.RateLimitRule{
			signRateLimitGroup: {Rate: 2, Burst: 10},
		},
	}))
	deps.SignatureHandler.RegisterPublicRoutes(public)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
