package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/promoflow/auth-service/internal/config"
	"github.com/promoflow/auth-service/internal/domain/models"
	"github.com/promoflow/auth-service/internal/handler/http/middleware"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Verifier middleware.TokenVerifier
	Auth     *AuthHandler
	Me       *MeHandler
	Users    *UserHandler
	Health   *HealthHandler
}

// NewRouter builds the gin engine with the full middleware chain and all
// route groups mounted.
func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Logger),
		middleware.Logging(d.Logger),
		middleware.Metrics(),
		middleware.CORS(d.Config.Server.AllowedOrigins),
	)

	r.GET("/health", d.Health.Live)
	r.GET("/health/ready", d.Health.Ready)
	if d.Config.Metrics.Enabled {
		r.GET(d.Config.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.GET("/:provider/authorize", d.Auth.Authorize)
		auth.POST("/:provider/callback", d.Auth.Callback)
		auth.POST("/refresh", d.Auth.Refresh)
	}

	authed := v1.Group("/auth", middleware.Auth(d.Verifier))
	{
		authed.GET("/me", d.Me.GetMe)
		authed.PATCH("/me", d.Me.UpdateMe)
		authed.GET("/me/providers", d.Me.ListProviders)
		authed.DELETE("/:provider/link", d.Me.DisconnectProvider)
		authed.POST("/logout", d.Auth.Logout)
	}

	admin := v1.Group("/users", middleware.Auth(d.Verifier), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("", d.Users.List)
		admin.GET("/:id", d.Users.Get)
		admin.DELETE("/:id", d.Users.Delete)
	}

	return r
}
