package handlers

import (
	"net/http"

	"github.com/SscSPs/etat_civil_app/cmd/docs"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/SscSPs/etat_civil_app/internal/middleware"
	"github.com/SscSPs/etat_civil_app/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	resolver portssvc.ActorResolver,
	callbacks portssvc.PaymentCallbackVerifier,
	gatherer prometheus.Gatherer,
) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	setupAPIV1Routes(r, services, resolver, callbacks)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	services *portssvc.ServiceContainer,
	resolver portssvc.ActorResolver,
	callbacks portssvc.PaymentCallbackVerifier,
) {
	public := r.Group("/api/v1")
	RegisterPaymentRoutes(public, services.Certificate, callbacks)

	v1 := r.Group("/api/v1", middleware.AuthMiddleware(resolver))
	RegisterDeclarationRoutes(v1, services.Declaration)
	RegisterCertificateRoutes(v1, services.Certificate)
	RegisterDocumentRoutes(v1, services.Documents)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
