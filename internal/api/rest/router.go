package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swagFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "locksmith/docs"
	"locksmith/internal/dlock"
)

var validate = validator.New()

type ErrorResponse struct {
	Message string `json:"message"`
}

func createErrorResponse(c *gin.Context, code int, message string) {
	c.IndentedJSON(code, &ErrorResponse{
		Message: message,
	})
}

// lockErrorStatus maps lock errors to HTTP status codes
func lockErrorStatus(err error) int {
	switch {
	case errors.Is(err, dlock.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, dlock.ErrLockUnobtainable):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

func (api *apiDetails) setupRouter() *gin.Engine {
	r := gin.New()

	// Add logging middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/v1/health", "/metrics"},
	}))

	// Add recovery middleware to prevent crashes
	r.Use(gin.Recovery())

	// CORS configuration
	config := cors.DefaultConfig()
	config.AllowHeaders = append(config.AllowHeaders, "Access-Control-Allow-Origin")
	config.AllowOrigins = []string{"*"}
	r.Use(cors.New(config))

	// Root route for basic info
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Locksmith",
			"status":  "running",
		})
	})

	// Prometheus metrics
	if api.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(api.gatherer, promhttp.HandlerOpts{})))
	}

	// API V1 group
	apiV1 := r.Group("/api/v1")
	{
		// Swagger documentation
		apiV1.GET("/swagger/*any", ginSwagger.WrapHandler(swagFiles.Handler))

		// Health check
		apiV1.GET("/health", api.health)

		// Lock routes
		apiV1.POST("/locks/:resource", api.acquireLock)
		apiV1.DELETE("/locks/:resource", api.releaseLock)
		apiV1.PUT("/locks/:resource/ttl", api.touchLock)
		apiV1.GET("/locks/:resource", api.lockStatus)
	}

	// Log all registered routes
	api.logRoutes(r)

	return r
}

// logRoutes logs all registered routes for debugging
func (api *apiDetails) logRoutes(r *gin.Engine) {
	for _, routeInfo := range r.Routes() {
		api.logger.Debug("Registered route",
			slog.String("method", routeInfo.Method),
			slog.String("path", routeInfo.Path),
			slog.String("handler", routeInfo.Handler),
		)
	}
}

// health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (api *apiDetails) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
