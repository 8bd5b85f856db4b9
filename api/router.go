package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/searchbox/api/handlers"
	"github.com/meghashyamc/searchbox/logger"
	"github.com/meghashyamc/searchbox/metrics"
	"github.com/meghashyamc/searchbox/validation"
)

func setupRoutes(router *gin.Engine, logger logger.Logger, controller handlers.SearchController, metrics *metrics.Metrics, validator *validation.Validator) {
	router.GET("/health", health())
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	handlers.SetupSearch(router, logger, controller, validator)
	handlers.SetupResults(router, logger, controller)
}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter(logger logger.Logger, metrics *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(requestIDMiddleware())
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware(metrics))

	return router
}
