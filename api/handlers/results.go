package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/searchbox/logger"
)

const formatHTML = "html"

type ResultsRequest struct {
	Format string `form:"format"`
}

func SetupResults(router *gin.Engine, logger logger.Logger, controller SearchController) {
	router.GET("/results", handleGetResults(controller, logger))
}

// handleGetResults returns whatever the current container holds. Polling it
// after a submit shows fragments as their renders finish.
func handleGetResults(controller SearchController, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := ResultsRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from results request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request query parameters"})
			return
		}

		results := controller.Results()
		if request.Format == formatHTML {
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(results.HTML))
			return
		}

		writeResponse(c, results, http.StatusOK, nil)
	}
}
