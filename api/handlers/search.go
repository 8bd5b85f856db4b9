package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/searchbox/db/kvdb"
	"github.com/meghashyamc/searchbox/db/searchdb"
	"github.com/meghashyamc/searchbox/logger"
	"github.com/meghashyamc/searchbox/services/search"
	"github.com/meghashyamc/searchbox/validation"
)

// SearchController is the part of the search controller the handlers drive.
type SearchController interface {
	Submit(query string) (*search.Dispatch, error)
	Results() search.Results
	QueryStatus(generation uint64) (*kvdb.QueryRecord, error)
}

// SearchRequest limits the query to 1000 characters, not bytes.
type SearchRequest struct {
	Query string `json:"query" validate:"valid_query,max=1000"`
}

type SearchResponse struct {
	Generation uint64           `json:"generation"`
	Matches    []searchdb.Match `json:"matches"`
}

func SetupSearch(router *gin.Engine, logger logger.Logger, controller SearchController, validator *validation.Validator) {
	router.POST("/search", handleSearch(controller, logger, validator))
	router.GET("/search/:generation", handleGetQueryStatus(controller, logger))
}

// handleSearch starts a query and answers as soon as its matches are ranked.
// Fragments arrive in the results container afterwards.
func handleSearch(controller SearchController, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract request body parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		dispatch, err := controller.Submit(request.Query)
		if err != nil {
			statusCode := http.StatusInternalServerError
			switch {
			case errors.Is(err, search.ErrIndexNotLoaded):
				statusCode = http.StatusServiceUnavailable
			case errors.Is(err, searchdb.ErrMalformedQuery):
				statusCode = http.StatusBadRequest
			}
			logger.Warn("search failed", "query", request.Query, "err", err.Error())
			c.Abort()
			writeResponse(c, nil, statusCode, []string{err.Error()})
			return
		}

		writeResponse(c, SearchResponse{Generation: dispatch.Generation, Matches: dispatch.Matches}, http.StatusAccepted, nil)
	}
}

func handleGetQueryStatus(controller SearchController, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		generation, err := strconv.ParseUint(c.Param("generation"), 10, 64)
		if err != nil {
			logger.Warn("could not parse query generation", "generation", c.Param("generation"), "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{"generation must be a non-negative integer"})
			return
		}

		record, err := controller.QueryStatus(generation)
		if err != nil {
			if errors.Is(err, kvdb.ErrNotFound) {
				c.Abort()
				writeResponse(c, nil, http.StatusNotFound, []string{"query not found"})
				return
			}
			logger.Error("could not get query status", "generation", generation, "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, record, http.StatusOK, nil)
	}
}
