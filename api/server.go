package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/searchbox/config"
	"github.com/meghashyamc/searchbox/db/kvdb"
	"github.com/meghashyamc/searchbox/fetch"
	"github.com/meghashyamc/searchbox/logger"
	"github.com/meghashyamc/searchbox/metrics"
	"github.com/meghashyamc/searchbox/services/render"
	"github.com/meghashyamc/searchbox/services/search"
	"github.com/meghashyamc/searchbox/validation"
)

const shutdownTimeout = 10 * time.Second

type siteSettings struct {
	BaseURL string `json:"base_url" validate:"required,valid_base_url"`
}

type server struct {
	cfg        *config.Config
	router     *gin.Engine
	httpServer *http.Server
	kvdb       kvdb.DB
	controller *search.Controller
	metrics    *metrics.Metrics
	validator  *validation.Validator
	logger     logger.Logger
}

// Run wires the search pipeline, starts loading the index in the background
// and serves HTTP until ctx is done or an interrupt arrives.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	gin.SetMode(gin.ReleaseMode)
	s := &server{
		cfg:    cfg,
		logger: logger.New(cfg.GetLogLevel()),
	}
	if err := s.setupDependencies(ctx); err != nil {
		return err
	}
	s.startIndexLoad(ctx)
	s.setupRouter()

	return s.serve(ctx)
}

func (s *server) setupDependencies(ctx context.Context) error {
	var err error
	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}

	site := siteSettings{BaseURL: s.cfg.GetSiteBaseURL()}
	if err := s.validator.Validate(site); err != nil {
		s.logger.Error("site settings are invalid", "base_url", site.BaseURL, "err", err.Error())
		return fmt.Errorf("site settings are invalid: %w", err)
	}

	fetcher, err := fetch.New(s.logger, site.BaseURL, s.cfg.GetFetchTimeout())
	if err != nil {
		s.logger.Error("error creating fetch client", "err", err.Error())
		return err
	}

	s.kvdb, err = kvdb.New(s.logger, s.cfg.GetKVDBPath())
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}

	s.metrics = metrics.New()
	renderer := render.New(s.logger, fetcher, s.metrics)
	loader := search.NewLoader(s.logger, fetcher, s.validator, s.cfg.GetIndexPath(), s.cfg.GetSearchMaxResults())
	s.controller = search.New(ctx, s.logger, loader, renderer, s.kvdb, s.metrics, search.Options{
		MaxInFlight:  s.cfg.GetMaxInFlight(),
		QueryHistory: s.cfg.GetQueryHistory(),
	})

	return nil
}

// startIndexLoad loads the index once. Until it completes, and forever if it
// fails, submits are answered with 503.
func (s *server) startIndexLoad(ctx context.Context) {
	go func() {
		if err := s.controller.Start(ctx); err != nil {
			s.logger.Error("search is unavailable", "err", err.Error())
		}
	}()
}

func (s *server) setupRouter() {
	router := newRouter(s.logger, s.metrics)
	setupRoutes(router, s.logger, s.controller, s.metrics, s.validator)
	s.router = router
}

func (s *server) serve(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler: s.router.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			s.logger.Error("http server failed", "err", err.Error())
			s.close()
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	return s.shutdown()
}

func (s *server) shutdown() error {
	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.close()
	if err != nil {
		s.logger.Error("error shutting down http server", "err", err.Error())
		return err
	}

	s.logger.Info("shut down http server successfully")
	return nil
}

func (s *server) close() {
	if err := s.controller.Close(); err != nil {
		s.logger.Error("error closing search index", "err", err.Error())
	}
	if err := s.kvdb.Close(); err != nil {
		s.logger.Error("error closing kvDB", "err", err.Error())
	}
}
