package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tarungka/rxwire/checkpoint"
	"github.com/tarungka/rxwire/internal/logger"
	"github.com/tarungka/rxwire/internal/pipeline"
	"github.com/tarungka/rxwire/state"
)

// Server exposes the pipelines and their checkpoints over HTTP.
type Server struct {
	manager     *pipeline.Manager
	checkpoints *checkpoint.Store
	logger      zerolog.Logger
}

// New creates a Server. checkpoints may be nil, then the checkpoint routes
// answer 404.
func New(manager *pipeline.Manager, checkpoints *checkpoint.Store) *Server {
	return &Server{
		manager:     manager,
		checkpoints: checkpoints,
		logger:      logger.GetLogger("server"),
	}
}

func (s *Server) Router() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/health"))
	router.Use(middleware.CleanPath)

	router.Mount("/connectors", ConnectorRouter())

	router.Route("/pipelines", func(r chi.Router) {
		r.Get("/", s.listPipelines)
		r.Get("/{name}", s.getPipeline)
		r.Post("/{name}/run", s.runPipeline)
		r.Post("/{name}/stop", s.stopPipeline)
	})

	router.Route("/checkpoints", func(r chi.Router) {
		r.Get("/", s.listCheckpoints)
		r.Get("/{id}", s.getCheckpoint)
	})

	return router
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Msgf("Running the web server on: %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("Shutting down the web server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) listPipelines(w http.ResponseWriter, r *http.Request) {
	names := s.manager.Names()
	out := make([]PipelineModel, 0, len(names))
	for _, n := range names {
		dp, err := s.manager.Get(n)
		if err != nil {
			continue
		}
		out = append(out, pipelineModel(dp))
	}
	SendResponse(w, true, out, "")
}

func (s *Server) getPipeline(w http.ResponseWriter, r *http.Request) {
	dp, err := s.manager.Get(chi.URLParam(r, "name"))
	if err != nil {
		sendError(w, http.StatusNotFound, err)
		return
	}
	SendResponse(w, true, pipelineModel(dp), "")
}

// runPipeline runs a pipeline once and answers with its result. An optional
// "timeout" query parameter bounds the run.
func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if v := r.URL.Query().Get("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			sendError(w, http.StatusBadRequest, err)
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	summary, err := s.manager.Run(ctx, chi.URLParam(r, "name"))
	switch {
	case errors.Is(err, pipeline.ErrPipelineNotFound):
		sendError(w, http.StatusNotFound, err)
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		sendError(w, http.StatusConflict, err)
	case errors.Is(err, context.DeadlineExceeded):
		sendError(w, http.StatusGatewayTimeout, err)
	case err != nil:
		sendError(w, http.StatusInternalServerError, err)
	default:
		SendResponse(w, true, runModel(summary), "")
	}
}

func (s *Server) stopPipeline(w http.ResponseWriter, r *http.Request) {
	dp, err := s.manager.Get(chi.URLParam(r, "name"))
	if err != nil {
		sendError(w, http.StatusNotFound, err)
		return
	}
	SendResponse(w, true, map[string]bool{"stopped": dp.Stop()}, "")
}

func (s *Server) listCheckpoints(w http.ResponseWriter, r *http.Request) {
	if s.checkpoints == nil {
		sendError(w, http.StatusNotFound, errors.New("checkpoints are not enabled"))
		return
	}
	ids, err := s.checkpoints.List()
	if err != nil {
		sendError(w, http.StatusInternalServerError, err)
		return
	}
	SendResponse(w, true, ids, "")
}

func (s *Server) getCheckpoint(w http.ResponseWriter, r *http.Request) {
	if s.checkpoints == nil {
		sendError(w, http.StatusNotFound, errors.New("checkpoints are not enabled"))
		return
	}
	cp, err := s.checkpoints.Load(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, state.ErrNotFound):
		sendError(w, http.StatusNotFound, err)
	case err != nil:
		sendError(w, http.StatusInternalServerError, err)
	default:
		SendResponse(w, true, checkpointModel(cp), "")
	}
}
