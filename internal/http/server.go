package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
	log    *logger.Logger
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg), log: cfg.Log}
}

// Run serves until ctx is done, then drains in-flight requests for up to
// shutdownTimeout. Content runs with ?wait=true can hold a request for
// minutes, so WriteTimeout stays unset.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.log != nil {
			s.log.Info("HTTP server listening", "addr", addr)
		}
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.log != nil {
		s.log.Info("HTTP server shutting down")
	}
	return s.srv.Shutdown(shutdownCtx)
}
