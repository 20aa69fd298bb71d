package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/facility-backend/internal/platform/logger"
)

type Server struct {
	Engine *gin.Engine
	log    *logger.Logger
}

func NewServer(cfg RouterConfig) *Server {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{Engine: NewRouter(cfg), log: log.With("service", "HTTPServer")}
}

// Run serves on address until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", address)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}
