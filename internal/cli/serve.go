package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"agentcore/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

// serve runs the HTTP API until ctx is canceled, then shuts down gracefully.
func serve(ctx context.Context, a *app) error {
	httpapi.SetLogger(a.log)
	httpapi.SetMaxBodyBytes(a.cfg.Limits.MaxBodyBytes)
	httpapi.SetExecuteTimeout(time.Duration(a.cfg.Limits.RequestTimeoutSeconds) * time.Second)
	httpapi.SetCORSOptions(a.cfg.CORS.Enabled, a.cfg.CORS.Origins, a.cfg.CORS.Methods, a.cfg.CORS.Headers)

	// In-flight executions are canceled when shutdown begins.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           httpapi.NewMux(a.mgr),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.Addr).Str("models_dir", a.cfg.ModelsDir).Str("backend", a.cfg.Engine.Backend).Msg("agentcore listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		a.log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return err
}
