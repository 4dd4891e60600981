package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// Serve exposes c on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, c Collector, log logger.Logger) error {
	errFactory := errors.New()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errFactory.Wrap(ErrServe, err).WithData(addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Debug().Err(err).Msg("Metrics server shutdown")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return errFactory.Wrap(ErrServe, err)
	}
	<-done
	return nil
}
