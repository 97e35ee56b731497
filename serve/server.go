package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"holecenter/video/sink"
)

// Routes are the optional pieces of the HTTP surface. Nil entries are not
// mounted.
type Routes struct {
	MJPEG   *sink.MJPEGServer
	Status  *StatusServer
	Offsets *OffsetUpdater
	Runs    *RunsServer

	// Extra registers additional handlers, e.g. web push endpoints.
	Extra func(mux *http.ServeMux)
}

// NewHandler builds the mux and wraps it with an access log.
func NewHandler(r Routes) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if r.MJPEG != nil {
		mux.Handle("/mjpeg", r.MJPEG)
	}
	if r.Status != nil {
		mux.Handle("/status", r.Status)
	}
	if r.Runs != nil {
		mux.Handle("/runs", r.Runs)
	}
	if r.Offsets != nil {
		mux.Handle("/offsetsws", r.Offsets)
	}
	if r.Extra != nil {
		r.Extra(mux)
	}
	return handlers.CombinedLoggingHandler(log.StandardLogger().WriterLevel(log.DebugLevel), mux)
}

// ListenAndServe serves h on port until ctx is cancelled.
func ListenAndServe(ctx context.Context, port int, h http.Handler) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: h,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Infof("Hosting status endpoints on port %d", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
