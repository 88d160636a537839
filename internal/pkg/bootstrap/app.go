package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"shopcore/internal/pkg/logger"
)

// AppInfo describes one service: its name, listen port, route
// registration, and the cleanup callbacks to run on shutdown (last in,
// first out).
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(mux *http.ServeMux)
	Cleanup          []func(ctx context.Context) error
}

// StartService runs the HTTP server and blocks until SIGINT/SIGTERM, then
// drains the server and runs the cleanup callbacks with a bounded timeout.
func StartService(info AppInfo) {
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(mux)
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	go func() {
		logger.L().Info().Msgf("%s listening on %s", info.ServiceName, server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Fatal().Err(err).Msgf("could not listen on %s", server.Addr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L().Info().Msgf("shutting down %s", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.L().Error().Err(err).Msg("http server shutdown")
	}
	for i := len(info.Cleanup) - 1; i >= 0; i-- {
		if err := info.Cleanup[i](ctx); err != nil {
			logger.L().Error().Err(err).Msg("cleanup step failed")
		}
	}
	logger.L().Info().Msgf("%s gracefully shut down", info.ServiceName)
}
