package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// StartHTTPServer starts the HTTP server on the given address.
// It returns the server instance and a channel that signals listener errors
// after startup. An immediate error is returned if setup fails before
// starting the listener.
func StartHTTPServer(ctx context.Context, logger *zap.Logger, handler http.Handler, listenAddr string) (*http.Server, <-chan error, error) {
	if logger == nil {
		return nil, nil, errors.New("logger cannot be nil")
	}
	if handler == nil {
		return nil, nil, errors.New("http handler cannot be nil")
	}
	if listenAddr == "" {
		return nil, nil, errors.New("listen address cannot be empty")
	}

	server := &http.Server{
		Addr:         listenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second, // Longer for SSE streams
		IdleTimeout:  90 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	// Channel to report listener errors occurring after startup
	listenerErrChan := make(chan error, 1)

	go func() {
		defer close(listenerErrChan)

		logger.Info("Starting HTTP Server", zap.String("addr", listenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP Server listener error", zap.Error(err))
			listenerErrChan <- err
		} else {
			logger.Info("HTTP Server listener stopped gracefully.")
		}
	}()

	return server, listenerErrChan, nil
}
