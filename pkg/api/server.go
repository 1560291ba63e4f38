// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api contains the REST API for the connector execution service.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/GeoRetina/arion-connectors/pkg/api/v1"
	"github.com/GeoRetina/arion-connectors/pkg/connector/executor"
	"github.com/GeoRetina/arion-connectors/pkg/logger"
)

const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Router assembles the full route tree for the connector API.
func Router(service *executor.Service, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Timeout(middlewareTimeout),
	)

	r.Mount("/health", v1.HealthcheckRouter())
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/capabilities", v1.CapabilitiesRouter(service))
		r.Mount("/execute", v1.ExecuteRouter(service))
		r.Mount("/runs", v1.RunsRouter(service))
		r.Mount("/policy", v1.PolicyRouter(service))
		r.Mount("/approvals", v1.ApprovalsRouter(service))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Serve starts the API server on the given address and blocks until ctx is
// cancelled. The caller sets up signal handling.
func Serve(ctx context.Context, address string, service *executor.Service, gatherer prometheus.Gatherer) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           Router(service, gatherer),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	done := make(chan error, 1)
	go func() {
		logger.Infof("connector API listening on %s", listener.Addr())
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			done <- serveErr
			return
		}
		done <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("API shutdown did not complete cleanly: %v", err)
		}
		return <-done
	case err := <-done:
		return err
	}
}
