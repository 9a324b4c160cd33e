// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package httpserver exposes the narrow HTTP surface the process
// answers on directly: a liveness ping and a config-reload
// notification hook. The control surface (device CRUD, inventory,
// tag queries) is a local Go API, not routed over HTTP here.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ReloadFunc is invoked when a config-reload notification is received.
type ReloadFunc func() error

// Server is a thin gorilla/mux router bound to two routes.
type Server struct {
	httpSrv *http.Server
	log     *logrus.Entry
}

// New builds a Server listening on addr. onReload may be nil.
func New(addr string, onReload ReloadFunc, log *logrus.Entry) *Server {
	r := mux.NewRouter()
	log = log.WithField("component", "httpserver")

	r.HandleFunc(common.APIPingRoute, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc(common.APICallbackRoute, func(w http.ResponseWriter, req *http.Request) {
		if onReload == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err := onReload(); err != nil {
			log.WithError(err).Error("config reload callback failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	return &Server{
		httpSrv: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  common.HTTPControlTimeout,
			WriteTimeout: common.HTTPControlTimeout,
		},
		log: log,
	}
}

// Start runs the server in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("http server stopped")
		}
	}()
}

// Shutdown gracefully stops the server within a fixed 5 second timeout.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}
