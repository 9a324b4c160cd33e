// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ghpascon/xbridge-middleware/internal/common"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(onReload ReloadFunc) *mux.Router {
	log := logrus.NewEntry(logrus.New())
	s := New(":0", onReload, log)
	return s.httpSrv.Handler.(*mux.Router)
}

func TestPingReturnsOK(t *testing.T) {
	r := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, common.APIPingRoute, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCallbackInvokesReloadFunc(t *testing.T) {
	called := false
	r := newTestRouter(func() error {
		called = true
		return nil
	})
	req := httptest.NewRequest(http.MethodPost, common.APICallbackRoute, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, called)
}

func TestCallbackWithoutReloadFuncIsNoop(t *testing.T) {
	r := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodPost, common.APICallbackRoute, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
