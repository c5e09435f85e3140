// Package api is the serverless entry point. The platform calls Handler for
// every request; the application is built once per process on first use.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gaborage/keyrelay/app"
	"github.com/gaborage/keyrelay/generate"
)

var (
	once    sync.Once
	handler http.Handler
	initErr error
)

// Handler serves one request through the shared application.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		handler, initErr = build(nil)
	})
	if initErr != nil {
		writeInitError(w)
		return
	}
	handler.ServeHTTP(w, r)
}

// build creates the application with the generate module registered.
func build(opts *app.Options) (http.Handler, error) {
	a, err := app.NewWithOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := a.RegisterModule(generate.NewModule()); err != nil {
		a.Logger().Error().Err(err).Msg("Failed to register generate module")
		return nil, err
	}
	return a.Handler()
}

// writeInitError answers in the normal error envelope when the application
// could not start. The cause was already printed by the config loader or
// logged by the application.
func writeInitError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "CONFIGURATION_ERROR",
			"message": "Server configuration error",
		},
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
