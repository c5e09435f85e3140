package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/gaborage/keyrelay/server"
)

// SignalHandler interface allows for injectable signal handling for testing
type SignalHandler interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

type osSignalHandler struct{}

func (osSignalHandler) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (osSignalHandler) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// ServerRunner abstracts the HTTP server to allow injecting test-friendly implementations
type ServerRunner interface {
	http.Handler
	Start() error
	Shutdown(ctx context.Context) error
	ModuleGroup() server.RouteRegistrar
	AddReadinessCheck(check server.ReadinessCheck)
}

var _ ServerRunner = (*server.Server)(nil)
