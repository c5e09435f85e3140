package app

import (
	"os"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/server"
)

func newTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "keyrelay-test",
			Version: "v0.0.1",
			Env:     config.EnvDevelopment,
		},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeout: config.TimeoutConfig{
				Read:       time.Second,
				Write:      5 * time.Second,
				Idle:       time.Second,
				Middleware: 2 * time.Second,
				Shutdown:   time.Second,
			},
			Path: config.PathConfig{
				Health:   "/health",
				Ready:    "/ready",
				Generate: "/api/generate",
			},
		},
		Log: config.LogConfig{Level: "debug"},
		Providers: config.ProvidersConfig{
			Gemini: config.GeminiConfig{Keys: "k1,k2", Delimiter: ","},
		},
	}
}

// MockModule is a testify mock of Module.
type MockModule struct {
	mock.Mock
	name string
}

func (m *MockModule) Name() string {
	return m.name
}

func (m *MockModule) Init(deps *ModuleDeps) error {
	args := m.Called(deps)
	return args.Error(0)
}

func (m *MockModule) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	m.Called(hr, r)
}

func (m *MockModule) Shutdown() error {
	args := m.Called()
	return args.Error(0)
}

// pingModule registers POST /ping answering {"pong": <name>}.
type pingModule struct {
	deps *ModuleDeps
}

type pingRequest struct {
	Name string `json:"name" validate:"required"`
}

type pingResponse struct {
	Pong string `json:"pong"`
}

func (p *pingModule) Name() string { return "ping" }

func (p *pingModule) Init(deps *ModuleDeps) error {
	p.deps = deps
	return nil
}

func (p *pingModule) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	server.POST(hr, r, "/ping", func(req pingRequest, _ server.HandlerContext) (pingResponse, server.IAPIError) {
		return pingResponse{Pong: req.Name}, nil
	})
}

func (p *pingModule) Shutdown() error { return nil }

// fakeSignals hands the registered channel to the test.
type fakeSignals struct {
	mu      sync.Mutex
	ch      chan<- os.Signal
	ready   chan struct{}
	stopped bool
}

func newFakeSignals() *fakeSignals {
	return &fakeSignals{ready: make(chan struct{})}
}

func (f *fakeSignals) Notify(c chan<- os.Signal, _ ...os.Signal) {
	f.mu.Lock()
	f.ch = c
	f.mu.Unlock()
	close(f.ready)
}

func (f *fakeSignals) Stop(chan<- os.Signal) {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeSignals) send(sig os.Signal) {
	<-f.ready
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch <- sig
}
