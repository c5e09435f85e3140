package generate

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gaborage/keyrelay/app"
	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/credential"
	"github.com/gaborage/keyrelay/http"
	"github.com/gaborage/keyrelay/logger"
	"github.com/gaborage/keyrelay/provider"
	"github.com/gaborage/keyrelay/rotation"
	"github.com/gaborage/keyrelay/server"
)

const moduleName = "generate"

// Module serves the generate route.
type Module struct {
	log      logger.Logger
	cfg      *config.Config
	gemini   *provider.Gemini
	voice    *provider.VoiceRSS
	invoker  *rotation.Invoker[[]byte]
	shuffle  credential.ShuffleFunc
	adapters map[string]provider.ResponseAdapter
}

// Option configures a Module.
type Option func(*Module)

// WithShuffle replaces the random credential order, mainly for tests.
func WithShuffle(fn credential.ShuffleFunc) Option {
	return func(m *Module) {
		m.shuffle = fn
	}
}

// NewModule creates the generate module. Dependencies arrive in Init.
func NewModule(opts ...Option) *Module {
	m := &Module{
		adapters: map[string]provider.ResponseAdapter{
			ActionText:  provider.TextAdapter{},
			ActionImage: provider.ImageAdapter{},
			ActionTTS:   provider.SpeechAdapter{},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return moduleName
}

// Init builds one outbound client per provider so each gets its own
// per-attempt timeout.
func (m *Module) Init(deps *app.ModuleDeps) error {
	if deps == nil || deps.Config == nil {
		return fmt.Errorf("%s: missing dependencies", moduleName)
	}
	m.cfg = deps.Config
	m.log = deps.Logger
	if m.log == nil {
		m.log = logger.NewNop()
	}

	providers := m.cfg.Providers
	m.gemini = provider.NewGemini(m.newClient(deps, providers.Gemini.Timeout), providers.Gemini)
	m.voice = provider.NewVoiceRSS(m.newClient(deps, providers.VoiceRSS.Timeout), providers.VoiceRSS)
	m.invoker = rotation.NewInvoker[[]byte](
		rotation.WithLogger(m.log),
		rotation.WithTracerProvider(deps.TracerProvider),
		rotation.WithMeterProvider(deps.MeterProvider),
	)
	return nil
}

func (m *Module) newClient(deps *app.ModuleDeps, timeout time.Duration) http.Client {
	b := http.NewBuilder(m.log).WithTimeout(timeout)
	if deps.TracerProvider != nil {
		b = b.WithTracerProvider(deps.TracerProvider)
	}
	if deps.MeterProvider != nil {
		b = b.WithMeterProvider(deps.MeterProvider)
	}
	return b.Build()
}

// RegisterRoutes registers the POST-only generate route. Other methods get
// a 405 from the router.
func (m *Module) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	path := m.cfg.Server.Path.Generate
	server.POST(hr, r, path, m.generate)
	m.log.Info().
		Str("method", nethttp.MethodPost).
		Str("path", r.FullPath(path)).
		Msg("Generate route registered")
}

// Shutdown releases nothing; clients are closed with the process.
func (m *Module) Shutdown() error {
	return nil
}

func (m *Module) generate(req Request, hc server.HandlerContext) (any, server.IAPIError) {
	ctx := hc.Context()
	action := req.ResolvedAction()

	switch action {
	case ActionText:
		return m.rotate(ctx, action, req, m.gemini.Text)
	case ActionImage:
		return m.rotate(ctx, action, req, m.gemini.Image)
	case ActionTTS:
		switch strings.ToLower(strings.TrimSpace(req.Provider)) {
		case "", provider.ProviderGemini:
			return m.rotate(ctx, action, req, m.gemini.Speech)
		case provider.ProviderVoiceRSS:
			return m.synthesize(ctx, req)
		default:
			return nil, server.NewBadRequestError(fmt.Sprintf("Unsupported tts provider %q", req.Provider))
		}
	case ActionGreetingTTS:
		return m.greeting(ctx, req)
	case "":
		return nil, server.NewBadRequestError("type or action is required")
	default:
		return nil, server.NewBadRequestError(fmt.Sprintf("Unknown action %q", action))
	}
}

// rotate runs a Gemini call over a freshly shuffled pool and extracts the
// result from the first successful response.
func (m *Module) rotate(
	ctx context.Context,
	action string,
	req Request,
	call func(json.RawMessage) rotation.Operation[[]byte],
) (any, server.IAPIError) {
	if !req.HasPayload() {
		return nil, server.NewBadRequestError("payload is required")
	}

	gemini := m.cfg.Providers.Gemini
	pool, err := credential.NewPool(provider.ProviderGemini, gemini.Keys, gemini.Delimiter)
	if err != nil {
		return nil, m.fail(ctx, action, err)
	}

	body, err := m.invoker.Invoke(ctx, pool.Shuffle(m.shuffle), call(req.Payload))
	if err != nil {
		return nil, m.fail(ctx, action, err)
	}

	result, err := m.adapters[action].Extract(body)
	if err != nil {
		return nil, m.fail(ctx, action, err)
	}
	return result, nil
}

func (m *Module) synthesize(ctx context.Context, req Request) (any, server.IAPIError) {
	text := req.Text()
	if text == "" {
		return nil, server.NewBadRequestError("payload.text is required")
	}

	key, err := credential.Single(provider.ProviderVoiceRSS, m.cfg.Providers.VoiceRSS.Key)
	if err != nil {
		return nil, m.fail(ctx, ActionTTS, err)
	}

	result, err := m.voice.Synthesize(ctx, key, text)
	if err != nil {
		return nil, m.fail(ctx, ActionTTS, err)
	}
	return result, nil
}

// greeting builds the VoiceRSS URL for the client to fetch; nothing is called.
func (m *Module) greeting(ctx context.Context, req Request) (any, server.IAPIError) {
	text := req.Text()
	if text == "" {
		return nil, server.NewBadRequestError("payload.text is required")
	}

	key, err := credential.Single(provider.ProviderVoiceRSS, m.cfg.Providers.VoiceRSS.Key)
	if err != nil {
		return nil, m.fail(ctx, ActionGreetingTTS, err)
	}
	return m.voice.GreetingURL(key, text), nil
}

func (m *Module) fail(ctx context.Context, action string, err error) server.IAPIError {
	apiErr := toAPIError(err)
	m.log.WithContext(ctx).Error().
		Err(err).
		Str("action", action).
		Str("code", apiErr.ErrorCode()).
		Msg("Generate request failed")
	return apiErr
}
