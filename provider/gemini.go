package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/credential"
	"github.com/gaborage/keyrelay/http"
	"github.com/gaborage/keyrelay/rotation"
)

const (
	ProviderGemini   = "gemini"
	ProviderVoiceRSS = "voicerss"

	MethodGenerateContent = "generateContent"
	MethodPredict         = "predict"

	keyParam = "key"
)

var errNotJSON = errors.New("response body is not JSON")

// Gemini builds rotated calls against the Generative Language API.
type Gemini struct {
	client  http.Client
	baseURL string
	models  config.GeminiModels
}

// NewGemini creates a Gemini caller. The client owns the per-attempt timeout.
func NewGemini(client http.Client, cfg config.GeminiConfig) *Gemini {
	return &Gemini{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		models:  cfg.Models,
	}
}

// Endpoint returns the call URL for model and method. The key is not part
// of it; Call passes it as a query parameter added on the wire.
func (g *Gemini) Endpoint(model, method string) string {
	return fmt.Sprintf("%s/models/%s:%s", g.baseURL, url.PathEscape(model), method)
}

// Text returns the generateContent operation on the text model.
func (g *Gemini) Text(payload json.RawMessage) rotation.Operation[[]byte] {
	return g.Call(g.models.Text, MethodGenerateContent, payload)
}

// Image returns the predict operation on the image model.
func (g *Gemini) Image(payload json.RawMessage) rotation.Operation[[]byte] {
	return g.Call(g.models.Image, MethodPredict, payload)
}

// Speech returns the generateContent operation on the speech model.
func (g *Gemini) Speech(payload json.RawMessage) rotation.Operation[[]byte] {
	return g.Call(g.models.Speech, MethodGenerateContent, payload)
}

// Call returns an operation that posts payload to model:method with one
// credential. A non-2xx status, a transport error or a non-JSON body fail
// the attempt.
func (g *Gemini) Call(model, method string, payload json.RawMessage) rotation.Operation[[]byte] {
	op := model + ":" + method
	return func(ctx context.Context, cred credential.Credential) ([]byte, error) {
		resp, err := g.client.Post(ctx, &http.Request{
			URL:         g.Endpoint(model, method),
			Body:        payload,
			Headers:     map[string]string{"Content-Type": "application/json"},
			SecretQuery: map[string]string{keyParam: cred.Secret()},
		})
		if err != nil {
			return nil, &UpstreamError{Provider: ProviderGemini, Op: op, Err: err}
		}
		if !json.Valid(resp.Body) {
			return nil, &UpstreamError{Provider: ProviderGemini, Op: op, Err: errNotJSON}
		}
		return resp.Body, nil
	}
}
