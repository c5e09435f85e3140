package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"

	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/credential"
	"github.com/gaborage/keyrelay/http"
)

const opSynthesize = "synthesize"

var errorBodyPrefix = []byte("ERROR")

var codecMimeTypes = map[string]string{
	"MP3": "audio/mpeg",
	"WAV": "audio/wav",
	"AAC": "audio/aac",
	"OGG": "audio/ogg",
	"CAF": "audio/x-caf",
}

// VoiceRSS calls the VoiceRSS speech API with its single key.
type VoiceRSS struct {
	client http.Client
	cfg    config.VoiceRSSConfig
}

// NewVoiceRSS creates a VoiceRSS caller.
func NewVoiceRSS(client http.Client, cfg config.VoiceRSSConfig) *VoiceRSS {
	return &VoiceRSS{client: client, cfg: cfg}
}

// URL builds the synthesis URL for text, key included. It is handed to
// clients that fetch the audio themselves.
func (v *VoiceRSS) URL(key credential.Credential, text string) string {
	q := v.query(text)
	q.Set(keyParam, key.Secret())
	return v.base() + "?" + q.Encode()
}

func (v *VoiceRSS) query(text string) url.Values {
	q := url.Values{}
	q.Set("src", text)
	q.Set("hl", v.cfg.Language)
	q.Set("v", v.cfg.Voice)
	q.Set("r", strconv.Itoa(v.cfg.Rate))
	q.Set("c", v.cfg.Codec)
	q.Set("f", v.cfg.Format)
	return q
}

func (v *VoiceRSS) base() string {
	if strings.HasSuffix(v.cfg.BaseURL, "/") {
		return v.cfg.BaseURL
	}
	return v.cfg.BaseURL + "/"
}

// GreetingURL returns the URL a client can play directly. No call is made.
func (v *VoiceRSS) GreetingURL(key credential.Credential, text string) URLResult {
	return URLResult{URL: v.URL(key, text)}
}

// Synthesize performs one GET and returns the audio. VoiceRSS reports
// errors as a 200 whose body starts with ERROR; that is a failure too.
func (v *VoiceRSS) Synthesize(ctx context.Context, key credential.Credential, text string) (AudioResult, error) {
	resp, err := v.client.Get(ctx, &http.Request{
		URL:         v.base() + "?" + v.query(text).Encode(),
		SecretQuery: map[string]string{keyParam: key.Secret()},
	})
	if err != nil {
		return AudioResult{}, &UpstreamError{Provider: ProviderVoiceRSS, Op: opSynthesize, Err: redacted(err, key)}
	}
	if bytes.HasPrefix(bytes.TrimSpace(resp.Body), errorBodyPrefix) {
		return AudioResult{}, &UpstreamError{
			Provider: ProviderVoiceRSS,
			Op:       opSynthesize,
			Err:      &bodyError{msg: credential.Redact(string(bytes.TrimSpace(resp.Body)), key)},
		}
	}
	if len(resp.Body) == 0 {
		return AudioResult{}, NewInvalidResponseError(ProviderVoiceRSS, "empty audio body")
	}

	return AudioResult{
		Audio:    base64.StdEncoding.EncodeToString(resp.Body),
		MimeType: v.mimeType(resp.Headers.Get("Content-Type")),
	}, nil
}

func (v *VoiceRSS) mimeType(contentType string) string {
	if strings.HasPrefix(contentType, "audio/") {
		return contentType
	}
	if mt, ok := codecMimeTypes[strings.ToUpper(v.cfg.Codec)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// bodyError carries the provider's own error text.
type bodyError struct {
	msg string
}

func (e *bodyError) Error() string {
	return e.msg
}

func (e *bodyError) Unwrap() error {
	return ErrErrorBody
}

// redactedError hides the key from a transport error while keeping the chain.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}

func redacted(err error, key credential.Credential) error {
	return &redactedError{msg: credential.Redact(err.Error(), key), err: err}
}
