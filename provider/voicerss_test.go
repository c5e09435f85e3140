package provider

import (
	"context"
	"encoding/base64"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/credential"
	"github.com/gaborage/keyrelay/http"
	"github.com/gaborage/keyrelay/logger"
	obtest "github.com/gaborage/keyrelay/observability/testing"
	"github.com/gaborage/keyrelay/testing/fixtures"
	"github.com/gaborage/keyrelay/testing/mocks"
)

func voiceRSSConfig(baseURL string) config.VoiceRSSConfig {
	return config.VoiceRSSConfig{
		BaseURL:  baseURL,
		Language: "id-id",
		Voice:    "Andika",
		Rate:     -2,
		Codec:    "MP3",
		Format:   "16khz_16bit_stereo",
	}
}

func TestVoiceRSSURL(t *testing.T) {
	v := NewVoiceRSS(&mocks.MockHTTPClient{}, voiceRSSConfig("https://api.voicerss.org"))

	raw := v.URL(credential.New("vr-key"), "Selamat pagi & salam")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "api.voicerss.org", u.Host)
	assert.Equal(t, "/", u.Path)
	q := u.Query()
	assert.Equal(t, "vr-key", q.Get("key"))
	assert.Equal(t, "Selamat pagi & salam", q.Get("src"))
	assert.Equal(t, "id-id", q.Get("hl"))
	assert.Equal(t, "Andika", q.Get("v"))
	assert.Equal(t, "-2", q.Get("r"))
	assert.Equal(t, "MP3", q.Get("c"))
	assert.Equal(t, "16khz_16bit_stereo", q.Get("f"))
}

func TestVoiceRSSGreetingURLMakesNoCall(t *testing.T) {
	client := &mocks.MockHTTPClient{}
	v := NewVoiceRSS(client, voiceRSSConfig("https://api.voicerss.org/"))

	got := v.GreetingURL(credential.New("vr-key"), "halo")

	assert.Contains(t, got.URL, "https://api.voicerss.org/?")
	assert.Contains(t, got.URL, "src=halo")
	client.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestVoiceRSSSynthesize(t *testing.T) {
	audio := []byte{0xFF, 0xFB, 0x90, 0x00}
	srv := fixtures.NewVoiceRSSServer(string(audio))
	defer srv.Close()

	v := NewVoiceRSS(http.NewClient(logger.NewNop()), voiceRSSConfig(srv.URL))
	got, err := v.Synthesize(context.Background(), credential.New("vr-key"), "hello")

	require.NoError(t, err)
	require.Len(t, srv.Queries(), 1)
	assert.Equal(t, "hello", srv.Queries()[0].Get("src"))
	assert.Equal(t, base64.StdEncoding.EncodeToString(audio), got.Audio)
	assert.Equal(t, "audio/mpeg", got.MimeType)
}

func TestVoiceRSSSynthesizeMimeTypeFromCodec(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{1, 2, 3})
	}))
	defer srv.Close()

	cfg := voiceRSSConfig(srv.URL)
	cfg.Codec = "wav"
	got, err := NewVoiceRSS(http.NewClient(logger.NewNop()), cfg).Synthesize(context.Background(), credential.New("k"), "x")

	require.NoError(t, err)
	assert.Equal(t, "audio/wav", got.MimeType)
}

func TestVoiceRSSErrorBodyIsFailure(t *testing.T) {
	srv := fixtures.NewVoiceRSSServer("")
	defer srv.Close()
	srv.SetBody("ERROR: The API key vr-secret-key is not available!", "text/plain")

	v := NewVoiceRSS(http.NewClient(logger.NewNop()), voiceRSSConfig(srv.URL))
	_, err := v.Synthesize(context.Background(), credential.New("vr-secret-key"), "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrErrorBody)
	assert.True(t, IsUpstreamError(err))
	assert.Contains(t, err.Error(), "is not available")
	assert.NotContains(t, err.Error(), "vr-secret-key")
}

func TestVoiceRSSEmptyBody(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer srv.Close()

	v := NewVoiceRSS(http.NewClient(logger.NewNop()), voiceRSSConfig(srv.URL))
	_, err := v.Synthesize(context.Background(), credential.New("k"), "hello")

	assert.True(t, IsInvalidResponseError(err))
}

func TestVoiceRSSTransportErrorRedactsKey(t *testing.T) {
	client := &mocks.MockHTTPClient{}
	client.ExpectGet(nil, nil, errors.New(`Get "https://api.voicerss.org/?key=vr-secret-key": dial tcp: refused`)).Once()

	v := NewVoiceRSS(client, voiceRSSConfig("https://api.voicerss.org/"))
	_, err := v.Synthesize(context.Background(), credential.New("vr-secret-key"), "hello")

	require.Error(t, err)
	assert.True(t, IsUpstreamError(err))
	assert.NotContains(t, err.Error(), "vr-secret-key")
	assert.Contains(t, err.Error(), "dial tcp")
	client.AssertExpectations(t)
}

func TestVoiceRSSSynthesizeKeepsKeyOutOfSpans(t *testing.T) {
	const secret = "vr+secret/key=1234"
	srv := fixtures.NewVoiceRSSServer("ID3")
	defer srv.Close()

	tp := obtest.NewTestTraceProvider()
	client := http.NewBuilder(logger.NewNop()).WithTracerProvider(tp).Build()
	v := NewVoiceRSS(client, voiceRSSConfig(srv.URL))

	_, err := v.Synthesize(context.Background(), credential.New(secret), "halo")

	require.NoError(t, err)
	require.Len(t, srv.Queries(), 1)
	assert.Equal(t, secret, srv.Queries()[0].Get("key"))
	assert.Equal(t, "halo", srv.Queries()[0].Get("src"))
	obtest.NewSpanCollector(t, tp.Exporter).
		AssertCount(1).
		AssertNotContains(secret).
		AssertNotContains(url.QueryEscape(secret))
}
