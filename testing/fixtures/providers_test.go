package fixtures

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiServer(t *testing.T) {
	s := NewGeminiServer("good")
	defer s.Close()
	s.SetBody("/models/m:predict", ImagenResponse("aW1n", "image/png"))

	resp, err := http.Post(s.URL+"/models/m:predict?key=good", "application/json", strings.NewReader(`{"a":1}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "aW1n")

	resp, err = http.Post(s.URL+"/models/m:generateContent?key=bad", "application/json", http.NoBody)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	assert.Equal(t, []string{"good", "bad"}, s.Keys())
	assert.Equal(t, []string{"/models/m:predict", "/models/m:generateContent"}, s.Paths())
	assert.JSONEq(t, `{"a":1}`, s.Calls()[0].Payload)
}

func TestVoiceRSSServer(t *testing.T) {
	s := NewVoiceRSSServer("ID3")
	defer s.Close()

	resp, err := http.Get(s.URL + "/?key=k&src=halo")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, "ID3", string(body))
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	require.Len(t, s.Queries(), 1)
	assert.Equal(t, "halo", s.Queries()[0].Get("src"))
}

func TestResponseBuilders(t *testing.T) {
	var text struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal([]byte(GeminiTextResponse("a", "b")), &text))
	require.Len(t, text.Candidates, 1)
	assert.Len(t, text.Candidates[0].Content.Parts, 2)

	assert.Contains(t, GeminiSpeechResponse("audio/L16", "UENN"), `"inlineData"`)
}
