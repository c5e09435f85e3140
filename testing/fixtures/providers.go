package fixtures

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// GeminiCall records one request received by a GeminiServer.
type GeminiCall struct {
	Key     string
	Path    string
	Payload string
}

// GeminiServer fakes the Generative Language API. Requests with a good key
// get the body registered for their path, or the default body; any other key
// gets a 429 that echoes the key back, as the real API does.
type GeminiServer struct {
	*httptest.Server

	mu          sync.Mutex
	good        map[string]bool
	bodies      map[string]string
	defaultBody string
	calls       []GeminiCall
}

// NewGeminiServer starts a GeminiServer accepting goodKeys. Close it when done.
func NewGeminiServer(goodKeys ...string) *GeminiServer {
	s := &GeminiServer{
		good:        make(map[string]bool, len(goodKeys)),
		bodies:      make(map[string]string),
		defaultBody: GeminiTextResponse("ok"),
	}
	for _, k := range goodKeys {
		s.good[k] = true
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// SetBody sets the success body for path, e.g. "/models/m:generateContent".
func (s *GeminiServer) SetBody(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[path] = body
}

// SetDefaultBody sets the success body for paths without their own.
func (s *GeminiServer) SetDefaultBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultBody = body
}

// Calls returns the requests received so far.
func (s *GeminiServer) Calls() []GeminiCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GeminiCall(nil), s.calls...)
}

// Keys returns the key of every request received, in order.
func (s *GeminiServer) Keys() []string {
	calls := s.Calls()
	keys := make([]string, 0, len(calls))
	for _, c := range calls {
		keys = append(keys, c.Key)
	}
	return keys
}

// Paths returns the path of every request received, in order.
func (s *GeminiServer) Paths() []string {
	calls := s.Calls()
	paths := make([]string, 0, len(calls))
	for _, c := range calls {
		paths = append(paths, c.Path)
	}
	return paths
}

func (s *GeminiServer) serve(w http.ResponseWriter, r *http.Request) {
	payload, _ := io.ReadAll(r.Body)
	key := r.URL.Query().Get("key")

	s.mu.Lock()
	s.calls = append(s.calls, GeminiCall{Key: key, Path: r.URL.Path, Payload: string(payload)})
	good := s.good[key]
	body, ok := s.bodies[r.URL.Path]
	if !ok {
		body = s.defaultBody
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !good {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded for key ` + key + `"}}`))
		return
	}
	_, _ = w.Write([]byte(body))
}

// VoiceRSSServer fakes the VoiceRSS speech API.
type VoiceRSSServer struct {
	*httptest.Server

	mu          sync.Mutex
	body        string
	contentType string
	queries     []url.Values
}

// NewVoiceRSSServer starts a VoiceRSSServer answering with MP3 audio bytes.
func NewVoiceRSSServer(audio string) *VoiceRSSServer {
	s := &VoiceRSSServer{body: audio, contentType: "audio/mpeg"}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// SetBody changes the response. VoiceRSS reports errors as a 200 with a
// text body starting with ERROR.
func (s *VoiceRSSServer) SetBody(body, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
	s.contentType = contentType
}

// Queries returns the query of every request received, in order.
func (s *VoiceRSSServer) Queries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.queries...)
}

func (s *VoiceRSSServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.Query())
	body, contentType := s.body, s.contentType
	s.mu.Unlock()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	_, _ = w.Write([]byte(body))
}
