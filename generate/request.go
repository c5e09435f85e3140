package generate

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Actions accepted in the type or action field.
const (
	ActionText        = "text"
	ActionImage       = "image"
	ActionTTS         = "tts"
	ActionGreetingTTS = "greeting-tts"
)

// Request is the body of a generate call. Type and Action are synonyms;
// Type wins when both are set. Payload is forwarded to Gemini unchanged.
type Request struct {
	Type     string          `json:"type,omitempty"`
	Action   string          `json:"action,omitempty"`
	Provider string          `json:"provider,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty" validate:"jsonobject"`
}

// ResolvedAction returns the action to run.
func (r *Request) ResolvedAction() string {
	if t := strings.TrimSpace(r.Type); t != "" {
		return t
	}
	return strings.TrimSpace(r.Action)
}

// HasPayload reports whether the request carries a non-null payload.
func (r *Request) HasPayload() bool {
	p := bytes.TrimSpace(r.Payload)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}

// speechText is the payload shape of VoiceRSS actions.
type speechText struct {
	Text string `json:"text"`
}

// Text returns payload.text, or "" when the payload has none.
func (r *Request) Text() string {
	if !r.HasPayload() {
		return ""
	}
	var st speechText
	if err := json.Unmarshal(r.Payload, &st); err != nil {
		return ""
	}
	return strings.TrimSpace(st.Text)
}
