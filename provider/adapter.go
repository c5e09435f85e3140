package provider

import (
	"encoding/json"
	"strings"
)

const (
	defaultImageMimeType = "image/png"
	defaultAudioMimeType = "audio/L16;codec=pcm;rate=24000"
)

// ResponseAdapter extracts the client-facing result from a raw provider
// response body, or fails with an InvalidResponseError.
type ResponseAdapter interface {
	Extract(body []byte) (any, error)
}

// AdapterFunc adapts a plain function to ResponseAdapter.
type AdapterFunc func(body []byte) (any, error)

// Extract calls f(body).
func (f AdapterFunc) Extract(body []byte) (any, error) {
	return f(body)
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

func decodeCandidateParts(body []byte) ([]part, error) {
	var resp generateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewInvalidResponseError(ProviderGemini, "body is not valid JSON")
	}
	if len(resp.Candidates) == 0 {
		return nil, NewInvalidResponseError(ProviderGemini, "no candidates")
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return nil, NewInvalidResponseError(ProviderGemini, "candidate has no content parts")
	}
	return parts, nil
}

// TextAdapter joins the text parts of the first candidate.
type TextAdapter struct{}

// Extract implements ResponseAdapter.
func (TextAdapter) Extract(body []byte) (any, error) {
	parts, err := decodeCandidateParts(body)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	found := false
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		sb.WriteString(p.Text)
		found = true
	}
	if !found {
		return nil, NewInvalidResponseError(ProviderGemini, "candidate has no text")
	}
	return TextResult{Text: sb.String()}, nil
}

// ImageAdapter returns the first prediction's image bytes.
type ImageAdapter struct{}

// Extract implements ResponseAdapter.
func (ImageAdapter) Extract(body []byte) (any, error) {
	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewInvalidResponseError(ProviderGemini, "body is not valid JSON")
	}
	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return nil, NewInvalidResponseError(ProviderGemini, "no image in predictions")
	}

	pred := resp.Predictions[0]
	mimeType := pred.MimeType
	if mimeType == "" {
		mimeType = defaultImageMimeType
	}
	return ImageResult{Image: pred.BytesBase64Encoded, MimeType: mimeType}, nil
}

// SpeechAdapter returns the first inline audio part of the first candidate.
type SpeechAdapter struct{}

// Extract implements ResponseAdapter.
func (SpeechAdapter) Extract(body []byte) (any, error) {
	parts, err := decodeCandidateParts(body)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		mimeType := p.InlineData.MimeType
		if mimeType == "" {
			mimeType = defaultAudioMimeType
		}
		return AudioResult{Audio: p.InlineData.Data, MimeType: mimeType}, nil
	}
	return nil, NewInvalidResponseError(ProviderGemini, "candidate has no inline audio")
}
