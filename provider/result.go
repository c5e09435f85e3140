package provider

// TextResult is returned for text generation.
type TextResult struct {
	Text string `json:"text"`
}

// ImageResult carries a base64 encoded image.
type ImageResult struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

// AudioResult carries base64 encoded audio.
type AudioResult struct {
	Audio    string `json:"audio"`
	MimeType string `json:"mimeType"`
}

// URLResult carries a ready-to-play audio URL.
type URLResult struct {
	URL string `json:"url"`
}
