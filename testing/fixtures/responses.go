package fixtures

import "encoding/json"

// GeminiTextResponse returns a generateContent body whose first candidate
// holds one text part per argument.
func GeminiTextResponse(texts ...string) string {
	parts := make([]map[string]any, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, map[string]any{"text": t})
	}
	return candidate(parts)
}

// GeminiSpeechResponse returns a generateContent body carrying inline audio.
func GeminiSpeechResponse(mimeType, data string) string {
	return candidate([]map[string]any{{
		"inlineData": map[string]string{"mimeType": mimeType, "data": data},
	}})
}

// ImagenResponse returns a predict body with one prediction.
func ImagenResponse(base64Image, mimeType string) string {
	return mustJSON(map[string]any{
		"predictions": []map[string]string{{
			"bytesBase64Encoded": base64Image,
			"mimeType":           mimeType,
		}},
	})
}

func candidate(parts []map[string]any) string {
	return mustJSON(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": parts},
			"finishReason": "STOP",
		}},
	})
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
