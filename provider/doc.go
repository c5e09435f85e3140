// Package provider builds the outbound calls to the upstream generative-AI
// and speech providers and turns their responses into the shapes returned
// to clients.
//
// Gemini calls are expressed as rotation.Operation values so the rotation
// invoker can run them once per credential. Response extraction happens
// after a successful call through a ResponseAdapter; a response that lacks
// its result is an InvalidResponseError, which no other credential can fix.
//
// VoiceRSS is called with a single key and never rotated.
package provider
