// Package generate is the module behind the generate route. It reads the
// requested action, picks the provider call for it, runs Gemini calls
// through the credential rotation invoker and returns the extracted result
// in the standard response envelope.
package generate
