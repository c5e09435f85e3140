// Package credential holds provider API keys and the per-request pools built
// from them.
//
// A Pool is parsed from a delimited configuration value on every request,
// shuffled, and handed to the rotation invoker. Credentials never render
// their raw secret through fmt or logging; String returns a masked suffix.
package credential
