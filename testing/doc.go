// Package testing holds test helpers shared by the keyrelay packages.
//
// # Mocks
//
// The mocks subpackage provides testify-based mocks of the outbound HTTP
// client, for tests that need to assert exactly which requests a provider
// builds without running a server.
//
// # Fixtures
//
// The fixtures subpackage provides httptest fakes of the upstream providers
// and builders for their response bodies:
//   - GeminiServer accepts a configurable set of keys and records every call
//   - VoiceRSSServer answers with audio or a VoiceRSS ERROR body
//
// # Usage
//
//	import (
//		"github.com/gaborage/keyrelay/testing/fixtures"
//		"github.com/gaborage/keyrelay/testing/mocks"
//	)
package testing
