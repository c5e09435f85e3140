package credential

import (
	"math/rand/v2"
	"strings"
)

// ShuffleFunc permutes credentials in place.
type ShuffleFunc func([]Credential)

// Pool is the ordered working set of credentials for one provider and one request.
type Pool struct {
	provider    string
	credentials []Credential
}

// NewPool parses raw into a pool for provider. Entries are split on
// delimiter (DefaultDelimiter when empty), trimmed, and empty entries are
// dropped. An empty result is a ConfigurationError.
func NewPool(provider, raw, delimiter string) (Pool, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	parts := strings.Split(raw, delimiter)
	creds := make([]Credential, 0, len(parts))
	for _, part := range parts {
		if c := New(part); !c.IsZero() {
			creds = append(creds, c)
		}
	}

	if len(creds) == 0 {
		return Pool{}, NewConfigurationError(provider, nil)
	}
	return Pool{provider: provider, credentials: creds}, nil
}

// PoolOf builds a pool from already-parsed credentials. It is mainly useful in tests.
func PoolOf(provider string, creds ...Credential) Pool {
	return Pool{provider: provider, credentials: append([]Credential(nil), creds...)}
}

// Single returns the one credential configured for a single-key provider.
func Single(provider, raw string) (Credential, error) {
	c := New(raw)
	if c.IsZero() {
		return Credential{}, NewConfigurationError(provider, nil)
	}
	return c, nil
}

// Provider returns the provider name the pool belongs to.
func (p Pool) Provider() string {
	return p.provider
}

// Len returns the number of credentials in the pool.
func (p Pool) Len() int {
	return len(p.credentials)
}

// Credentials returns a copy of the pool in its current order.
func (p Pool) Credentials() []Credential {
	return append([]Credential(nil), p.credentials...)
}

// Shuffle permutes the pool in place. A nil fn uses RandomShuffle.
func (p Pool) Shuffle(fn ShuffleFunc) Pool {
	if fn == nil {
		fn = RandomShuffle
	}
	fn(p.credentials)
	return p
}

// RandomShuffle applies a uniform Fisher-Yates permutation.
func RandomShuffle(creds []Credential) {
	for i := len(creds) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		creds[i], creds[j] = creds[j], creds[i]
	}
}

// Identity leaves the order unchanged.
func Identity([]Credential) {}
