package credential

import (
	"net/url"
	"strings"
)

const (
	// DefaultDelimiter separates credentials in a raw configuration value.
	DefaultDelimiter = ","

	maskPrefix     = "..."
	visibleSuffix  = 4
	fullyMaskedKey = "****"
)

// Credential is one provider API key.
type Credential struct {
	secret string
}

// New returns a Credential for the trimmed secret.
func New(secret string) Credential {
	return Credential{secret: strings.TrimSpace(secret)}
}

// Secret returns the raw key. Only outbound request builders should call it.
func (c Credential) Secret() string {
	return c.secret
}

// IsZero reports whether the credential is empty.
func (c Credential) IsZero() bool {
	return c.secret == ""
}

// String returns the masked form so credentials are safe in fmt and logs.
func (c Credential) String() string {
	return Mask(c.secret)
}

// GoString keeps %#v from leaking the secret.
func (c Credential) GoString() string {
	return "credential.Credential{" + Mask(c.secret) + "}"
}

// Mask returns a diagnostic form of secret that shows only its trailing
// characters. Secrets too short to reveal a suffix safely are fully masked.
func Mask(secret string) string {
	if len(secret) <= visibleSuffix*2 {
		return fullyMaskedKey
	}
	return maskPrefix + secret[len(secret)-visibleSuffix:]
}

// Redact replaces every occurrence of the credential's secret in text with
// its masked form, including the percent-encoded forms a URL carries.
func Redact(text string, c Credential) string {
	if c.secret == "" {
		return text
	}
	masked := Mask(c.secret)
	for _, form := range []string{c.secret, url.QueryEscape(c.secret), url.PathEscape(c.secret)} {
		text = strings.ReplaceAll(text, form, masked)
	}
	return text
}
