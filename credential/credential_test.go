package credential

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		expected string
	}{
		{name: "long key", secret: "AIzaSyExampleKey1234", expected: "...1234"},
		{name: "exactly nine", secret: "123456789", expected: "...6789"},
		{name: "short key fully masked", secret: "12345678", expected: "****"},
		{name: "empty", secret: "", expected: "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Mask(tt.secret))
		})
	}
}

func TestCredentialFormattingNeverLeaksSecret(t *testing.T) {
	c := New("AIzaSyTopSecretValue9876")

	assert.Equal(t, "...9876", c.String())
	for _, verb := range []string{"%s", "%v", "%+v", "%#v"} {
		out := fmt.Sprintf(verb, c)
		assert.NotContains(t, out, "TopSecret", verb)
		assert.Contains(t, out, "9876", verb)
	}
}

func TestRedact(t *testing.T) {
	c := New("AIzaSyTopSecretValue9876")
	text := `Post "https://example.test/models/m:generateContent?key=AIzaSyTopSecretValue9876": dial tcp: refused`

	redacted := Redact(text, c)
	assert.NotContains(t, redacted, c.Secret())
	assert.Contains(t, redacted, "key=...9876")

	assert.Equal(t, "unchanged", Redact("unchanged", Credential{}))
}

func TestRedactEncodedForms(t *testing.T) {
	c := New("AIza+Top/Secret=Value9876")
	text := `Get "https://example.test/?key=AIza%2BTop%2FSecret%3DValue9876": refused; ` +
		`path /keys/AIza+Top%2FSecret=Value9876 not found; raw AIza+Top/Secret=Value9876`

	redacted := Redact(text, c)

	assert.NotContains(t, redacted, "Top")
	assert.NotContains(t, redacted, "Secret")
	assert.Equal(t, 3, strings.Count(redacted, "...9876"))
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := NewConfigurationError("gemini", nil)
	assert.Equal(t, "credential configuration: provider gemini: no credentials configured", err.Error())

	err = NewConfigurationError("", nil)
	assert.Equal(t, "credential configuration: no credentials configured", err.Error())
}
