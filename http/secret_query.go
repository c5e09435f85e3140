package http

import (
	nethttp "net/http"
)

type secretQueryKey struct{}

// secretQueryTransport sits below the tracing transport and adds the
// request's SecretQuery parameters to the outgoing URL. Redirects keep the
// URL the server chose; the parameters are not forwarded.
type secretQueryTransport struct {
	base nethttp.RoundTripper
}

func (t *secretQueryTransport) RoundTrip(r *nethttp.Request) (*nethttp.Response, error) {
	params, _ := r.Context().Value(secretQueryKey{}).(map[string]string)
	if len(params) == 0 || r.Response != nil {
		return t.base.RoundTrip(r)
	}

	out := r.Clone(r.Context())
	q := out.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	out.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(out)
}
