// Package auth resolves the acting account for a request. The hosted
// identity provider terminates upstream; by the time a request reaches this
// service the account is a trusted header set by the proxy.
package auth

import (
	"net/http"
	"strings"
)

// Identity resolves the account ID for a request. Implementations must
// return a non-empty ID; requests without one get the deployment default.
type Identity interface {
	UserID(r *http.Request) string
}

// HeaderIdentity reads the account from a request header with a fallback
// for single-account deployments.
type HeaderIdentity struct {
	Header  string
	Default string
}

func NewHeaderIdentity(defaultUser string) HeaderIdentity {
	return HeaderIdentity{Header: "X-Account-ID", Default: defaultUser}
}

func (h HeaderIdentity) UserID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(h.Header)); v != "" {
		return v
	}
	return h.Default
}
