// Package auth provides the request-authorization capability used by the ADO
// and timesheet clients, so credential schemes can change without touching them.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

const (
	SchemeBasic  = "basic"
	SchemeBearer = "bearer"
)

// Authorizer decorates an outgoing request with credentials.
type Authorizer interface {
	Authorize(req *http.Request) error
}

// AuthorizerFunc adapts a plain function to Authorizer.
type AuthorizerFunc func(req *http.Request) error

func (f AuthorizerFunc) Authorize(req *http.Request) error {
	return f(req)
}

// BasicPAT authorizes with an ADO personal access token sent as the password
// of an empty user name.
type BasicPAT string

func (p BasicPAT) Authorize(req *http.Request) error {
	if p == "" {
		return errors.New("personal access token is empty")
	}
	req.SetBasicAuth("", string(p))
	return nil
}

// TokenSource authorizes with bearer tokens drawn from an oauth2.TokenSource.
type TokenSource struct {
	src oauth2.TokenSource
}

func FromTokenSource(src oauth2.TokenSource) TokenSource {
	return TokenSource{src: src}
}

// Bearer returns an Authorizer for a static bearer token.
func Bearer(token string) TokenSource {
	return FromTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

func (t TokenSource) Authorize(req *http.Request) error {
	tok, err := t.src.Token()
	if err != nil {
		return fmt.Errorf("obtaining token: %w", err)
	}
	if tok.AccessToken == "" {
		return errors.New("bearer token is empty")
	}
	tok.SetAuthHeader(req)
	return nil
}

// ForScheme builds the Authorizer for a stored credential. An empty scheme means basic.
func ForScheme(scheme, credential string) (Authorizer, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeBasic:
		return BasicPAT(credential), nil
	case SchemeBearer:
		return Bearer(credential), nil
	default:
		return nil, fmt.Errorf("unknown auth scheme %q (want %q or %q)", scheme, SchemeBasic, SchemeBearer)
	}
}
