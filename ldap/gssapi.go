package ldap

import (
	gssapi "github.com/golang-auth/go-gssapi/v3"
)

// gssapiInitiator is the one operation this package needs from a GSSAPI
// initiator security context: feed it the peer's last token, get back the
// next one to send, until it reports the context established. It is a
// local interface; callers implement it, typically as a small adapter
// around a go-gssapi security context.
type gssapiInitiator interface {
	Continue(inputToken []byte) (outputToken []byte, done bool, err error)
}

// gssapiMechanism adapts a caller-provided GSSAPI initiator (built against
// whatever mechanism/credential/provider the caller has configured with
// go-gssapi) to SaslMechanism. This package ships no concrete mechanism
// provider of its own; loading one (Kerberos via MIT/Heimdal bindings,
// SSPI on Windows, ...) is a runtime/OS concern the caller owns.
type gssapiMechanism struct {
	initiator gssapiInitiator
}

// GSSAPI wraps a caller-supplied, already-configured initiator as a
// SaslMechanism usable with Client.SaslBind.
func GSSAPI(initiator gssapiInitiator) SaslMechanism {
	return &gssapiMechanism{initiator: initiator}
}

func (m *gssapiMechanism) Name() string { return "GSSAPI" }

func (m *gssapiMechanism) Step(challenge []byte) ([]byte, bool, error) {
	token, done, err := m.initiator.Continue(challenge)
	if err != nil {
		return nil, false, &GssApiError{Msg: err.Error()}
	}
	return token, done, nil
}

// NewProvider loads a go-gssapi mechanism provider by its registered
// import path (e.g. "github.com/golang-auth/go-gssapi-c"), for callers
// that want GSSAPI() without depending on the library's own API directly.
func NewProvider(name string) (gssapi.Provider, error) {
	return gssapi.NewProvider(name)
}
