package ldap

import (
	"crypto/tls"
	"crypto/x509"
)

// TlsKind selects how a channel secures its transport.
type TlsKind int

const (
	// TlsPlain never negotiates TLS; the connection is cleartext.
	TlsPlain TlsKind = iota
	// TlsImplicit dials straight into a TLS handshake (LDAPS, port 636).
	TlsImplicit
	// TlsStartTLS dials in cleartext and upgrades via the StartTLS
	// extended operation before any other request is sent.
	TlsStartTLS
)

// TlsOptions configures how Connect secures the channel. The zero value is
// Plain(); use the constructors below to build a non-default configuration.
type TlsOptions struct {
	kind           TlsKind
	rootCerts      []*x509.Certificate
	certificates   []tls.Certificate
	serverName     string
	verifyHostname bool
	verifyCerts    bool
}

// Plain disables TLS entirely.
func Plain() TlsOptions {
	return TlsOptions{kind: TlsPlain}
}

// Implicit dials directly into a TLS handshake, verifying both the
// certificate chain and hostname by default.
func Implicit() TlsOptions {
	return TlsOptions{kind: TlsImplicit, verifyHostname: true, verifyCerts: true}
}

// StartTLS dials in cleartext and upgrades the connection before any other
// traffic, verifying both the certificate chain and hostname by default.
func StartTLS() TlsOptions {
	return TlsOptions{kind: TlsStartTLS, verifyHostname: true, verifyCerts: true}
}

// RootCert adds a trusted root CA to the handshake's certificate pool. Can
// be called more than once to trust several roots.
func (o TlsOptions) RootCert(cert *x509.Certificate) TlsOptions {
	o.rootCerts = append(o.rootCerts, cert)
	return o
}

// VerifyHostname toggles hostname verification against the certificate's
// subject. When an SNI override is set, the certificate is always checked
// against that name. Without one, turning this off also turns off
// certificate chain verification, since the handshake then skips
// verification altogether.
func (o TlsOptions) VerifyHostname(v bool) TlsOptions {
	o.verifyHostname = v
	return o
}

// VerifyCerts toggles certificate chain verification. Disabling this is
// almost always a mistake outside of test fixtures against a known server.
func (o TlsOptions) VerifyCerts(v bool) TlsOptions {
	o.verifyCerts = v
	return o
}

// SNI overrides the ServerName sent in the TLS ClientHello; by default the
// channel uses the host it was asked to dial.
func (o TlsOptions) SNI(name string) TlsOptions {
	o.serverName = name
	return o
}

// ClientCert adds a client certificate for mutual TLS.
func (o TlsOptions) ClientCert(cert tls.Certificate) TlsOptions {
	o.certificates = append(o.certificates, cert)
	return o
}

// config builds the *tls.Config for a handshake against host.
func (o TlsOptions) config(host string) *tls.Config {
	cfg := &tls.Config{
		InsecureSkipVerify: !o.verifyCerts,
		Certificates:       o.certificates,
	}
	if len(o.rootCerts) > 0 {
		pool := x509.NewCertPool()
		for _, c := range o.rootCerts {
			pool.AddCert(c)
		}
		cfg.RootCAs = pool
	}
	switch {
	case o.serverName != "":
		cfg.ServerName = o.serverName
	case o.verifyHostname:
		cfg.ServerName = host
	default:
		cfg.InsecureSkipVerify = true
	}
	return cfg
}
