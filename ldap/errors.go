package ldap

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to test for these.
var (
	// ErrIncomplete is returned by the frame codec when a buffer does not
	// yet hold a complete LDAPMessage. The caller must read more bytes and
	// retry without discarding what it already has.
	ErrIncomplete = errors.New("ldap: incomplete message")

	// ErrConnectionClosed is returned when the underlying stream ended
	// before an operation completed.
	ErrConnectionClosed = errors.New("ldap: connection closed")

	// ErrAlreadyTLS names a STARTTLS attempt on a channel that is already
	// running over a TLS stream. Connect only negotiates STARTTLS on a
	// cleartext channel, and no function in this package returns it.
	ErrAlreadyTLS = errors.New("ldap: connection already using TLS")

	// ErrNoSaslCredentials is returned when a SASL mechanism needs server
	// credentials that were not present in the bind response.
	ErrNoSaslCredentials = errors.New("ldap: no SASL credentials in response")
)

// ProtocolError reports malformed protocol data: a PDU missing required
// elements, or a value of the wrong ASN.1 type.
type ProtocolError string

func (e ProtocolError) Error() string {
	return fmt.Sprintf("ldap: protocol error: %s", string(e))
}

// UnsupportedRequestTagError is raised by decodeOp, on the inbound decode
// path, when a protocolOp application tag is not one this package
// understands.
type UnsupportedRequestTagError int

func (e UnsupportedRequestTagError) Error() string {
	return fmt.Sprintf("ldap: unsupported request tag %d", int(e))
}

// ConnectTimeoutError is raised when name resolution or TCP connect does
// not complete within the channel's fixed timeout.
type ConnectTimeoutError struct {
	Addr string
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("ldap: connect timeout dialing %s", e.Addr)
}

// StartTlsFailedError is raised when the STARTTLS extended request cannot
// be sent, or its reply is missing, times out, or is not a successful
// ExtendedResponse for message id 1. A failure of the subsequent TLS
// handshake is reported as a TlsError.
type StartTlsFailedError struct {
	Reason string
}

func (e *StartTlsFailedError) Error() string {
	return fmt.Sprintf("ldap: starttls failed: %s", e.Reason)
}

// TlsError wraps a TLS handshake or configuration failure.
type TlsError struct {
	Err error
}

func (e *TlsError) Error() string { return fmt.Sprintf("ldap: tls error: %s", e.Err) }
func (e *TlsError) Unwrap() error { return e.Err }

// IoError wraps a failure of the underlying socket I/O.
type IoError struct {
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("ldap: io error: %s", e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// AsnDecodeError wraps a failure from the BER codec while decoding a message.
type AsnDecodeError struct {
	Err error
}

func (e *AsnDecodeError) Error() string { return fmt.Sprintf("ldap: asn.1 decode error: %s", e.Err) }
func (e *AsnDecodeError) Unwrap() error { return e.Err }

// AsnEncodeError wraps a failure from the BER codec while encoding a message.
type AsnEncodeError struct {
	Err error
}

func (e *AsnEncodeError) Error() string { return fmt.Sprintf("ldap: asn.1 encode error: %s", e.Err) }
func (e *AsnEncodeError) Unwrap() error { return e.Err }

// InvalidResponseError is raised when a response's protocolOp variant does
// not match the operation that was issued, or a required control is
// missing from it.
type InvalidResponseError string

func (e InvalidResponseError) Error() string {
	return fmt.Sprintf("ldap: invalid response: %s", string(e))
}

// OperationError reports a non-success LDAPResult returned by the server.
// SaslBindInProgress is intentionally never wrapped in this error; the
// core treats it as a non-terminal, in-progress outcome.
type OperationError struct {
	ResultCode        ResultCode
	MatchedDN         string
	DiagnosticMessage string
}

func (e *OperationError) Error() string {
	msg := e.DiagnosticMessage
	if msg == "" {
		msg = "(no diagnostic message)"
	}
	return fmt.Sprintf("ldap: operation failed: %s (matchedDN=%q): %s", e.ResultCode, e.MatchedDN, msg)
}

// InvalidFilterError reports an RFC-2254 filter parse failure.
type InvalidFilterError struct {
	Pos int
	Msg string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("ldap: filter syntax error at position %d: %s", e.Pos, e.Msg)
}

// GssApiError reports a failure in the GSSAPI SASL mechanism plumbing.
type GssApiError struct {
	Msg string
}

func (e *GssApiError) Error() string { return fmt.Sprintf("ldap: gssapi error: %s", e.Msg) }

// checkResult converts a non-success LDAPResult into an *OperationError.
// SaslBindInProgress is treated as success per spec: SASL multi-step binds
// must be able to complete without the caller handling an error path.
func checkResult(r LdapResult) error {
	if r.ResultCode.Success() {
		return nil
	}
	return &OperationError{
		ResultCode:        r.ResultCode,
		MatchedDN:         r.MatchedDN,
		DiagnosticMessage: r.DiagnosticMessage,
	}
}
