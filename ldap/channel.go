package ldap

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"
)

// connectTimeout bounds DNS resolution and TCP connect; it does not bound
// the lifetime of the connection once established.
const connectTimeout = 10 * time.Second

// startTlsReplyTimeout bounds how long startTLS waits for the server's
// ExtendedResponse before giving up, when the caller's context carries no
// deadline of its own.
const startTlsReplyTimeout = 30 * time.Second

// channel is the byte-stream half of the client: a net.Conn plus enough
// buffering to frame LDAPMessages on the way out, wrapped so STARTTLS can
// swap the underlying stream without the demultiplexer above noticing.
type channel struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
}

// dial opens the TCP connection to addr:port and, for TlsImplicit,
// completes the TLS handshake before returning. TlsStartTLS channels come
// back with a plain connection; the caller negotiates the upgrade with
// startTLS before the connection's pump is started.
func dial(ctx context.Context, host string, port int, opts TlsOptions) (*channel, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		if dialCtx.Err() != nil {
			return nil, &ConnectTimeoutError{Addr: addr}
		}
		return nil, &IoError{Err: err}
	}

	if opts.kind == TlsImplicit {
		tlsConn := tls.Client(conn, opts.config(host))
		hsCtx, hsCancel := context.WithTimeout(ctx, connectTimeout)
		defer hsCancel()
		if err := tlsConn.HandshakeContext(hsCtx); err != nil {
			conn.Close()
			return nil, &TlsError{Err: err}
		}
		conn = tlsConn
	}

	return newChannel(conn), nil
}

func newChannel(conn net.Conn) *channel {
	return &channel{conn: conn, br: bufio.NewReader(conn), bw: bufio.NewWriter(conn)}
}

// startTLS performs the STARTTLS extended operation (message id 1, fixed
// by convention since it always runs before the client's id counter starts
// issuing real request ids) and, on success, replaces ch's underlying
// stream with a TLS-wrapped one. It must be called, if at all, before the
// connection's pump goroutine starts reading — the handshake consumes raw
// bytes directly off ch.conn.
func (ch *channel) startTLS(ctx context.Context, host string, opts TlsOptions) error {
	req := &extendedRequest{RequestName: OIDStartTLS}
	out, err := Codec{}.Encode(&LdapMessage{MessageID: 1, Op: req})
	if err != nil {
		return &AsnEncodeError{Err: err}
	}
	if _, err := ch.bw.Write(out); err != nil {
		return &StartTlsFailedError{Reason: err.Error()}
	}
	if err := ch.bw.Flush(); err != nil {
		return &StartTlsFailedError{Reason: err.Error()}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		deadline = time.Now().Add(startTlsReplyTimeout)
	}
	ch.conn.SetReadDeadline(deadline)
	defer ch.conn.SetReadDeadline(time.Time{})

	var buf []byte
	for {
		chunk := make([]byte, 4096)
		n, err := ch.br.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return &StartTlsFailedError{Reason: err.Error()}
		}
		msg, consumed, err := Codec{}.Decode(buf)
		if err == ErrIncomplete {
			continue
		}
		if err != nil {
			return &StartTlsFailedError{Reason: err.Error()}
		}
		buf = buf[consumed:]
		if len(buf) != 0 {
			return &StartTlsFailedError{Reason: "unexpected trailing data before TLS handshake"}
		}
		if msg.MessageID != 1 {
			return &StartTlsFailedError{Reason: fmt.Sprintf("unexpected message id %d in STARTTLS response", msg.MessageID)}
		}
		resp, ok := msg.Op.(*extendedResponse)
		if !ok {
			return &StartTlsFailedError{Reason: "response was not an ExtendedResponse"}
		}
		if !resp.Result.ResultCode.Success() {
			return &StartTlsFailedError{Reason: resp.Result.DiagnosticMessage}
		}
		break
	}

	tlsConn := tls.Client(ch.conn, opts.config(host))
	hsCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(hsCtx); err != nil {
		return &TlsError{Err: err}
	}
	ch.conn = tlsConn
	ch.br = bufio.NewReader(tlsConn)
	ch.bw = bufio.NewWriter(tlsConn)
	return nil
}

func (ch *channel) close() error {
	return ch.conn.Close()
}
