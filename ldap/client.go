package ldap

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
)

// Client is an asynchronous LDAPv3 connection: requests can be in flight
// concurrently, each tracked by its own message id, and a Search or
// SearchPaged call hands back a stream the caller drains at its own pace
// rather than blocking until every entry has arrived.
type Client struct {
	conn *conn
	host string
	id   uint32 // last issued message id; starts at 1 (reserved for STARTTLS)
}

// Connect dials host:port and returns a ready-to-use Client. For
// TlsStartTLS options the STARTTLS upgrade completes before Connect
// returns; for TlsImplicit the TLS handshake happens during the dial.
func Connect(ctx context.Context, host string, port int, opts TlsOptions) (*Client, error) {
	ch, err := dial(ctx, host, port, opts)
	if err != nil {
		return nil, err
	}
	if opts.kind == TlsStartTLS {
		if err := ch.startTLS(ctx, host, opts); err != nil {
			ch.close()
			return nil, err
		}
	}
	c := newConn(ch)
	c.start()
	return &Client{conn: c, host: host, id: 1}, nil
}

// ClientBuilder is a fluent convenience over Connect.
type ClientBuilder struct {
	address    string
	port       int
	tlsOptions TlsOptions
}

// Builder starts a ClientBuilder for address, defaulting to port 389 and
// Plain transport.
func Builder(address string) *ClientBuilder {
	return &ClientBuilder{address: address, port: 389, tlsOptions: Plain()}
}

// Port overrides the default port (389 for Plain/StartTLS, conventionally
// 636 for Implicit).
func (b *ClientBuilder) Port(port int) *ClientBuilder {
	b.port = port
	return b
}

// TLSOptions sets the channel's transport security.
func (b *ClientBuilder) TLSOptions(opts TlsOptions) *ClientBuilder {
	b.tlsOptions = opts
	return b
}

// Connect dials using the options accumulated on the builder.
func (b *ClientBuilder) Connect(ctx context.Context) (*Client, error) {
	return Connect(ctx, b.address, b.port, b.tlsOptions)
}

func (c *Client) newID() int {
	return int(atomic.AddUint32(&c.id, 1))
}

// roundTrip sends op under a fresh message id and waits for exactly one
// response, for operations with a single-response lifecycle (everything
// but Search/SearchPaged and Unbind).
func (c *Client) roundTrip(ctx context.Context, op protocolOp, controls ...Control) (*LdapMessage, error) {
	id := c.newID()
	sub := c.conn.subscribe(id)
	defer c.conn.unsubscribe(id)

	if err := c.conn.send(&LdapMessage{MessageID: id, Op: op, Controls: controls}); err != nil {
		return nil, err
	}

	select {
	case r := <-sub:
		if r.err != nil {
			return nil, r.err
		}
		return r.msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the underlying connection without sending an
// UnbindRequest. Prefer Unbind for an orderly shutdown.
func (c *Client) Close() error {
	return c.conn.close()
}

// Bind performs a simple (DN + password) bind. An empty dn and password
// together form the anonymous bind used for RootDSE discovery.
func (c *Client) Bind(ctx context.Context, dn string, password []byte) error {
	msg, err := c.roundTrip(ctx, &bindRequest{DN: dn, Auth: AuthenticationChoice{Simple: password}})
	if err != nil {
		return err
	}
	resp, ok := msg.Op.(*bindResponse)
	if !ok {
		return InvalidResponseError("expected BindResponse")
	}
	return checkResult(resp.Result)
}

// Unbind sends an UnbindRequest, which has no response, and closes the
// connection. RFC 4511 section 4.3.
func (c *Client) Unbind(ctx context.Context) error {
	id := c.newID()
	err := c.conn.send(&LdapMessage{MessageID: id, Op: &unbindRequest{}})
	closeErr := c.conn.close()
	if err != nil {
		return err
	}
	return closeErr
}

// WhoAmI implements RFC 4532: it returns the authzId the server associates
// with the current bind, or "" for an anonymous session.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	msg, err := c.roundTrip(ctx, &extendedRequest{RequestName: OIDWhoAmI})
	if err != nil {
		return "", err
	}
	resp, ok := msg.Op.(*extendedResponse)
	if !ok {
		return "", InvalidResponseError("expected ExtendedResponse")
	}
	if err := checkResult(resp.Result); err != nil {
		return "", err
	}
	if !resp.HasValue {
		return "", nil
	}
	return string(resp.ResponseValue), nil
}

// Add performs an AddRequest.
func (c *Client) Add(ctx context.Context, req *AddRequest) error {
	msg, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	resp, ok := msg.Op.(*addResponse)
	if !ok {
		return InvalidResponseError("expected AddResponse")
	}
	return checkResult(resp.Result)
}

// Delete performs a DelRequest.
func (c *Client) Delete(ctx context.Context, dn string) error {
	msg, err := c.roundTrip(ctx, &DeleteRequest{DN: dn})
	if err != nil {
		return err
	}
	resp, ok := msg.Op.(*delResponse)
	if !ok {
		return InvalidResponseError("expected DelResponse")
	}
	return checkResult(resp.Result)
}

// Modify performs a ModifyRequest.
func (c *Client) Modify(ctx context.Context, req *ModifyRequest) error {
	msg, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	resp, ok := msg.Op.(*modifyResponse)
	if !ok {
		return InvalidResponseError("expected ModifyResponse")
	}
	return checkResult(resp.Result)
}

// ExtendedOp sends an arbitrary ExtendedRequest and returns the raw
// response name/value, for extended operations this package doesn't wrap
// directly.
func (c *Client) ExtendedOp(ctx context.Context, requestName string, requestValue []byte) (responseName string, responseValue []byte, err error) {
	req := &extendedRequest{RequestName: requestName}
	if requestValue != nil {
		req.RequestValue = requestValue
		req.HasValue = true
	}
	msg, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", nil, err
	}
	resp, ok := msg.Op.(*extendedResponse)
	if !ok {
		return "", nil, InvalidResponseError("expected ExtendedResponse")
	}
	if err := checkResult(resp.Result); err != nil {
		return "", nil, err
	}
	return resp.ResponseName, resp.ResponseValue, nil
}

// ModifyPassword performs the RFC 3062 Password Modify extended operation.
func (c *Client) ModifyPassword(ctx context.Context, req PasswordModifyRequest) (*PasswordModifyResponse, error) {
	_, value, err := c.ExtendedOp(ctx, OIDPasswordModify, req.encodeValue())
	if err != nil {
		return nil, err
	}
	return decodePasswordModifyResponse(value)
}

// SearchStream is the result of Search: entries arrive as they're received
// from the server rather than all at once (search result references are
// skipped). Call Next until it returns io.EOF, which marks a successful
// SearchResultDone, or another error; afterwards Controls holds the
// controls of the message carrying the terminal SearchResultDone (e.g. the
// Simple Paged Results cookie; see paged.go).
type SearchStream struct {
	client *Client
	id     int
	sub    chan msgOrErr
	done   bool
	err    error

	Controls []Control
}

// Search issues a SearchRequest and returns a stream of its results. The
// stream's subscriber is released on EOF or on Close; forgetting to drain
// or Close a SearchStream leaks the message id's subscriber slot for the
// life of the connection.
func (c *Client) Search(ctx context.Context, req *SearchRequest, controls ...Control) (*SearchStream, error) {
	id := c.newID()
	sub := c.conn.subscribe(id)
	if err := c.conn.send(&LdapMessage{MessageID: id, Op: req, Controls: controls}); err != nil {
		c.conn.unsubscribe(id)
		return nil, err
	}
	return &SearchStream{client: c, id: id, sub: sub}, nil
}

// Next blocks for the next entry, skipping any search result references
// in between. It returns io.EOF once the
// server's SearchResultDone has been consumed; any non-success result is
// surfaced as an *OperationError instead.
func (s *SearchStream) Next(ctx context.Context) (*SearchEntry, error) {
	if s.done {
		return nil, io.EOF
	}
	for {
		select {
		case r := <-s.sub:
			if r.err != nil {
				s.done = true
				s.err = r.err
				return nil, r.err
			}
			switch op := r.msg.Op.(type) {
			case *searchResultEntry:
				return &op.Entry, nil
			case *searchResultReference:
				continue
			case *searchResultDone:
				s.done = true
				s.client.conn.unsubscribe(s.id)
				s.Controls = r.msg.Controls
				if err := checkResult(op.Result); err != nil {
					s.err = err
					return nil, err
				}
				return nil, io.EOF
			default:
				s.done = true
				s.client.conn.unsubscribe(s.id)
				s.err = InvalidResponseError(fmt.Sprintf("unexpected op %T in search stream", r.msg.Op))
				return nil, s.err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close releases the stream's subscription. Safe to call after Next has
// already returned io.EOF.
func (s *SearchStream) Close() {
	if !s.done {
		s.client.conn.unsubscribe(s.id)
		s.done = true
	}
}

// SearchAll drains a Search into a slice; convenient for callers who don't
// need incremental delivery and know the result set is bounded.
func (c *Client) SearchAll(ctx context.Context, req *SearchRequest) ([]SearchEntry, error) {
	stream, err := c.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	var entries []SearchEntry
	for {
		e, err := stream.Next(ctx)
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, *e)
	}
}
