package ldap

import (
	"errors"
	"io"
	"sync"
)

// msgOrErr is what the pump delivers to a subscriber: either a decoded
// message addressed to its request id, or the terminal error that ended
// the connection (io error, protocol error, or the server closing on us).
type msgOrErr struct {
	msg *LdapMessage
	err error
}

// conn demultiplexes a channel's inbound byte stream by LDAPMessage id and
// fans it out to per-request subscribers. A single pump goroutine owns the
// read side; outbound writes are serialized independently so a slow
// subscriber never blocks framing of someone else's request.
type conn struct {
	ch *channel

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[int]chan msgOrErr

	closed   chan struct{}
	closeErr error
	once     sync.Once
}

func newConn(ch *channel) *conn {
	return &conn{
		ch:     ch,
		subs:   make(map[int]chan msgOrErr),
		closed: make(chan struct{}),
	}
}

// start spawns the pump goroutine. It must be called exactly once, after
// any STARTTLS negotiation on ch has already completed.
func (c *conn) start() {
	go c.pump()
}

func (c *conn) pump() {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		msg, consumed, err := Codec{}.Decode(buf)
		if err == nil {
			buf = buf[consumed:]
			c.dispatch(msg)
			continue
		}
		if err != ErrIncomplete {
			c.shutdown(&AsnDecodeError{Err: err})
			return
		}
		n, rerr := c.ch.br.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				c.shutdown(ErrConnectionClosed)
			} else {
				c.shutdown(&IoError{Err: rerr})
			}
			return
		}
	}
}

func (c *conn) dispatch(msg *LdapMessage) {
	if notice, ok := c.noticeOfDisconnection(msg); ok {
		logger().WithField("reason", notice.DiagnosticMessage).Warn("ldap: received unsolicited notice of disconnection")
		c.shutdown(&OperationError{
			ResultCode:        notice.ResultCode,
			MatchedDN:         notice.MatchedDN,
			DiagnosticMessage: notice.DiagnosticMessage,
		})
		return
	}

	c.mu.Lock()
	sub := c.subs[msg.MessageID]
	c.mu.Unlock()

	if sub == nil {
		logger().WithField("msg_id", msg.MessageID).Debug("ldap: response for unknown or cancelled message id")
		return
	}

	// Best-effort delivery: a subscriber that isn't keeping up with its
	// buffer loses this message, but the pump never blocks on it — one
	// stalled consumer (e.g. a SearchStream the caller stopped draining)
	// must not wedge every other in-flight operation on the connection.
	select {
	case sub <- msgOrErr{msg: msg}:
	default:
		logger().WithField("msg_id", msg.MessageID).Warn("ldap: subscriber sink full, dropping message")
	}
}

// noticeOfDisconnection recognizes RFC 4511 section 4.4.1: an unsolicited
// ExtendedResponse with message id 0 and responseName
// OIDNoticeOfDisconnection, which the server may send before closing the
// connection on its own initiative.
func (c *conn) noticeOfDisconnection(msg *LdapMessage) (LdapResult, bool) {
	if msg.MessageID != 0 {
		return LdapResult{}, false
	}
	resp, ok := msg.Op.(*extendedResponse)
	if !ok || !resp.HasName || resp.ResponseName != OIDNoticeOfDisconnection {
		return LdapResult{}, false
	}
	return resp.Result, true
}

func (c *conn) shutdown(err error) {
	c.once.Do(func() {
		c.closeErr = err
		c.ch.close()
		c.mu.Lock()
		subs := c.subs
		c.subs = nil
		c.mu.Unlock()
		for _, sub := range subs {
			deliverTerminal(sub, err)
		}
		close(c.closed)
	})
}

// deliverTerminal hands a terminal error to sub without blocking. Unlike
// dispatch's best-effort send, every subscriber must observe a connection's
// end, so a full buffer is drained of its stale slot rather than silently
// dropping the shutdown signal. When close() triggers shutdown from another
// goroutine, the pump may still be dispatching to a subscriber it looked up
// before the map was detached and can refill the slot; its sends never
// block and stop once its read fails, so drain-and-send repeats until the
// terminal error lands.
func deliverTerminal(sub chan msgOrErr, err error) {
	for {
		select {
		case sub <- msgOrErr{err: err}:
			return
		default:
		}
		select {
		case <-sub:
		default:
		}
	}
}

// send encodes and writes msg, serialized against any other concurrent
// sender on this connection.
func (c *conn) send(msg *LdapMessage) error {
	out, err := Codec{}.Encode(msg)
	if err != nil {
		return &AsnEncodeError{Err: err}
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.ch.bw.Write(out); err != nil {
		return &IoError{Err: err}
	}
	return c.ch.bw.Flush()
}

// subscribe registers a channel to receive messages addressed to id. The
// caller must eventually call unsubscribe(id), typically via defer, even
// on early return — dropping a subscriber is how an in-flight request is
// cancelled.
func (c *conn) subscribe(id int) chan msgOrErr {
	ch := make(chan msgOrErr, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		ch <- msgOrErr{err: c.closeErr}
		return ch
	}
	c.subs[id] = ch
	return ch
}

func (c *conn) unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs != nil {
		delete(c.subs, id)
	}
}

func (c *conn) close() error {
	err := c.ch.close()
	c.shutdown(ErrConnectionClosed)
	return err
}
