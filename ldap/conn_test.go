package ldap

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConn wires a conn over an in-memory net.Pipe, handing the caller
// the server-side net.Conn to write raw frames on and read requests from.
func newTestConn(t *testing.T) (*conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	c := newConn(newChannel(client))
	c.start()
	t.Cleanup(func() { c.close() })
	return c, server
}

func writeFrame(t *testing.T, srv net.Conn, msg *LdapMessage) {
	t.Helper()
	out, err := Codec{}.Encode(msg)
	require.NoError(t, err)
	_, err = srv.Write(out)
	require.NoError(t, err)
}

func TestConnDispatchRoutesByMessageID(t *testing.T) {
	c, srv := newTestConn(t)
	defer srv.Close()

	sub1 := c.subscribe(1)
	sub2 := c.subscribe(2)

	writeFrame(t, srv, &LdapMessage{MessageID: 2, Op: &bindResponse{Result: LdapResult{ResultCode: ResultSuccess}}})
	writeFrame(t, srv, &LdapMessage{MessageID: 1, Op: &bindResponse{Result: LdapResult{ResultCode: ResultInvalidCredentials}}})

	r1 := <-sub1
	require.NoError(t, r1.err)
	assert.Equal(t, ResultInvalidCredentials, r1.msg.Op.(*bindResponse).Result.ResultCode)

	r2 := <-sub2
	require.NoError(t, r2.err)
	assert.Equal(t, ResultSuccess, r2.msg.Op.(*bindResponse).Result.ResultCode)
}

func TestConnUnsubscribeDropsResponse(t *testing.T) {
	c, srv := newTestConn(t)
	defer srv.Close()

	sub := c.subscribe(5)
	c.unsubscribe(5)

	writeFrame(t, srv, &LdapMessage{MessageID: 5, Op: &bindResponse{Result: LdapResult{ResultCode: ResultSuccess}}})

	select {
	case <-sub:
		t.Fatal("expected no delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnConcurrentRoundTrips(t *testing.T) {
	c, srv := newTestConn(t)
	defer srv.Close()

	const n = 20
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		id := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := c.subscribe(id)
			defer c.unsubscribe(id)
			require.NoError(t, c.send(&LdapMessage{MessageID: id, Op: &unbindRequest{}}))
			r := <-sub
			require.NoError(t, r.err)
			assert.Equal(t, id, r.msg.MessageID)
		}()
	}

	// Echo every inbound request back as a BindResponse with the same id,
	// in reverse arrival order, to prove dispatch isn't relying on send order.
	go func() {
		var buf []byte
		chunk := make([]byte, 4096)
		var received []int
		for len(received) < n {
			nr, err := srv.Read(chunk)
			if nr > 0 {
				buf = append(buf, chunk[:nr]...)
			}
			if err != nil {
				return
			}
			for {
				msg, consumed, derr := Codec{}.Decode(buf)
				if derr != nil {
					break
				}
				buf = buf[consumed:]
				received = append(received, msg.MessageID)
			}
		}
		for i := len(received) - 1; i >= 0; i-- {
			writeFrame(t, srv, &LdapMessage{MessageID: received[i], Op: &bindResponse{Result: LdapResult{ResultCode: ResultSuccess}}})
		}
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for concurrent round trips")
	}
}

func TestConnDispatchDoesNotBlockOnFullSubscriber(t *testing.T) {
	c, srv := newTestConn(t)
	defer srv.Close()

	// sub1 never drains past its buffer-1 capacity, mimicking a search
	// stream the caller stopped reading. sub2 is a distinct in-flight
	// request that must still complete promptly.
	c.subscribe(1)
	sub2 := c.subscribe(2)

	writeFrame(t, srv, &LdapMessage{MessageID: 1, Op: &searchResultEntry{Entry: SearchEntry{DN: "first"}}})
	writeFrame(t, srv, &LdapMessage{MessageID: 1, Op: &searchResultEntry{Entry: SearchEntry{DN: "second"}}})
	writeFrame(t, srv, &LdapMessage{MessageID: 2, Op: &bindResponse{Result: LdapResult{ResultCode: ResultSuccess}}})

	select {
	case r := <-sub2:
		require.NoError(t, r.err)
		assert.Equal(t, 2, r.msg.MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("pump wedged on a full subscriber instead of dropping its message")
	}
}

func TestConnShutdownReachesSubscriberWithStaleBufferedMessage(t *testing.T) {
	c, srv := newTestConn(t)

	sub := c.subscribe(1)
	writeFrame(t, srv, &LdapMessage{MessageID: 1, Op: &searchResultEntry{Entry: SearchEntry{DN: "buffered"}}})

	// Give the pump a moment to fill sub's one-slot buffer before tearing
	// the connection down without the consumer ever reading it.
	time.Sleep(20 * time.Millisecond)
	srv.Close()

	select {
	case <-c.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown never closed c.closed")
	}

	// The stale buffered entry may or may not still be in front (it's a
	// race against the drain-and-resend in deliverTerminal), but the
	// subscriber must eventually observe the terminal error, not hang.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-sub:
			if r.err != nil {
				return
			}
		case <-deadline:
			t.Fatal("subscriber never observed the terminal shutdown error")
		}
	}
}

func TestConnShutdownBroadcastsToAllSubscribers(t *testing.T) {
	c, srv := newTestConn(t)

	sub1 := c.subscribe(1)
	sub2 := c.subscribe(2)

	srv.Close()

	r1 := <-sub1
	r2 := <-sub2
	assert.Error(t, r1.err)
	assert.Error(t, r2.err)

	// A subscribe issued after shutdown must fail fast rather than hang.
	sub3 := c.subscribe(3)
	r3 := <-sub3
	assert.Error(t, r3.err)
}
