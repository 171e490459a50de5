// Package transport implements the framed OSC-over-TCP socket the sync
// engine runs on (§4.1, §5, §7): a 4-byte big-endian length prefix
// around each OSC packet, a non-blocking connect, a bounded-timeout
// recv that accumulates partial reads, and an outbound path that sends
// "immediate" packets synchronously but drains queued packets one per
// tick.
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package transport

import (
	"encoding/binary"
	"net"
	"time"

	"github.com/pkg/errors"
)

// State is the connection's own small state machine, distinct from the
// sync engine's SyncStatus: it tracks only the socket, not the mirror.
type State int

const (
	NotConnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case NotConnected:
		return "not_connected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Conn wraps a net.Conn with OSC-packet framing, a growable inbound
// accumulator, and a FIFO outbound queue. It owns the socket: nothing
// else may touch it concurrently with Tick/Recv/Send (§5).
type Conn struct {
	state State

	dialer   net.Dialer
	conn     net.Conn
	dialDone chan dialResult

	accum []byte
	queue [][]byte
}

type dialResult struct {
	conn net.Conn
	err  error
}

// New returns an unconnected Conn.
func New() *Conn { return &Conn{state: NotConnected} }

// State reports the connection's current socket state.
func (c *Conn) State() State { return c.state }

// Connect begins a non-blocking connect to addr ("host:port"). The
// actual dial runs on its own goroutine so Tick never blocks the
// caller's tick loop; Poll observes completion.
func (c *Conn) Connect(addr string) {
	c.reset()
	c.state = Connecting
	c.dialDone = make(chan dialResult, 1)
	go func() {
		conn, err := c.dialer.Dial("tcp", addr)
		c.dialDone <- dialResult{conn, err}
	}()
}

// Poll observes whether a pending Connect has finished, transitioning
// Connecting -> Connected on success or Connecting -> NotConnected on
// failure. It never blocks. It returns true exactly on the tick the
// connection newly becomes Connected.
func (c *Conn) Poll() (justConnected bool) {
	if c.state != Connecting {
		return false
	}
	select {
	case res := <-c.dialDone:
		c.dialDone = nil
		if res.err != nil {
			c.state = NotConnected
			return false
		}
		c.conn = res.conn
		c.state = Connected
		return true
	default:
		return false
	}
}

// Close releases the socket on every exit path, matching §5's
// "shutdown must release [sockets] on all exit paths including
// errors."
func (c *Conn) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.reset()
}

func (c *Conn) reset() {
	c.conn = nil
	c.dialDone = nil
	c.accum = nil
	c.queue = nil
	c.state = NotConnected
}

// Enqueue appends packet to the outbound FIFO; DrainOne sends the
// oldest queued packet, at most one per tick (§4.1, §5 Ordering).
func (c *Conn) Enqueue(packet []byte) {
	c.queue = append(c.queue, packet)
}

// DrainOne sends the single oldest queued packet, if any. It reports
// whether a packet was sent; a send failure marks the connection
// NotConnected per §7's transport-fatal rule and the packet is lost
// (matching "On truncation or socket error, mark disconnected and
// fail" — a queued-but-unsent packet is not retried, since there is no
// reconnection logic in this library to resend it against).
func (c *Conn) DrainOne() bool {
	if len(c.queue) == 0 || c.state != Connected {
		return false
	}
	packet := c.queue[0]
	c.queue = c.queue[1:]
	return c.send(packet)
}

// Send writes packet immediately if immediate is true (bypassing the
// FIFO, per §5 "An immediate send may overtake queued packets"), or
// enqueues it for the next DrainOne otherwise. It reports whether an
// immediate send succeeded; a queued send always reports true (queuing
// cannot itself fail).
func (c *Conn) Send(packet []byte, immediate bool) bool {
	if !immediate {
		c.Enqueue(packet)
		return true
	}
	return c.send(packet)
}

// send frames packet with its 4-byte big-endian length and writes it
// synchronously. Any error, or a short write, is transport-fatal (§7):
// the connection is torn down so the caller observes NotConnected on
// the next State() check.
func (c *Conn) send(packet []byte) bool {
	if c.state != Connected {
		return false
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(packet)))

	if _, err := c.conn.Write(hdr[:]); err != nil {
		c.fail()
		return false
	}
	n, err := c.conn.Write(packet)
	if err != nil || n != len(packet) {
		c.fail()
		return false
	}
	return true
}

func (c *Conn) fail() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.reset()
}

// Recv reads at most one socket chunk (bounded by timeout) into the
// accumulator, then peels off every complete length-prefixed packet
// currently available. It tolerates multiple packets per read and
// packets split across reads (§4.1); a socket error is transport-fatal
// and discards the accumulator.
func (c *Conn) Recv(timeout time.Duration) ([][]byte, error) {
	if c.state != Connected {
		return nil, nil
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		c.fail()
		return nil, errors.Wrap(err, "transport: set read deadline")
	}

	var buf [4096]byte
	n, err := c.conn.Read(buf[:])
	if n > 0 {
		c.accum = append(c.accum, buf[:n]...)
	}
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			// bounded wait elapsed with nothing to read; not fatal
		} else {
			c.fail()
			return nil, errors.Wrap(err, "transport: recv")
		}
	}

	var packets [][]byte
	for {
		if len(c.accum) < 4 {
			break
		}
		length := int32(binary.BigEndian.Uint32(c.accum[:4]))
		if length <= 0 {
			c.accum = c.accum[4:]
			continue
		}
		total := 4 + int(length)
		if len(c.accum) < total {
			break
		}
		packet := make([]byte, length)
		copy(packet, c.accum[4:total])
		packets = append(packets, packet)
		c.accum = c.accum[total:]
	}
	return packets, nil
}
