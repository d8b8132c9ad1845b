// Package udp owns the game socket: it reads datagrams for the session manager and
// writes server messages back to client addresses.
package udp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/netip"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/wricardo/train-rush/game/protocol"
)

const (
	// Largest datagram the server reads
	maxDatagramSize = 64 * 1024

	// Time allowed to write one datagram
	writeWait = time.Second
)

var ErrClosed = errors.New("udp server closed")

// Handler receives every datagram in arrival order
type Handler interface {
	HandleDatagram(addr string, data []byte)
}

// Server is a bound UDP socket
type Server struct {
	conn   *net.UDPConn
	closed atomic.Bool

	sent     atomic.Uint64
	received atomic.Uint64
}

// Listen binds the socket. Send works immediately; Serve starts reading.
func Listen(addr string) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Server{conn: conn}, nil
}

// Addr returns the bound local address
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Send encodes msg as one NDJSON line and writes it to addr
func (s *Server) Send(addr string, msg protocol.Message) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return fmt.Errorf("bad address %q: %w", addr, err)
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if _, err := s.conn.WriteToUDPAddrPort(data, ap); err != nil {
		return err
	}
	s.sent.Add(1)
	return nil
}

// Serve reads datagrams until ctx is done or the socket is closed
func (s *Server) Serve(ctx context.Context, h Handler) error {
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	log.Printf("UDP server listening on %s", s.Addr())
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("Warning: UDP read failed: %v", err)
			continue
		}
		s.received.Add(1)
		data := make([]byte, n)
		copy(data, buf[:n])
		s.dispatch(h, from.String(), data)
	}
}

func (s *Server) dispatch(h Handler, addr string, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Warning: handler panicked on datagram from %s: %v\n%s", addr, rec, debug.Stack())
		}
	}()
	h.HandleDatagram(addr, data)
}

// Stats returns datagram counters
func (s *Server) Stats() (sent, received uint64) {
	return s.sent.Load(), s.received.Load()
}

// Close closes the socket. It is safe to call more than once.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}
