package bodystream

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/klauspost/compress/zstd"
)

type Server struct {
	conn *net.UDPConn

	encoder *zstd.Encoder
}

// NewServer publishes frames to the given multicast group.
func NewServer(addr netip.AddrPort) (*Server, error) {
	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("could not dial udp address: %w", err)
	}

	return newServer(conn)
}

func newServer(conn *net.UDPConn) (*Server, error) {
	conn.SetWriteBuffer(maxDatagramSize)

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not create encoder: %w", err)
	}

	return &Server{
		conn:    conn,
		encoder: encoder,
	}, nil
}

func (s *Server) Close() error {
	s.encoder.Close()
	return s.conn.Close()
}

func (s *Server) Publish(f Frame) error {
	b, err := encodeFrame(s.encoder, f)
	if err != nil {
		return err
	}

	if len(b) > maxDatagramSize {
		return fmt.Errorf("body frame of %d bytes does not fit in a datagram", len(b))
	}

	if _, err := s.conn.Write(b); err != nil {
		return fmt.Errorf("could not send body frame: %w", err)
	}
	return nil
}
