package bodystream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const readTimeout = 250 * time.Millisecond

type Client struct {
	conn *net.UDPConn

	decoder *zstd.Decoder

	latestMu sync.RWMutex
	latest   Frame
	seq      uint64
}

// NewClient joins the multicast group the body tracker publishes to.
func NewClient(addr netip.AddrPort) (*Client, error) {
	conn, err := net.ListenMulticastUDP("udp4", nil, net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("could not listen on multicast address: %w", err)
	}

	return newClient(conn)
}

func newClient(conn *net.UDPConn) (*Client, error) {
	conn.SetReadBuffer(maxDatagramSize)

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not create decoder: %w", err)
	}

	return &Client{
		conn:    conn,
		decoder: decoder,
	}, nil
}

func (c *Client) Close() error {
	c.decoder.Close()
	return c.conn.Close()
}

// Run receives frames until ctx is canceled or the connection fails.
// Datagrams that do not decode are dropped.
func (c *Client) Run(ctx context.Context) error {
	b := make([]byte, maxDatagramSize)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled: %w", ctx.Err())
		default:
		}

		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := c.conn.Read(b)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			continue
		}
		if err != nil {
			return fmt.Errorf("connection closed: %w", err)
		}

		f, err := decodeFrame(c.decoder, b[:n])
		if err != nil {
			slog.Warn("dropping body frame", "size", n, "error", err)
			continue
		}

		c.latestMu.Lock()
		c.latest = f
		c.seq++
		c.latestMu.Unlock()
	}
}

// Latest returns the last received frame and how many frames were received
// so far. A zero count means no frame arrived yet.
func (c *Client) Latest() (Frame, uint64) {
	c.latestMu.RLock()
	defer c.latestMu.RUnlock()

	return c.latest, c.seq
}
