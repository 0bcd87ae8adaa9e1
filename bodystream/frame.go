// Package bodystream carries skeleton frames from a body tracking host to
// viewers over UDP multicast, one compressed frame per datagram.
package bodystream

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"essaim.dev/kinectskel/joints"
)

const maxDatagramSize = 64 * 1024

// Frame is one skeleton sample tagged with the tracker timestamp.
type Frame struct {
	Timestamp  uint32        `msgpack:"ts"`
	TrackingID uint64        `msgpack:"id"`
	Points     joints.Points `msgpack:"pts"`
}

func encodeFrame(enc *zstd.Encoder, f Frame) ([]byte, error) {
	b, err := msgpack.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("could not encode body frame: %w", err)
	}

	return enc.EncodeAll(b, make([]byte, 0, len(b))), nil
}

func decodeFrame(dec *zstd.Decoder, b []byte) (Frame, error) {
	raw, err := dec.DecodeAll(b, make([]byte, 0, maxDatagramSize))
	if err != nil {
		return Frame{}, fmt.Errorf("could not decompress body frame: %w", err)
	}

	var f Frame
	if err := msgpack.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("could not decode body frame: %w", err)
	}

	return f, nil
}
