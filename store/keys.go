package store

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/wire"

	"github.com/MotoAcidic/fluxd/registry"
)

// encodeOutpoints serializes an ordered outpoint list for a queue snapshot:
// a varint count followed by each outpoint's fixed-width encoding.
func encodeOutpoints(outpoints []registry.Outpoint) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarInt(&buf, pver, uint64(len(outpoints)))
	for _, o := range outpoints {
		_ = o.Encode(&buf)
	}
	return buf.Bytes()
}

// decodeOutpoints reads back a slice written by encodeOutpoints.
func decodeOutpoints(raw []byte) ([]registry.Outpoint, error) {
	r := bytes.NewReader(raw)
	n, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	out := make([]registry.Outpoint, 0, n)
	for i := uint64(0); i < n; i++ {
		o, err := registry.DecodeOutpoint(r)
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

const pver = 0
