package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Outpoint identifies a collateral output: the transaction that created it
// and the index of the output within that transaction. It is the primary
// key of a NodeRecord.
type Outpoint struct {
	TxID chainhash.Hash
	Vout uint32
}

// NewOutpoint builds an Outpoint from a 32-byte txid and a vout index.
func NewOutpoint(txid chainhash.Hash, vout uint32) Outpoint {
	return Outpoint{TxID: txid, Vout: vout}
}

// String returns "txid:vout", the conventional wallet-RPC representation.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Vout)
}

// Less orders outpoints lexicographically by txid bytes, then by vout. It is
// the deterministic tie-break used by expiration sweeps so that two runs
// iterating a Go map in different orders still produce byte-identical undo
// records.
func (o Outpoint) Less(other Outpoint) bool {
	c := bytes.Compare(o.TxID[:], other.TxID[:])
	if c != 0 {
		return c < 0
	}
	return o.Vout < other.Vout
}

// Encode writes the outpoint in the deterministic consensus wire format:
// a fixed 32-byte hash followed by a 4-byte little-endian vout.
func (o Outpoint) Encode(w io.Writer) error {
	if _, err := w.Write(o.TxID[:]); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, o.Vout)
}

// DecodeOutpoint reads an Outpoint previously written by Encode.
func DecodeOutpoint(r io.Reader) (Outpoint, error) {
	var o Outpoint
	if _, err := io.ReadFull(r, o.TxID[:]); err != nil {
		return Outpoint{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &o.Vout); err != nil {
		return Outpoint{}, err
	}
	return o, nil
}

// Bytes returns the deterministic encoding of the outpoint, used as a map
// and store key.
func (o Outpoint) Bytes() []byte {
	var buf bytes.Buffer
	_ = o.Encode(&buf)
	return buf.Bytes()
}
