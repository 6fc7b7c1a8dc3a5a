package registry

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// pver is threaded through the btcsuite wire helpers below. The registry's
// wire format never varies by protocol version; it is fixed at 0.
const pver = 0

// maxIPLen bounds the length-prefixed IP/hostname string a node may
// advertise, guarding the decoder against a corrupt or hostile record.
const maxIPLen = 256

// PubKey is either a 33-byte compressed secp256k1 point or, when isP2SH is
// true, a marker indicating the payment destination must be resolved from
// the collateral output's scriptPubKey when the StartTx is applied.
type PubKey struct {
	Bytes []byte
	IsP2SH bool
}

func (k PubKey) encode(w io.Writer) error {
	if k.IsP2SH {
		return wire.WriteVarBytes(w, pver, nil)
	}
	return wire.WriteVarBytes(w, pver, k.Bytes)
}

func decodePubKey(r io.Reader) (PubKey, error) {
	b, err := wire.ReadVarBytes(r, pver, 65, "pubkey")
	if err != nil {
		return PubKey{}, err
	}
	if len(b) == 0 {
		return PubKey{IsP2SH: true}, nil
	}
	return PubKey{Bytes: b}, nil
}

// NodeRecord is the canonical record of a registered node.
type NodeRecord struct {
	CollateralOutpoint Outpoint
	CollateralAmount   int64
	Tier               Tier
	CollateralPubkey   PubKey
	OperatorPubkey     PubKey
	IP                 string

	AddedHeight         uint32
	ConfirmedHeight     uint32
	LastConfirmedHeight uint32
	LastPaidHeight      uint32

	// resolvedPayee caches the P2SH payment destination resolved once when
	// the StartTx is applied, so payment-time queries never re-hit the UTXO
	// engine.
	// Empty when CollateralPubkey is not a P2SH marker.
	resolvedPayee []byte
}

// PaymentDestination returns the script/pubkey bytes that should receive
// this node's payment: the collateral pubkey directly, or the cached P2SH
// resolution.
func (r *NodeRecord) PaymentDestination() []byte {
	if r.CollateralPubkey.IsP2SH {
		return r.resolvedPayee
	}
	return r.CollateralPubkey.Bytes
}

// SetResolvedPayee stores the P2SH payment destination resolved via the
// chain driver's UTXO lookup when the StartTx is applied.
func (r *NodeRecord) SetResolvedPayee(dest []byte) {
	r.resolvedPayee = dest
}

// Clone returns a deep copy, used when a record must be captured into a
// BlockUndo before being mutated further within the same block.
func (r *NodeRecord) Clone() *NodeRecord {
	cp := *r
	if r.CollateralPubkey.Bytes != nil {
		cp.CollateralPubkey.Bytes = append([]byte(nil), r.CollateralPubkey.Bytes...)
	}
	if r.OperatorPubkey.Bytes != nil {
		cp.OperatorPubkey.Bytes = append([]byte(nil), r.OperatorPubkey.Bytes...)
	}
	if r.resolvedPayee != nil {
		cp.resolvedPayee = append([]byte(nil), r.resolvedPayee...)
	}
	return &cp
}

// Encode writes the record in deterministic field order: fixed-width
// outpoint, varint amount and tier, length-prefixed pubkeys and IP string,
// varint heights, then the length-prefixed P2SH payee. The amount is a
// varint, not a fixed-width field. This is used for both the persistent
// store and the undo log;
// changing field order or width is a storage-format break.
func (r *NodeRecord) Encode(w io.Writer) error {
	if err := r.CollateralOutpoint.Encode(w); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, pver, uint64(r.CollateralAmount)); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, pver, uint64(r.Tier)); err != nil {
		return err
	}
	if err := r.CollateralPubkey.encode(w); err != nil {
		return err
	}
	if err := r.OperatorPubkey.encode(w); err != nil {
		return err
	}
	if err := wire.WriteVarString(w, pver, r.IP); err != nil {
		return err
	}
	for _, h := range []uint32{r.AddedHeight, r.ConfirmedHeight, r.LastConfirmedHeight, r.LastPaidHeight} {
		if err := wire.WriteVarInt(w, pver, uint64(h)); err != nil {
			return err
		}
	}
	return wire.WriteVarBytes(w, pver, r.resolvedPayee)
}

// DecodeNodeRecord reads a record previously written by Encode.
func DecodeNodeRecord(r io.Reader) (*NodeRecord, error) {
	rec := &NodeRecord{}

	op, err := DecodeOutpoint(r)
	if err != nil {
		return nil, err
	}
	rec.CollateralOutpoint = op

	amt, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	rec.CollateralAmount = int64(amt)

	tier, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	rec.Tier = Tier(tier)

	if rec.CollateralPubkey, err = decodePubKey(r); err != nil {
		return nil, err
	}
	if rec.OperatorPubkey, err = decodePubKey(r); err != nil {
		return nil, err
	}

	ipBytes, err := wire.ReadVarBytes(r, pver, maxIPLen, "ip")
	if err != nil {
		return nil, err
	}
	rec.IP = string(ipBytes)

	heights := make([]uint32, 4)
	for i := range heights {
		h, err := wire.ReadVarInt(r, pver)
		if err != nil {
			return nil, err
		}
		heights[i] = uint32(h)
	}
	rec.AddedHeight = heights[0]
	rec.ConfirmedHeight = heights[1]
	rec.LastConfirmedHeight = heights[2]
	rec.LastPaidHeight = heights[3]

	payee, err := wire.ReadVarBytes(r, pver, 128, "resolvedPayee")
	if err != nil {
		return nil, err
	}
	rec.resolvedPayee = payee

	return rec, nil
}

// EncodeBytes is a convenience wrapper around Encode for store writes.
func (r *NodeRecord) EncodeBytes() []byte {
	var buf bytes.Buffer
	_ = r.Encode(&buf)
	return buf.Bytes()
}
