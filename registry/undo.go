package registry

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// PaidUndo is one entry of the undo record's payment-rotation map: the
// outpoint's prior last_paid_height and which tier's queue it must be
// rotated back out of the tail of.
type PaidUndo struct {
	PriorLastPaidHeight uint32
	Tier                Tier
}

// ExpiredEntry pairs a full record removed from a tracker with the queue
// position it held, so undo can restore both the record and its exact slot.
type ExpiredEntry struct {
	Record        *NodeRecord
	QueuePosition int
}

// BlockUndo carries everything needed to reverse one block's registry
// mutations. Fields not explicitly populated are treated as empty, never
// nil-vs-empty-distinguishing; Encode always writes every slice/map length,
// even zero.
type BlockUndo struct {
	Height uint32

	// NewStarts holds outpoints that entered the Start tracker for the
	// first time this block. Undo deletes them outright rather than
	// trying to restore a prior state that never existed.
	NewStarts []Outpoint

	// NewConfirms holds outpoints promoted from Start to Confirmed this
	// block (an InitialConfirm). Undo moves them back to Start and
	// clears their confirmed_height/last_confirmed_height.
	NewConfirms []Outpoint

	// ExpiredStartToDoS holds records moved from the Start tracker into
	// the DoS tracker this block. Undo moves them back.
	ExpiredStartToDoS []*NodeRecord

	// ExpiredDoSRemoved holds records removed entirely from the DoS
	// tracker this block. Undo re-inserts them into the DoS tracker.
	ExpiredDoSRemoved []*NodeRecord

	// ExpiredConfirmed holds records removed from ConfirmedRecords (and
	// their tier queue) this block, together with the queue position
	// they held. Undo restores both.
	ExpiredConfirmed []ExpiredEntry

	// PriorLastConfirmedHeight maps an outpoint that received an
	// UpdateConfirm this block to its last_confirmed_height beforehand.
	PriorLastConfirmedHeight map[Outpoint]uint32

	// PriorIP is the optional trailing field: added after the format was
	// first deployed, so decoders must tolerate its absence at EOF. Maps
	// an outpoint that received an UpdateConfirm to its ip string
	// beforehand.
	PriorIP map[Outpoint]string

	// PriorPaid maps an outpoint paid this block to its prior
	// last_paid_height and tier.
	PriorPaid map[Outpoint]PaidUndo
}

func newBlockUndo(height uint32) *BlockUndo {
	return &BlockUndo{
		Height:                   height,
		PriorLastConfirmedHeight: make(map[Outpoint]uint32),
		PriorIP:                  make(map[Outpoint]string),
		PriorPaid:                make(map[Outpoint]PaidUndo),
	}
}

// Encode writes the undo record in deterministic order. Required fields are
// written first; PriorIP is written last so a decoder reading a stream
// written before PriorIP existed can treat end-of-stream after the required
// fields as "PriorIP absent" rather than an error.
func (u *BlockUndo) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, pver, uint64(u.Height)); err != nil {
		return err
	}
	if err := encodeOutpointSlice(w, u.NewStarts); err != nil {
		return err
	}
	if err := encodeOutpointSlice(w, u.NewConfirms); err != nil {
		return err
	}
	if err := encodeRecordSlice(w, u.ExpiredStartToDoS); err != nil {
		return err
	}
	if err := encodeRecordSlice(w, u.ExpiredDoSRemoved); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, pver, uint64(len(u.ExpiredConfirmed))); err != nil {
		return err
	}
	for _, e := range u.ExpiredConfirmed {
		if err := e.Record.Encode(w); err != nil {
			return err
		}
		if err := wire.WriteVarInt(w, pver, uint64(e.QueuePosition)); err != nil {
			return err
		}
	}
	if err := encodeHeightMap(w, u.PriorLastConfirmedHeight); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, pver, uint64(len(u.PriorPaid))); err != nil {
		return err
	}
	for _, o := range sortedKeys(u.PriorPaid) {
		p := u.PriorPaid[o]
		if err := o.Encode(w); err != nil {
			return err
		}
		if err := wire.WriteVarInt(w, pver, uint64(p.PriorLastPaidHeight)); err != nil {
			return err
		}
		if err := wire.WriteVarInt(w, pver, uint64(p.Tier)); err != nil {
			return err
		}
	}
	// Optional trailing field.
	return encodeIPMap(w, u.PriorIP)
}

// DecodeBlockUndo reads an undo record previously written by Encode,
// tolerating the absence of the trailing PriorIP field.
func DecodeBlockUndo(r io.Reader) (*BlockUndo, error) {
	u := newBlockUndo(0)

	h, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	u.Height = uint32(h)

	if u.NewStarts, err = decodeOutpointSlice(r); err != nil {
		return nil, err
	}
	if u.NewConfirms, err = decodeOutpointSlice(r); err != nil {
		return nil, err
	}
	if u.ExpiredStartToDoS, err = decodeRecordSlice(r); err != nil {
		return nil, err
	}
	if u.ExpiredDoSRemoved, err = decodeRecordSlice(r); err != nil {
		return nil, err
	}

	n, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	u.ExpiredConfirmed = make([]ExpiredEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		rec, err := DecodeNodeRecord(r)
		if err != nil {
			return nil, err
		}
		pos, err := wire.ReadVarInt(r, pver)
		if err != nil {
			return nil, err
		}
		u.ExpiredConfirmed = append(u.ExpiredConfirmed, ExpiredEntry{Record: rec, QueuePosition: int(pos)})
	}

	if u.PriorLastConfirmedHeight, err = decodeHeightMap(r); err != nil {
		return nil, err
	}

	pn, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	u.PriorPaid = make(map[Outpoint]PaidUndo, pn)
	for i := uint64(0); i < pn; i++ {
		o, err := DecodeOutpoint(r)
		if err != nil {
			return nil, err
		}
		h, err := wire.ReadVarInt(r, pver)
		if err != nil {
			return nil, err
		}
		t, err := wire.ReadVarInt(r, pver)
		if err != nil {
			return nil, err
		}
		u.PriorPaid[o] = PaidUndo{PriorLastPaidHeight: uint32(h), Tier: Tier(t)}
	}

	// Optional trailing field: absence at EOF means "no IP overrides",
	// not an error.
	ipMap, err := decodeIPMap(r)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			u.PriorIP = make(map[Outpoint]string)
			return u, nil
		}
		return nil, err
	}
	u.PriorIP = ipMap

	return u, nil
}

func encodeOutpointSlice(w io.Writer, os []Outpoint) error {
	if err := wire.WriteVarInt(w, pver, uint64(len(os))); err != nil {
		return err
	}
	for _, o := range os {
		if err := o.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

func decodeOutpointSlice(r io.Reader) ([]Outpoint, error) {
	n, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	out := make([]Outpoint, 0, n)
	for i := uint64(0); i < n; i++ {
		o, err := DecodeOutpoint(r)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func encodeRecordSlice(w io.Writer, recs []*NodeRecord) error {
	if err := wire.WriteVarInt(w, pver, uint64(len(recs))); err != nil {
		return err
	}
	for _, r := range recs {
		if err := r.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

func decodeRecordSlice(r io.Reader) ([]*NodeRecord, error) {
	n, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	out := make([]*NodeRecord, 0, n)
	for i := uint64(0); i < n; i++ {
		rec, err := DecodeNodeRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func encodeHeightMap(w io.Writer, m map[Outpoint]uint32) error {
	if err := wire.WriteVarInt(w, pver, uint64(len(m))); err != nil {
		return err
	}
	for _, o := range sortedHeightKeys(m) {
		if err := o.Encode(w); err != nil {
			return err
		}
		if err := wire.WriteVarInt(w, pver, uint64(m[o])); err != nil {
			return err
		}
	}
	return nil
}

func decodeHeightMap(r io.Reader) (map[Outpoint]uint32, error) {
	n, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	out := make(map[Outpoint]uint32, n)
	for i := uint64(0); i < n; i++ {
		o, err := DecodeOutpoint(r)
		if err != nil {
			return nil, err
		}
		h, err := wire.ReadVarInt(r, pver)
		if err != nil {
			return nil, err
		}
		out[o] = uint32(h)
	}
	return out, nil
}

func encodeIPMap(w io.Writer, m map[Outpoint]string) error {
	if err := wire.WriteVarInt(w, pver, uint64(len(m))); err != nil {
		return err
	}
	for _, o := range sortedIPKeys(m) {
		if err := o.Encode(w); err != nil {
			return err
		}
		if err := wire.WriteVarString(w, pver, m[o]); err != nil {
			return err
		}
	}
	return nil
}

func decodeIPMap(r io.Reader) (map[Outpoint]string, error) {
	n, err := wire.ReadVarInt(r, pver)
	if err != nil {
		return nil, err
	}
	out := make(map[Outpoint]string, n)
	for i := uint64(0); i < n; i++ {
		o, err := DecodeOutpoint(r)
		if err != nil {
			return nil, err
		}
		ipBytes, err := wire.ReadVarBytes(r, pver, maxIPLen, "ip")
		if err != nil {
			return nil, err
		}
		out[o] = string(ipBytes)
	}
	return out, nil
}

func sortedKeys(m map[Outpoint]PaidUndo) []Outpoint {
	out := make([]Outpoint, 0, len(m))
	for o := range m {
		out = append(out, o)
	}
	sortOutpoints(out)
	return out
}

func sortedHeightKeys(m map[Outpoint]uint32) []Outpoint {
	out := make([]Outpoint, 0, len(m))
	for o := range m {
		out = append(out, o)
	}
	sortOutpoints(out)
	return out
}

func sortedIPKeys(m map[Outpoint]string) []Outpoint {
	out := make([]Outpoint, 0, len(m))
	for o := range m {
		out = append(out, o)
	}
	sortOutpoints(out)
	return out
}

// Bytes returns the deterministic encoding of the undo record.
func (u *BlockUndo) Bytes() []byte {
	var buf bytes.Buffer
	_ = u.Encode(&buf)
	return buf.Bytes()
}
