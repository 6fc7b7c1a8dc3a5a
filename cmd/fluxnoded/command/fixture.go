package command

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/MotoAcidic/fluxd/registry"
)

// jsonTx/jsonBlock are the on-disk JSON shape of a fixture/replay file:
// one JSON document, decoded in full on load.
type jsonTx struct {
	IsCoinbase bool             `json:"is_coinbase,omitempty"`
	Inputs     []string         `json:"inputs,omitempty"`
	Node       *jsonNodeTx      `json:"node,omitempty"`
}

type jsonNodeTx struct {
	Type             string `json:"type"`
	CollateralOut    string `json:"collateral_out"`
	CollateralPubkey string `json:"collateral_pubkey,omitempty"`
	P2SH             bool   `json:"p2sh,omitempty"`
	OperatorPubkey   string `json:"operator_pubkey,omitempty"`
	IP               string `json:"ip,omitempty"`
}

type jsonBlock struct {
	Height    uint32   `json:"height"`
	Hash      string   `json:"hash"`
	Timestamp int64    `json:"timestamp"`
	Txs       []jsonTx `json:"txs"`
}

// FixtureDriver is a registry.ChainDriver backed by a JSON file of blocks
// and a static UTXO set, used by the run/rebuild commands when no live
// chain engine is attached. It exists for replay and local testing, never
// for production consensus.
type FixtureDriver struct {
	mu     sync.Mutex
	blocks []*registry.Block
	byHash map[uint32]int64 // height -> timestamp

	utxos map[registry.Outpoint]utxoEntry
}

type utxoEntry struct {
	amount int64
	script []byte
	height uint32
}

// LoadFixtureDriver reads a JSON fixture file and decodes it into a
// FixtureDriver whose UTXO table is the flat list declared in the same
// file. collateral_out references are parsed here and looked up in that
// table only when the registry applies the block.
func LoadFixtureDriver(path string) (*FixtureDriver, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Blocks []jsonBlock `json:"blocks"`
		UTXOs  []struct {
			Outpoint string `json:"outpoint"`
			Amount   int64  `json:"amount"`
			Height   uint32 `json:"height"`
		} `json:"utxos"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	d := &FixtureDriver{
		byHash: make(map[uint32]int64),
		utxos:  make(map[registry.Outpoint]utxoEntry),
	}

	for _, u := range doc.UTXOs {
		o, err := parseFixtureOutpoint(u.Outpoint)
		if err != nil {
			return nil, err
		}
		d.utxos[o] = utxoEntry{amount: u.Amount, height: u.Height}
	}

	for _, jb := range doc.Blocks {
		b, err := decodeJSONBlock(jb)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", jb.Height, err)
		}
		d.blocks = append(d.blocks, b)
		d.byHash[jb.Height] = jb.Timestamp
	}

	return d, nil
}

func parseFixtureOutpoint(s string) (registry.Outpoint, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return registry.Outpoint{}, fmt.Errorf("malformed outpoint %q", s)
	}
	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return registry.Outpoint{}, err
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return registry.Outpoint{}, err
	}
	return registry.NewOutpoint(*hash, uint32(vout)), nil
}

func decodeJSONBlock(jb jsonBlock) (*registry.Block, error) {
	hash, err := chainhash.NewHashFromStr(jb.Hash)
	if err != nil {
		return nil, err
	}

	b := &registry.Block{Height: jb.Height, Hash: *hash}
	for _, jtx := range jb.Txs {
		tx := registry.Tx{IsCoinbase: jtx.IsCoinbase}
		for _, in := range jtx.Inputs {
			o, err := parseFixtureOutpoint(in)
			if err != nil {
				return nil, err
			}
			tx.Inputs = append(tx.Inputs, o)
		}
		if jtx.Node != nil {
			nt, err := decodeJSONNodeTx(jtx.Node)
			if err != nil {
				return nil, err
			}
			tx.Node = nt
		}
		b.Txs = append(b.Txs, tx)
	}
	return b, nil
}

func decodeJSONNodeTx(j *jsonNodeTx) (*registry.NodeTx, error) {
	var typ registry.NodeTxType
	switch j.Type {
	case "start":
		typ = registry.StartTxType
	case "initial_confirm":
		typ = registry.InitialConfirmTxType
	case "update_confirm":
		typ = registry.UpdateConfirmTxType
	default:
		return nil, fmt.Errorf("unknown node tx type %q", j.Type)
	}

	o, err := parseFixtureOutpoint(j.CollateralOut)
	if err != nil {
		return nil, err
	}

	nt := &registry.NodeTx{
		Type:          typ,
		CollateralOut: o,
		IP:            j.IP,
	}
	if j.P2SH {
		nt.CollateralPubkey = registry.PubKey{IsP2SH: true}
	} else if j.CollateralPubkey != "" {
		b, err := hex.DecodeString(j.CollateralPubkey)
		if err != nil {
			return nil, err
		}
		nt.CollateralPubkey = registry.PubKey{Bytes: b}
	}
	if j.OperatorPubkey != "" {
		b, err := hex.DecodeString(j.OperatorPubkey)
		if err != nil {
			return nil, err
		}
		nt.OperatorPubkey = registry.PubKey{Bytes: b}
	}
	return nt, nil
}

// LookupOutput implements registry.UTXOLookup against the fixture's static
// UTXO table; it never reflects spends applied during replay, since the
// registry only consults it for a collateral output's amount and script,
// which do not change once mined.
func (d *FixtureDriver) LookupOutput(o registry.Outpoint) (amount int64, script []byte, height uint32, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.utxos[o]
	return e.amount, e.script, e.height, ok
}

// BlockTime returns the timestamp recorded for height in the fixture file.
func (d *FixtureDriver) BlockTime(height uint32) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byHash[height]
}

// CurrentTipHeight returns the height of the last block in the fixture.
func (d *FixtureDriver) CurrentTipHeight() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.blocks) == 0 {
		return 0
	}
	return d.blocks[len(d.blocks)-1].Height
}

// BlockAt returns the fixture block at height, if present.
func (d *FixtureDriver) BlockAt(height uint32) (*registry.Block, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.blocks {
		if b.Height == height {
			return b, true
		}
	}
	return nil, false
}
