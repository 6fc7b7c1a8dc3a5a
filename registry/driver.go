package registry

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// UTXOLookup is the narrow slice of the UTXO engine the registry depends
// on, kept as a consumer-defined interface at the package boundary: the
// registry names only what it needs, the blockchain engine is never
// imported directly.
type UTXOLookup interface {
	// LookupOutput returns the amount, scriptPubKey and creation height of
	// an unspent output, or ok=false if it does not exist (already spent
	// or never existed).
	LookupOutput(o Outpoint) (amount int64, script []byte, height uint32, ok bool)
}

// BlockTimer supplies the wall-clock time of a given height. Neither the
// registry nor the RPC query surface calls it; NodeView's activesince and
// lastpaid fields are never filled in.
type BlockTimer interface {
	BlockTime(height uint32) int64
}

// TipHeightProvider reports the chain's current tip height.
type TipHeightProvider interface {
	CurrentTipHeight() uint32
}

// BlockSource supplies the raw block at a given height, used only by
// Rebuild to replay history into a fresh registry.
type BlockSource interface {
	BlockAt(height uint32) (*Block, bool)
}

// ChainDriver bundles the external dependencies the registry relies on to
// stay decoupled from the blockchain engine.
type ChainDriver interface {
	UTXOLookup
	BlockTimer
	TipHeightProvider
	BlockSource
}

// NodeTxType enumerates the three node-lifecycle transaction types the core
// recognizes.
type NodeTxType uint8

const (
	StartTxType NodeTxType = iota
	InitialConfirmTxType
	UpdateConfirmTxType
)

// NodeTx is the node-lifecycle payload carried by a transaction. Signature
// verification and general transaction validity are out of scope; the
// registry trusts that txs reaching Apply have already been verified by the
// block-validation layer upstream.
type NodeTx struct {
	Type             NodeTxType
	CollateralOut    Outpoint
	CollateralPubkey PubKey
	OperatorPubkey   PubKey
	IP               string
}

// Tx is one transaction within a block, as handed to Apply. Node is nil for
// ordinary transactions.
type Tx struct {
	IsCoinbase bool
	Inputs     []Outpoint // prevouts this tx spends; empty for coinbase
	Node       *NodeTx
}

// Block is the minimal block record the registry consumes: a height, a
// hash (used as the undo-log key), and its transactions in block order.
type Block struct {
	Height uint32
	Hash   chainhash.Hash
	Txs    []Tx
}
