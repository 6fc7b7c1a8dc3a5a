package registry

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/sirupsen/logrus"
)

type testLoggerAdapter struct {
	t testing.TB
}

func (a *testLoggerAdapter) Write(d []byte) (int, error) {
	if len(d) > 0 && d[len(d)-1] == '\n' {
		d = d[:len(d)-1]
	}
	a.t.Log(string(d))
	return len(d), nil
}

func newTestLogger(t testing.TB) *logrus.Entry {
	logger := logrus.New()
	logger.Out = &testLoggerAdapter{t: t}
	logger.Level = logrus.DebugLevel
	return logger.WithField("prefix", "test")
}

// fakeDriver is a ChainDriver backed by in-memory maps, built by tests to
// exercise Apply/Undo/Rebuild without a real UTXO engine.
type fakeDriver struct {
	utxos  map[Outpoint]fakeUTXO
	times  map[uint32]int64
	tip    uint32
	blocks map[uint32]*Block
}

type fakeUTXO struct {
	amount int64
	script []byte
	height uint32
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		utxos:  make(map[Outpoint]fakeUTXO),
		times:  make(map[uint32]int64),
		blocks: make(map[uint32]*Block),
	}
}

func (d *fakeDriver) LookupOutput(o Outpoint) (int64, []byte, uint32, bool) {
	u, ok := d.utxos[o]
	return u.amount, u.script, u.height, ok
}

func (d *fakeDriver) BlockTime(height uint32) int64 {
	return d.times[height]
}

func (d *fakeDriver) CurrentTipHeight() uint32 {
	return d.tip
}

func (d *fakeDriver) BlockAt(height uint32) (*Block, bool) {
	b, ok := d.blocks[height]
	return b, ok
}

func (d *fakeDriver) addUTXO(o Outpoint, amount int64) {
	d.utxos[o] = fakeUTXO{amount: amount}
}

func (d *fakeDriver) addBlock(b *Block) {
	d.blocks[b.Height] = b
	if b.Height > d.tip {
		d.tip = b.Height
	}
}

// testHash builds a deterministic chainhash.Hash from a small integer, so
// tests can construct distinct outpoints without real transaction bytes.
func testHash(n byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = n
	return h
}

func testOutpoint(n byte, vout uint32) Outpoint {
	return NewOutpoint(testHash(n), vout)
}

func testParams() Params {
	classifier := NewClassifier([]TierRange{
		{MinHeight: 0, Amount: 1000, Tier: Cumulus},
		{MinHeight: 0, Amount: 5000, Tier: Nimbus},
		{MinHeight: 0, Amount: 10000, Tier: Stratus},
	})
	return Params{
		Classifier:        classifier,
		StartExpiration:   10,
		DoSRemove:         10,
		ConfirmExpiration: 20,
		PaymentsStart:     0,
		TierPaymentAmount: map[Tier]int64{Cumulus: 1, Nimbus: 5, Stratus: 10},
	}
}

func startBlock(height uint32, o Outpoint, ip string) *Block {
	return &Block{
		Height: height,
		Hash:   testHash(byte(height)),
		Txs: []Tx{{Node: &NodeTx{
			Type:          StartTxType,
			CollateralOut: o,
			IP:            ip,
		}}},
	}
}

func confirmBlock(height uint32, o Outpoint, ip string) *Block {
	return &Block{
		Height: height,
		Hash:   testHash(byte(height)),
		Txs: []Tx{{Node: &NodeTx{
			Type:          InitialConfirmTxType,
			CollateralOut: o,
			IP:            ip,
		}}},
	}
}

func emptyBlock(height uint32) *Block {
	return &Block{Height: height, Hash: testHash(byte(height))}
}
