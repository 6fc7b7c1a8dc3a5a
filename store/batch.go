package store

import (
	"github.com/dgraph-io/badger"

	"github.com/MotoAcidic/fluxd/registry"
)

// badgerBatch implements registry.Batch over a single open badger
// transaction, handed to the caller's fn inside CommitBatch and committed
// once fn returns without error.
type badgerBatch struct {
	tx *badger.Txn
}

func (b *badgerBatch) PutNodeRecord(rec *registry.NodeRecord) error {
	return b.tx.Set(nodeRecordKey(rec.CollateralOutpoint), rec.EncodeBytes())
}

func (b *badgerBatch) DeleteNodeRecord(o registry.Outpoint) error {
	return b.tx.Delete(nodeRecordKey(o))
}

func (b *badgerBatch) PutUndo(blockHash [32]byte, undo *registry.BlockUndo) error {
	return b.tx.Set(undoKey(blockHash), undo.Bytes())
}

func (b *badgerBatch) PutQueueSnapshot(tier registry.Tier, outpoints []registry.Outpoint) error {
	return b.tx.Set(queueSnapshotKey(tier), encodeOutpoints(outpoints))
}
