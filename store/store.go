// Package store provides the badger-backed persistence layer behind
// registry.Store: confirmed records, per-tier queue snapshots and the
// block-undo log.
package store

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/sirupsen/logrus"

	"github.com/MotoAcidic/fluxd/registry"
)

const (
	nodeRecordPrefix    = "N"
	undoPrefix          = "U"
	queueSnapshotPrefix = "M"
)

// BadgerStore implements registry.Store on top of a badger.DB, one key
// space per record kind, a single write batch per commit.
type BadgerStore struct {
	db     *badger.DB
	path   string
	logger *logrus.Entry
}

// NewBadgerStore opens (creating if necessary) a badger database at path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	mDbOpen.Inc()
	return &BadgerStore{db: db, path: path, logger: logger}, nil
}

func nodeRecordKey(o registry.Outpoint) []byte {
	return []byte(fmt.Sprintf("%s_%s", nodeRecordPrefix, o.String()))
}

func undoKey(blockHash [32]byte) []byte {
	return append([]byte(undoPrefix+"_"), blockHash[:]...)
}

func queueSnapshotKey(tier registry.Tier) []byte {
	return []byte(fmt.Sprintf("%s_%d", queueSnapshotPrefix, tier))
}

// PutNodeRecord writes a confirmed record outside of a batch, used by
// callers that are not going through CommitBatch (e.g. bootstrapping).
func (s *BadgerStore) PutNodeRecord(rec *registry.NodeRecord) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()
	if err := tx.Set(nodeRecordKey(rec.CollateralOutpoint), rec.EncodeBytes()); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNodeRecord removes a confirmed record outside of a batch.
func (s *BadgerStore) DeleteNodeRecord(o registry.Outpoint) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()
	if err := tx.Delete(nodeRecordKey(o)); err != nil {
		return err
	}
	return tx.Commit()
}

// PutUndo writes a block's undo record outside of a batch.
func (s *BadgerStore) PutUndo(blockHash [32]byte, undo *registry.BlockUndo) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()
	if err := tx.Set(undoKey(blockHash), undo.Bytes()); err != nil {
		return err
	}
	return tx.Commit()
}

// GetUndo reads back a previously stored undo record.
func (s *BadgerStore) GetUndo(blockHash [32]byte) (*registry.BlockUndo, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(undoKey(blockHash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, mapNotFound(err, "BlockUndo", fmt.Sprintf("%x", blockHash))
	}
	return registry.DecodeBlockUndo(bytes.NewReader(raw))
}

// PruneUndo deletes a consumed or reorg-stale undo record.
func (s *BadgerStore) PruneUndo(blockHash [32]byte) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()
	if err := tx.Delete(undoKey(blockHash)); err != nil {
		return err
	}
	return tx.Commit()
}

// PutQueueSnapshot writes a tier's queue snapshot outside of a batch.
func (s *BadgerStore) PutQueueSnapshot(tier registry.Tier, outpoints []registry.Outpoint) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()
	if err := tx.Set(queueSnapshotKey(tier), encodeOutpoints(outpoints)); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadConfirmedRecords scans every stored node record. Rebuild uses it to
// find stored records whose outpoints are no longer confirmed.
func (s *BadgerStore) LoadConfirmedRecords() ([]*registry.NodeRecord, error) {
	var out []*registry.NodeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(nodeRecordPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var raw []byte
			if err := it.Item().Value(func(val []byte) error {
				raw = append([]byte{}, val...)
				return nil
			}); err != nil {
				return err
			}
			rec, err := registry.DecodeNodeRecord(bytes.NewReader(raw))
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// LoadQueueSnapshot reads back a tier's persisted queue order.
func (s *BadgerStore) LoadQueueSnapshot(tier registry.Tier) ([]registry.Outpoint, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(queueSnapshotKey(tier))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeOutpoints(raw)
}

// CommitBatch runs fn against one badger write transaction and commits it,
// so every mutation for a single applied or undone block lands atomically.
func (s *BadgerStore) CommitBatch(fn func(registry.Batch) error) error {
	mTxnOpen.Inc()
	defer mTxnOpen.Dec()

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	b := &badgerBatch{tx: tx}
	if err := fn(b); err != nil {
		return err
	}

	timer := newCommitTimer()
	defer timer.observe()
	return tx.Commit()
}

// Close flushes and closes the underlying database.
func (s *BadgerStore) Close() error {
	mDbOpen.Dec()
	return s.db.Close()
}

// Sync exists so registry.Flush can force badger to persist outside its
// normal per-block commit cadence.
func (s *BadgerStore) Sync() error {
	return s.db.Sync()
}

func mapNotFound(err error, name, key string) error {
	if err == badger.ErrKeyNotFound {
		return registry.NewError(registry.NotApplicable, name+" not found", key)
	}
	return err
}
