package registry

import (
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Undo reverses the mutations recorded in undo, restoring the registry to
// its state immediately before the block at height was applied. The steps
// run in the exact reverse of Apply's order, and each sub-step restores one
// specific piece of undo data. blockHash identifies the undo record's entry
// in the store so it can be pruned once consumed.
func (r *Registry) Undo(height uint32, blockHash chainhash.Hash, undo *BlockUndo) error {
	r.chainMu.Lock()
	defer r.chainMu.Unlock()
	r.registryMu.Lock()
	defer r.registryMu.Unlock()

	if undo.Height != height {
		return NewError(InvariantViolation, "undo record height mismatch", "")
	}

	// Reverse step 6: a record that was paid this block was, by
	// definition, still confirmed when step 6 ran (step 5 already chose
	// what to expire before payments were applied), so it is still
	// present in ConfirmedRecords now. Restore last_paid_height and move
	// the outpoint from wherever RotateToBack left it back to the front
	// of its tier's queue.
	for o, p := range undo.PriorPaid {
		rec, ok := r.confirmed.get(o)
		if !ok {
			return NewError(InvariantViolation, "paid outpoint missing from ConfirmedRecords during undo", o.String())
		}
		rec.LastPaidHeight = p.PriorLastPaidHeight
		q := r.confirmed.queueFor(p.Tier)
		q.Remove(o)
		q.InsertAt(o, 0)
	}

	// Reverse step 5: re-insert every confirmed record expired this
	// block, at the queue position it held. Entries are restored in
	// ascending position so each lands back in its own slot; entries with
	// no position (-1: confirmed and evicted within this block) go last.
	expired := append([]ExpiredEntry(nil), undo.ExpiredConfirmed...)
	sort.SliceStable(expired, func(i, j int) bool {
		pi, pj := expired[i].QueuePosition, expired[j].QueuePosition
		if (pi < 0) != (pj < 0) {
			return pj < 0
		}
		return pi < pj
	})
	for _, e := range expired {
		r.confirmed.restore(e.Record, e.QueuePosition)
	}

	// Reverse step 4: re-insert every record removed outright from DoS.
	for _, rec := range undo.ExpiredDoSRemoved {
		r.dos.put(rec.CollateralOutpoint, rec)
	}

	// Reverse step 3: move every record that was pushed from Start into
	// DoS back to Start.
	for _, rec := range undo.ExpiredStartToDoS {
		r.dos.delete(rec.CollateralOutpoint)
		r.start.put(rec.CollateralOutpoint, rec)
	}

	// Reverse the UpdateConfirm mutations from step 2, applied to whatever
	// is now in ConfirmedRecords (restored above if it had been expired).
	for o, priorHeight := range undo.PriorLastConfirmedHeight {
		if rec, ok := r.confirmed.get(o); ok {
			rec.LastConfirmedHeight = priorHeight
			rec.IP = undo.PriorIP[o]
		}
	}

	// Reverse the InitialConfirm transitions from step 2: move back to
	// Start and clear the confirmed-only height fields. This runs after
	// the ExpiredConfirmed restore above, so a record that was both
	// confirmed and evicted within the same block is correctly removed
	// from the queue again here rather than left behind at whatever
	// queue position the eviction captured (which may be unset, since
	// the record was never pushed to the real queue before being
	// removed from it in the same Apply call).
	for _, o := range undo.NewConfirms {
		rec := r.confirmed.unconfirm(o)
		if rec == nil {
			continue
		}
		rec.ConfirmedHeight = 0
		rec.LastConfirmedHeight = 0
		r.start.put(o, rec)
	}

	// Reverse the StartTx creations from step 2: these outpoints never
	// existed before this block, so delete them outright.
	for _, o := range undo.NewStarts {
		r.start.delete(o)
	}

	r.tipHeight = height - 1

	if r.store != nil {
		if err := r.persistUndo(undo.NewConfirms); err != nil {
			return NewError(StorageFailure, err.Error(), "")
		}
		var hash [32]byte
		copy(hash[:], blockHash[:])
		if err := r.store.PruneUndo(hash); err != nil {
			return NewError(StorageFailure, err.Error(), "")
		}
	}

	return nil
}

// persistUndo writes back every tier's queue snapshot and the full set of
// confirmed records, reflecting whatever Undo just restored or removed, and
// deletes the stored record for any outpoint Undo moved out of
// ConfirmedRecords entirely (the InitialConfirm transitions it is reversing).
func (r *Registry) persistUndo(movedOutOfConfirmed []Outpoint) error {
	return r.store.CommitBatch(func(b Batch) error {
		for _, o := range movedOutOfConfirmed {
			if _, ok := r.confirmed.get(o); !ok {
				if err := b.DeleteNodeRecord(o); err != nil {
					return err
				}
			}
		}
		for _, o := range r.confirmed.sortedOutpoints() {
			if err := b.PutNodeRecord(r.confirmed.records[o]); err != nil {
				return err
			}
		}
		for _, t := range Tiers() {
			if err := b.PutQueueSnapshot(t, r.confirmed.queueFor(t).Slice()); err != nil {
				return err
			}
		}
		return nil
	})
}
