package registry

// Rebuild discards all registry state and replays every block from
// fromHeight through the driver's current tip, deriving fresh trackers and
// queues from scratch. It is an administrative operation, not on the hot
// path: used for store-format upgrades or recovering from a StorageFailure.
//
// The replay runs entirely against a side registry; the live Registry is
// swapped to the derived state only if every block replays cleanly. On any
// error the side registry is discarded and r is left exactly as it was.
func (r *Registry) Rebuild(fromHeight uint32) error {
	r.chainMu.Lock()
	defer r.chainMu.Unlock()
	r.registryMu.Lock()
	defer r.registryMu.Unlock()

	side := &Registry{
		start:     newTrackerSet(),
		dos:       newTrackerSet(),
		confirmed: newConfirmedSet(),
		params:    r.params,
		driver:    r.driver,
		logger:    r.logger,
	}

	tip := r.driver.CurrentTipHeight()
	for h := fromHeight; h <= tip; h++ {
		block, ok := r.driver.BlockAt(h)
		if !ok {
			return NewError(InvariantViolation, "driver has no block at height during rebuild", "")
		}
		if _, err := side.Apply(block); err != nil {
			return err
		}
	}

	r.start = side.start
	r.dos = side.dos
	r.confirmed = side.confirmed
	r.tipHeight = side.tipHeight

	if r.store != nil {
		if err := r.persistRebuild(); err != nil {
			return NewError(StorageFailure, err.Error(), "")
		}
	}

	return nil
}

// persistRebuild writes the fully-derived state in one batch: every
// confirmed record and every tier's queue snapshot, plus a delete for each
// stored node record whose outpoint is no longer confirmed. Stored undo
// records are left as they are.
func (r *Registry) persistRebuild() error {
	stored, err := r.store.LoadConfirmedRecords()
	if err != nil {
		return err
	}
	return r.store.CommitBatch(func(b Batch) error {
		for _, rec := range stored {
			if _, ok := r.confirmed.get(rec.CollateralOutpoint); !ok {
				if err := b.DeleteNodeRecord(rec.CollateralOutpoint); err != nil {
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
