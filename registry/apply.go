package registry

// Apply consumes one block and produces its BlockUndo. The six steps below
// run in a fixed order; reordering them changes consensus outcomes, not
// just style.
//
// Apply acquires chainMu then registryMu and mutates only a ShadowCache
// until every step has succeeded; on any ConsensusReject the shadow is
// discarded and the Registry is left exactly as it was before the call.
func (r *Registry) Apply(block *Block) (*BlockUndo, error) {
	r.chainMu.Lock()
	defer r.chainMu.Unlock()
	r.registryMu.Lock()
	defer r.registryMu.Unlock()

	sc := newShadowCache(r)
	undo := newBlockUndo(block.Height)
	sc.undo = undo

	// Step 1: payment selection (pre-tx). Peek, don't mutate.
	toBePaid := r.selectPayments(block.Height)

	// Step 2: transaction scan, in block order.
	spentSet := make(map[Outpoint]bool)
	seenThisBlock := make(map[Outpoint]bool)

	for _, tx := range block.Txs {
		if tx.IsCoinbase {
			continue
		}
		if tx.Node == nil {
			for _, in := range tx.Inputs {
				spentSet[in] = true
			}
			continue
		}

		nt := tx.Node
		if seenThisBlock[nt.CollateralOut] {
			// First occurrence in block order wins; later ones fail.
			return nil, NewError(ConsensusReject, "duplicate collateral outpoint in block", nt.CollateralOut.String())
		}

		amount, _, _, ok := r.driver.LookupOutput(nt.CollateralOut)
		if !ok {
			return nil, NewError(ConsensusReject, "collateral output not found", nt.CollateralOut.String())
		}

		tier := r.params.Classifier.Classify(block.Height, amount)
		if tier == Invalid {
			return nil, NewError(ConsensusReject, "collateral amount does not classify to any tier", nt.CollateralOut.String())
		}

		switch nt.Type {
		case StartTxType:
			if sc.trackerOf(nt.CollateralOut) != NoTracker {
				return nil, NewError(ConsensusReject, "collateral outpoint already tracked", nt.CollateralOut.String())
			}
			rec := &NodeRecord{
				CollateralOutpoint: nt.CollateralOut,
				CollateralAmount:   amount,
				Tier:               tier,
				CollateralPubkey:   nt.CollateralPubkey,
				OperatorPubkey:     nt.OperatorPubkey,
				IP:                 nt.IP,
				AddedHeight:        block.Height,
			}
			if rec.CollateralPubkey.IsP2SH {
				if _, script, _, ok := r.driver.LookupOutput(nt.CollateralOut); ok {
					rec.SetResolvedPayee(script)
				}
			}
			sc.putStart(rec)
			undo.NewStarts = append(undo.NewStarts, nt.CollateralOut)

		case InitialConfirmTxType:
			rec, ok := sc.getStart(nt.CollateralOut)
			if !ok {
				return nil, NewError(ConsensusReject, "InitialConfirm for outpoint not in StartTracker", nt.CollateralOut.String())
			}
			if rec.Tier != tier {
				return nil, NewError(ConsensusReject, "collateral re-classified since start", nt.CollateralOut.String())
			}
			rec = rec.Clone()
			rec.ConfirmedHeight = block.Height
			rec.LastConfirmedHeight = block.Height
			sc.removeStart(nt.CollateralOut)
			sc.putConfirmed(rec)
			sc.queueOps = append(sc.queueOps, queueOp{kind: qPushBack, tier: rec.Tier, outpoint: rec.CollateralOutpoint})
			undo.NewConfirms = append(undo.NewConfirms, rec.CollateralOutpoint)

		case UpdateConfirmTxType:
			rec, ok := sc.getConfirmed(nt.CollateralOut)
			if !ok {
				return nil, NewError(ConsensusReject, "UpdateConfirm for outpoint not in ConfirmedRecords", nt.CollateralOut.String())
			}
			if _, captured := undo.PriorLastConfirmedHeight[nt.CollateralOut]; !captured {
				undo.PriorLastConfirmedHeight[nt.CollateralOut] = rec.LastConfirmedHeight
				undo.PriorIP[nt.CollateralOut] = rec.IP
			}
			rec = rec.Clone()
			rec.LastConfirmedHeight = block.Height
			rec.IP = nt.IP
			sc.putConfirmed(rec)
		}

		seenThisBlock[nt.CollateralOut] = true
	}

	// Step 3: Start-tx expirations -> DoS.
	for _, o := range r.start.sortedOutpoints() {
		rec, ok := sc.getStart(o)
		if !ok {
			continue
		}
		if rec.AddedHeight+r.params.StartExpiration <= block.Height {
			sc.removeStart(o)
			sc.putDoS(rec)
			undo.ExpiredStartToDoS = append(undo.ExpiredStartToDoS, rec.Clone())
		}
	}
	// A record added to Start within this very block can never expire in
	// the same block: AddedHeight+StartExpiration > height whenever
	// StartExpiration > 0, so sc.startPuts needs no extra sweep here.

	// Step 4: DoS expirations -> removed entirely.
	for _, o := range r.dos.sortedOutpoints() {
		rec, ok := sc.getDoS(o)
		if !ok {
			continue
		}
		if rec.AddedHeight+r.params.StartExpiration+r.params.DoSRemove <= block.Height {
			sc.removeDoS(o)
			undo.ExpiredDoSRemoved = append(undo.ExpiredDoSRemoved, rec.Clone())
		}
	}
	// Records moved into DoS earlier in this same block (step 3) cannot
	// also satisfy the step-4 threshold: DoSRemove > 0 guarantees
	// AddedHeight+StartExpiration+DoSRemove > AddedHeight+StartExpiration,
	// and the latter already equals the current height for those records.

	// Step 5: Confirmed expirations, by staleness or collateral spend.
	// Candidates include records confirmed earlier AND records that were
	// just promoted by an InitialConfirm in step 2 above (sc.confirmedPuts)
	// — a node confirmed and spent within the same block must still be
	// evicted within that block.
	confirmedCandidates := r.confirmed.sortedOutpoints()
	for o := range sc.confirmedPuts {
		if _, already := r.confirmed.get(o); !already {
			confirmedCandidates = append(confirmedCandidates, o)
		}
	}
	sortOutpoints(confirmedCandidates)
	for _, o := range confirmedCandidates {
		rec, ok := sc.getConfirmed(o)
		if !ok {
			continue
		}
		expired := rec.LastConfirmedHeight+r.params.ConfirmExpiration <= block.Height
		spent := spentSet[o]
		if !expired && !spent {
			continue
		}
		pos := r.confirmed.queueFor(rec.Tier).Position(o)
		sc.removeConfirmed(o)
		sc.queueOps = append(sc.queueOps, queueOp{kind: qRemove, tier: rec.Tier, outpoint: o})
		undo.ExpiredConfirmed = append(undo.ExpiredConfirmed, ExpiredEntry{Record: rec.Clone(), QueuePosition: pos})
	}
	// Newly-confirmed records from step 2 are checked too (sc.getConfirmed
	// already reflects them), so an InitialConfirm immediately followed by
	// a collateral spend in the same block correctly evicts within the
	// same Apply call. Its queue position may come back -1 (it was never
	// pushed to the real queue yet); Undo handles that case by replaying
	// NewConfirms after restoring ExpiredConfirmed, which removes the
	// record from the queue again regardless of the position it was given.

	// Step 6: apply payments collected in step 1.
	for _, tp := range toBePaid {
		rec, ok := sc.getConfirmed(tp.outpoint)
		if !ok {
			// Expired or otherwise removed earlier in this block; skip.
			continue
		}
		if _, captured := undo.PriorPaid[tp.outpoint]; !captured {
			undo.PriorPaid[tp.outpoint] = PaidUndo{PriorLastPaidHeight: rec.LastPaidHeight, Tier: tp.tier}
		}
		rec = rec.Clone()
		rec.LastPaidHeight = block.Height
		sc.putConfirmed(rec)
		sc.queueOps = append(sc.queueOps, queueOp{kind: qRotate, tier: tp.tier, outpoint: tp.outpoint})
	}

	sc.commit()
	r.tipHeight = block.Height

	if r.store != nil {
		if err := r.persistApply(block, sc, undo); err != nil {
			return nil, NewError(StorageFailure, err.Error(), block.Hash.String())
		}
	}

	return undo, nil
}

type toBePaidEntry struct {
	tier     Tier
	outpoint Outpoint
}

// selectPayments implements step 1: for each tier in ascending order, if
// the height has reached PaymentsStart, peek (never mutate) the queue head.
func (r *Registry) selectPayments(height uint32) []toBePaidEntry {
	if height < r.params.PaymentsStart {
		return nil
	}
	out := make([]toBePaidEntry, 0, TierCount())
	for _, t := range Tiers() {
		if o, ok := r.confirmed.queueFor(t).Head(); ok {
			out = append(out, toBePaidEntry{tier: t, outpoint: o})
		}
	}
	return out
}

// persistApply writes the records mutated this block, plus the undo
// record, in a single atomic batch.
func (r *Registry) persistApply(block *Block, sc *ShadowCache, undo *BlockUndo) error {
	return r.store.CommitBatch(func(b Batch) error {
		for o := range sc.confirmedPuts {
			if rec, ok := r.confirmed.get(o); ok {
				if err := b.PutNodeRecord(rec); err != nil {
					return err
				}
			}
		}
		for o := range sc.confirmedDeletes {
			if err := b.DeleteNodeRecord(o); err != nil {
				return err
			}
		}
		var hash [32]byte
		copy(hash[:], block.Hash[:])
		if err := b.PutUndo(hash, undo); err != nil {
			return err
		}
		for _, t := range Tiers() {
			if err := b.PutQueueSnapshot(t, r.confirmed.queueFor(t).Slice()); err != nil {
				return err
			}
		}
		return nil
	})
}
