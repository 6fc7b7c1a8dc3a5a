package registry

// ShadowCache accumulates one block's mutations against a Registry without
// touching the main state. It is discarded on any consensus rejection and
// committed atomically on success — the registry's only transaction
// mechanism, in place of a real DB transaction wrapping every tracker.
//
// ShadowCache holds copy-on-write overlays: a mutation first checks the
// overlay, falling back to the underlying Registry's state when absent.
// Because a single block only ever touches a small fraction of the active
// node set, this is cheaper than deep-copying every tracker per block.
type ShadowCache struct {
	reg *Registry

	// startPuts/startDeletes overlay the StartTracker.
	startPuts    map[Outpoint]*NodeRecord
	startDeletes map[Outpoint]bool

	// dosPuts/dosDeletes overlay the DoSTracker.
	dosPuts    map[Outpoint]*NodeRecord
	dosDeletes map[Outpoint]bool

	// confirmedPuts/confirmedDeletes overlay ConfirmedRecords.
	confirmedPuts    map[Outpoint]*NodeRecord
	confirmedDeletes map[Outpoint]bool

	// queueOps replays, in order, against the real queues at commit time.
	queueOps []queueOp

	undo *BlockUndo

	mempoolOutpoints map[Outpoint]bool
}

type queueOpKind uint8

const (
	qPushBack queueOpKind = iota
	qRotate
	qRemove
	qInsertAt
)

type queueOp struct {
	kind     queueOpKind
	tier     Tier
	outpoint Outpoint
	position int
}

func newShadowCache(reg *Registry) *ShadowCache {
	return &ShadowCache{
		reg:              reg,
		startPuts:        make(map[Outpoint]*NodeRecord),
		startDeletes:     make(map[Outpoint]bool),
		dosPuts:          make(map[Outpoint]*NodeRecord),
		dosDeletes:       make(map[Outpoint]bool),
		confirmedPuts:    make(map[Outpoint]*NodeRecord),
		confirmedDeletes: make(map[Outpoint]bool),
		undo:             &BlockUndo{},
		mempoolOutpoints: make(map[Outpoint]bool),
	}
}

// trackerOf reports which of the three disjoint sets an outpoint currently
// occupies, consulting the overlay before the committed state.
func (sc *ShadowCache) trackerOf(o Outpoint) TrackerKind {
	if sc.startDeletes[o] {
		// fall through; may exist elsewhere
	} else if _, ok := sc.startPuts[o]; ok {
		return InStart
	}
	if sc.dosDeletes[o] {
	} else if _, ok := sc.dosPuts[o]; ok {
		return InDoS
	}
	if sc.confirmedDeletes[o] {
	} else if _, ok := sc.confirmedPuts[o]; ok {
		return InConfirmed
	}

	if !sc.startDeletes[o] {
		if _, ok := sc.reg.start.get(o); ok {
			return InStart
		}
	}
	if !sc.dosDeletes[o] {
		if _, ok := sc.reg.dos.get(o); ok {
			return InDoS
		}
	}
	if !sc.confirmedDeletes[o] {
		if _, ok := sc.reg.confirmed.get(o); ok {
			return InConfirmed
		}
	}
	return NoTracker
}

func (sc *ShadowCache) getStart(o Outpoint) (*NodeRecord, bool) {
	if sc.startDeletes[o] {
		return nil, false
	}
	if r, ok := sc.startPuts[o]; ok {
		return r, true
	}
	return sc.reg.start.get(o)
}

func (sc *ShadowCache) getDoS(o Outpoint) (*NodeRecord, bool) {
	if sc.dosDeletes[o] {
		return nil, false
	}
	if r, ok := sc.dosPuts[o]; ok {
		return r, true
	}
	return sc.reg.dos.get(o)
}

func (sc *ShadowCache) getConfirmed(o Outpoint) (*NodeRecord, bool) {
	if sc.confirmedDeletes[o] {
		return nil, false
	}
	if r, ok := sc.confirmedPuts[o]; ok {
		return r, true
	}
	return sc.reg.confirmed.get(o)
}

func (sc *ShadowCache) putStart(r *NodeRecord) {
	o := r.CollateralOutpoint
	sc.startPuts[o] = r
	delete(sc.startDeletes, o)
}

func (sc *ShadowCache) removeStart(o Outpoint) {
	delete(sc.startPuts, o)
	sc.startDeletes[o] = true
}

func (sc *ShadowCache) putDoS(r *NodeRecord) {
	o := r.CollateralOutpoint
	sc.dosPuts[o] = r
	delete(sc.dosDeletes, o)
}

func (sc *ShadowCache) removeDoS(o Outpoint) {
	delete(sc.dosPuts, o)
	sc.dosDeletes[o] = true
}

func (sc *ShadowCache) putConfirmed(r *NodeRecord) {
	o := r.CollateralOutpoint
	sc.confirmedPuts[o] = r
	delete(sc.confirmedDeletes, o)
}

func (sc *ShadowCache) removeConfirmed(o Outpoint) {
	delete(sc.confirmedPuts, o)
	sc.confirmedDeletes[o] = true
}

// commit replays every overlay mutation onto the Registry's real state.
// Called only after Apply has validated the entire block.
func (sc *ShadowCache) commit() {
	for o, r := range sc.startPuts {
		sc.reg.start.put(o, r)
	}
	for o := range sc.startDeletes {
		sc.reg.start.delete(o)
	}
	for o, r := range sc.dosPuts {
		sc.reg.dos.put(o, r)
	}
	for o := range sc.dosDeletes {
		sc.reg.dos.delete(o)
	}
	for _, op := range sc.queueOps {
		q := sc.reg.confirmed.queueFor(op.tier)
		switch op.kind {
		case qPushBack:
			q.PushBack(op.outpoint)
		case qRotate:
			q.RotateToBack(op.outpoint)
		case qRemove:
			q.Remove(op.outpoint)
		case qInsertAt:
			q.InsertAt(op.outpoint, op.position)
		}
	}
	for o, r := range sc.confirmedPuts {
		sc.reg.confirmed.records[o] = r
	}
	for o := range sc.confirmedDeletes {
		delete(sc.reg.confirmed.records, o)
	}
}
