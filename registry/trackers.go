package registry

// TrackerKind identifies which of the three disjoint sets an outpoint
// belongs to.
type TrackerKind uint8

const (
	// NoTracker means the outpoint is in none of the three sets.
	NoTracker TrackerKind = iota
	InStart
	InDoS
	InConfirmed
)

// trackerSet is a map of Outpoint to *NodeRecord. StartTracker and
// DoSTracker are both instances of this shape; ConfirmedRecords additionally
// needs the payment queues, so it is modeled separately below.
type trackerSet struct {
	records map[Outpoint]*NodeRecord
}

func newTrackerSet() *trackerSet {
	return &trackerSet{records: make(map[Outpoint]*NodeRecord)}
}

func (s *trackerSet) get(o Outpoint) (*NodeRecord, bool) {
	r, ok := s.records[o]
	return r, ok
}

func (s *trackerSet) put(o Outpoint, r *NodeRecord) {
	s.records[o] = r
}

func (s *trackerSet) delete(o Outpoint) {
	delete(s.records, o)
}

func (s *trackerSet) len() int {
	return len(s.records)
}

// sortedOutpoints returns every key, ordered by Outpoint.Less, for
// deterministic iteration in expiration sweeps.
func (s *trackerSet) sortedOutpoints() []Outpoint {
	out := make([]Outpoint, 0, len(s.records))
	for o := range s.records {
		out = append(out, o)
	}
	sortOutpoints(out)
	return out
}

func sortOutpoints(os []Outpoint) {
	// Insertion sort is fine: tracker sets are bounded by the active
	// node count, never large enough to need anything fancier, and this
	// keeps the sort free of non-determinism from sort.Slice's pivot
	// choice interacting with equal keys (there are none here, but the
	// simplicity is worth keeping).
	for i := 1; i < len(os); i++ {
		for j := i; j > 0 && os[j].Less(os[j-1]); j-- {
			os[j], os[j-1] = os[j-1], os[j]
		}
	}
}

// confirmedSet tracks confirmed NodeRecords together with their per-tier
// payment queues, enforcing invariant 4: every confirmed record's outpoint
// appears in exactly one tier queue.
type confirmedSet struct {
	records map[Outpoint]*NodeRecord
	queues  map[Tier]*PaymentQueue
}

func newConfirmedSet() *confirmedSet {
	cs := &confirmedSet{
		records: make(map[Outpoint]*NodeRecord),
		queues:  make(map[Tier]*PaymentQueue),
	}
	for _, t := range Tiers() {
		cs.queues[t] = NewPaymentQueue()
	}
	return cs
}

func (cs *confirmedSet) get(o Outpoint) (*NodeRecord, bool) {
	r, ok := cs.records[o]
	return r, ok
}

// confirm inserts a record as newly confirmed, appending it to the tail of
// its tier's queue.
func (cs *confirmedSet) confirm(r *NodeRecord) {
	cs.records[r.CollateralOutpoint] = r
	cs.queues[r.Tier].PushBack(r.CollateralOutpoint)
}

// expire removes a confirmed record and its queue entry. It returns the
// queue position the record held, for the undo record.
func (cs *confirmedSet) expire(o Outpoint) (pos int, ok bool) {
	r, ok := cs.records[o]
	if !ok {
		return -1, false
	}
	pos = cs.queues[r.Tier].Position(o)
	cs.queues[r.Tier].Remove(o)
	delete(cs.records, o)
	return pos, true
}

// restore re-inserts a previously expired confirmed record at its captured
// queue position (undo of expire).
func (cs *confirmedSet) restore(r *NodeRecord, pos int) {
	cs.records[r.CollateralOutpoint] = r
	cs.queues[r.Tier].InsertAt(r.CollateralOutpoint, pos)
}

// unconfirm reverses confirm: used to undo an InitialConfirm created in the
// block currently being rolled back.
func (cs *confirmedSet) unconfirm(o Outpoint) *NodeRecord {
	r, ok := cs.records[o]
	if !ok {
		return nil
	}
	cs.queues[r.Tier].Remove(o)
	delete(cs.records, o)
	return r
}

func (cs *confirmedSet) queueFor(t Tier) *PaymentQueue {
	return cs.queues[t]
}

func (cs *confirmedSet) len() int {
	return len(cs.records)
}

func (cs *confirmedSet) sortedOutpoints() []Outpoint {
	out := make([]Outpoint, 0, len(cs.records))
	for o := range cs.records {
		out = append(out, o)
	}
	sortOutpoints(out)
	return out
}
