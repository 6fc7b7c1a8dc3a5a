package registry

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry is the state machine: a process-wide value (not a global
// singleton) owned by whoever drives the chain, holding the three disjoint
// tracker sets and the per-tier payment queues, plus the lock discipline
// that makes Apply/Undo/Rebuild safe against concurrent readers.
//
// chainMu/registryMu are acquired in that fixed order by every writer
// (Apply, Undo, Rebuild); readers take registryMu alone, in shared mode.
type Registry struct {
	chainMu    sync.Mutex
	registryMu sync.RWMutex

	start     *trackerSet
	dos       *trackerSet
	confirmed *confirmedSet

	params Params
	store  Store
	driver ChainDriver
	logger *logrus.Entry

	tipHeight uint32
}

// Store is the persistence boundary the registry writes through; see the
// store package for the badger-backed implementation.
type Store interface {
	PutNodeRecord(rec *NodeRecord) error
	DeleteNodeRecord(o Outpoint) error
	PutUndo(blockHash [32]byte, undo *BlockUndo) error
	GetUndo(blockHash [32]byte) (*BlockUndo, error)
	PruneUndo(blockHash [32]byte) error
	PutQueueSnapshot(tier Tier, outpoints []Outpoint) error
	LoadConfirmedRecords() ([]*NodeRecord, error)
	LoadQueueSnapshot(tier Tier) ([]Outpoint, error)
	CommitBatch(fn func(Batch) error) error
	Close() error
}

// Batch is a single atomic write unit handed to Store.CommitBatch, so one
// applied block commits in one flush.
type Batch interface {
	PutNodeRecord(rec *NodeRecord) error
	DeleteNodeRecord(o Outpoint) error
	PutUndo(blockHash [32]byte, undo *BlockUndo) error
	PutQueueSnapshot(tier Tier, outpoints []Outpoint) error
}

// New builds a Registry with empty trackers. Callers normally follow this
// with Rebuild to derive state from chain history; no Registry method loads
// ConfirmedRecords or the queues back from Store.
func New(params Params, store Store, driver ChainDriver, logger *logrus.Entry) *Registry {
	return &Registry{
		start:     newTrackerSet(),
		dos:       newTrackerSet(),
		confirmed: newConfirmedSet(),
		params:    params,
		store:     store,
		driver:    driver,
		logger:    logger,
	}
}

// NextPayment returns the head of tier's payment queue without mutating it.
// Acquires registryMu for reading only.
func (r *Registry) NextPayment(tier Tier) (Outpoint, bool) {
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()
	return r.confirmed.queueFor(tier).Head()
}

// Winner annotates a queue head with its tier and configured payout.
type Winner struct {
	Outpoint Outpoint
	Tier     Tier
	Amount   int64
}

// CurrentWinner returns the next-payment outpoint for every tier that has
// one queued.
func (r *Registry) CurrentWinner() []Winner {
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()

	out := make([]Winner, 0, TierCount())
	for _, t := range Tiers() {
		o, ok := r.confirmed.queueFor(t).Head()
		if !ok {
			continue
		}
		out = append(out, Winner{Outpoint: o, Tier: t, Amount: r.params.TierPaymentAmount[t]})
	}
	return out
}

// Status reports which tracker, if any, an outpoint currently occupies.
func (r *Registry) Status(o Outpoint) (TrackerKind, *NodeRecord) {
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()

	if rec, ok := r.confirmed.get(o); ok {
		return InConfirmed, rec
	}
	if rec, ok := r.start.get(o); ok {
		return InStart, rec
	}
	if rec, ok := r.dos.get(o); ok {
		return InDoS, rec
	}
	return NoTracker, nil
}

// StartList returns every record currently in the Start tracker.
func (r *Registry) StartList() []*NodeRecord {
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()
	return recordsOf(r.start)
}

// DoSList returns every record currently in the DoS tracker.
func (r *Registry) DoSList() []*NodeRecord {
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()
	return recordsOf(r.dos)
}

// ConfirmedList returns every confirmed record, optionally filtered by
// tier (tier == Invalid means no filter).
func (r *Registry) ConfirmedList(tier Tier) []*NodeRecord {
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()

	out := make([]*NodeRecord, 0, r.confirmed.len())
	for _, o := range r.confirmed.sortedOutpoints() {
		rec := r.confirmed.records[o]
		if tier != Invalid && rec.Tier != tier {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func recordsOf(s *trackerSet) []*NodeRecord {
	out := make([]*NodeRecord, 0, s.len())
	for _, o := range s.sortedOutpoints() {
		out = append(out, s.records[o])
	}
	return out
}

// Count is the tally returned by the count() query: totals, per-tier
// breakdown, and network-type distribution.
type Count struct {
	Total      int
	PerTier    map[Tier]int
	IPv4       int
	IPv6       int
	Onion      int
}

// CountNodes computes the Count snapshot over ConfirmedRecords.
func (r *Registry) CountNodes() Count {
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()

	c := Count{PerTier: make(map[Tier]int)}
	for _, rec := range r.confirmed.records {
		c.Total++
		c.PerTier[rec.Tier]++
		switch ClassifyNetwork(rec.IP) {
		case NetIPv4:
			c.IPv4++
		case NetIPv6:
			c.IPv6++
		case NetOnion:
			c.Onion++
		}
	}
	return c
}

// TipHeight returns the height of the last block this registry applied.
func (r *Registry) TipHeight() uint32 {
	r.registryMu.RLock()
	defer r.registryMu.RUnlock()
	return r.tipHeight
}

// Flush is an explicit commit point; the badger-backed Store already
// commits per block, so Flush exists for drivers that want to force a sync
// outside the per-block cadence (e.g. before shutdown).
func (r *Registry) Flush() error {
	r.chainMu.Lock()
	defer r.chainMu.Unlock()
	if s, ok := r.store.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}
