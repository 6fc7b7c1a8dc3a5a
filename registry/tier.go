package registry

import "fmt"

// Tier is the collateral-class of a node. The set of tiers is fixed at
// compile time; TierCount reports how many are defined.
type Tier uint8

const (
	// Invalid marks an amount that did not classify into any tier.
	Invalid Tier = 0
	// Cumulus is the lowest collateral tier.
	Cumulus Tier = 1
	// Nimbus is the mid collateral tier.
	Nimbus Tier = 2
	// Stratus is the highest collateral tier.
	Stratus Tier = 3
)

// tierNames is ordered by ascending Tier value; tierNames[0] is unused.
var tierNames = [...]string{"INVALID", "CUMULUS", "NIMBUS", "STRATUS"}

// String renders a Tier the way the operator-facing RPC surface expects,
// e.g. "CUMULUS".
func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return fmt.Sprintf("TIER(%d)", t)
}

// TierCount returns the number of non-Invalid tiers the registry supports.
func TierCount() int {
	return len(tierNames) - 1
}

// Tiers returns every defined tier in ascending numeric order. Payment
// selection and expiration sweeps must iterate tiers in this order, never
// by map/insertion order, to stay deterministic across implementations.
func Tiers() []Tier {
	out := make([]Tier, 0, TierCount())
	for i := 1; i <= TierCount(); i++ {
		out = append(out, Tier(i))
	}
	return out
}

// TierRange is one row of a Classifier's parameter table: at heights within
// [MinHeight, MaxHeight], collateral of exactly Amount classifies as Tier.
type TierRange struct {
	MinHeight uint32
	MaxHeight uint32 // 0 means unbounded (no activation-height ceiling yet)
	Amount    int64
	Tier      Tier
}

// Classifier maps a collateral amount observed at a height to a Tier. The
// table is supplied by configuration; the classifier itself holds no
// economic policy.
type Classifier struct {
	rows []TierRange
}

// NewClassifier builds a Classifier from a parameter table. Rows are kept in
// the order given; on an amount/height collision across rows (only possible
// after a future parameter update that does not keep amounts unique per
// tier) the lower-numbered Tier wins, so callers should list rows in
// ascending Tier order.
func NewClassifier(rows []TierRange) *Classifier {
	cp := make([]TierRange, len(rows))
	copy(cp, rows)
	return &Classifier{rows: cp}
}

// Classify returns the Tier matching amount at height, or Invalid if no row
// in the table covers it. A consuming StartTx with an Invalid classification
// must be rejected (consensus error), never silently skipped.
func (c *Classifier) Classify(height uint32, amount int64) Tier {
	for _, row := range c.rows {
		if height < row.MinHeight {
			continue
		}
		if row.MaxHeight != 0 && height > row.MaxHeight {
			continue
		}
		if row.Amount == amount {
			return row.Tier
		}
	}
	return Invalid
}
