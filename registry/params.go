package registry

// Params bundles the economic-policy knobs the state machine is
// parameterized over: these values are configuration, never hardcoded in
// the engine.
type Params struct {
	Classifier *Classifier

	// StartExpiration is the number of blocks a Start-tx has to receive an
	// InitialConfirm before moving to the DoS tracker.
	StartExpiration uint32

	// DoSRemove is the number of additional blocks a record spends in the
	// DoS tracker before being deleted outright.
	DoSRemove uint32

	// ConfirmExpiration is the number of blocks a confirmed node can go
	// without a re-confirm before being evicted.
	ConfirmExpiration uint32

	// PaymentsStart is the height at which the payment scheduler begins
	// selecting winners; below it, Apply pays no node. NextPayment does not
	// consult it.
	PaymentsStart uint32

	// TierPaymentAmount annotates CurrentWinner responses with the
	// configured payout per tier.
	TierPaymentAmount map[Tier]int64
}
