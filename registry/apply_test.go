package registry

import "testing"

func TestApplyStartThenConfirmThenPay(t *testing.T) {
	driver := newFakeDriver()
	o := testOutpoint(1, 0)
	driver.addUTXO(o, 1000)

	reg := New(testParams(), nil, driver, newTestLogger(t))

	if _, err := reg.Apply(startBlock(1, o, "1.2.3.4:1234")); err != nil {
		t.Fatalf("start: %v", err)
	}
	if kind, _ := reg.Status(o); kind != InStart {
		t.Fatalf("expected InStart, got %v", kind)
	}

	if _, err := reg.Apply(confirmBlock(2, o, "1.2.3.4:1234")); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if kind, _ := reg.Status(o); kind != InConfirmed {
		t.Fatalf("expected InConfirmed, got %v", kind)
	}

	head, ok := reg.NextPayment(Cumulus)
	if !ok || head != o {
		t.Fatalf("expected %v queued for payment, got %v ok=%v", o, head, ok)
	}

	if _, err := reg.Apply(emptyBlock(3)); err != nil {
		t.Fatalf("pay block: %v", err)
	}
	_, rec := reg.Status(o)
	if rec.LastPaidHeight != 3 {
		t.Fatalf("expected LastPaidHeight=3, got %d", rec.LastPaidHeight)
	}
}

func TestApplyRejectsUnknownCollateral(t *testing.T) {
	driver := newFakeDriver()
	o := testOutpoint(2, 0)
	reg := New(testParams(), nil, driver, newTestLogger(t))

	_, err := reg.Apply(startBlock(1, o, "1.2.3.4:1"))
	if err == nil {
		t.Fatal("expected error for unknown collateral output")
	}
	if !Is(err, ConsensusReject) {
		t.Fatalf("expected ConsensusReject, got %v", err)
	}
	if kind, _ := reg.Status(o); kind != NoTracker {
		t.Fatalf("rejected block must not mutate state, got %v", kind)
	}
}

func TestApplyRejectsUnclassifiableAmount(t *testing.T) {
	driver := newFakeDriver()
	o := testOutpoint(3, 0)
	driver.addUTXO(o, 42)
	reg := New(testParams(), nil, driver, newTestLogger(t))

	_, err := reg.Apply(startBlock(1, o, "1.2.3.4:1"))
	if !Is(err, ConsensusReject) {
		t.Fatalf("expected ConsensusReject for unclassifiable amount, got %v", err)
	}
}

func TestApplyStartExpiresToDoS(t *testing.T) {
	driver := newFakeDriver()
	o := testOutpoint(4, 0)
	driver.addUTXO(o, 1000)
	params := testParams()
	params.StartExpiration = 5
	reg := New(params, nil, driver, newTestLogger(t))

	if _, err := reg.Apply(startBlock(1, o, "1.2.3.4:1")); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := reg.Apply(emptyBlock(6)); err != nil {
		t.Fatalf("expire block: %v", err)
	}
	if kind, _ := reg.Status(o); kind != InDoS {
		t.Fatalf("expected InDoS after expiration, got %v", kind)
	}
}

func TestApplyConfirmedExpiresOnSpend(t *testing.T) {
	driver := newFakeDriver()
	o := testOutpoint(5, 0)
	driver.addUTXO(o, 1000)
	reg := New(testParams(), nil, driver, newTestLogger(t))

	if _, err := reg.Apply(startBlock(1, o, "1.2.3.4:1")); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := reg.Apply(confirmBlock(2, o, "1.2.3.4:1")); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	spendBlock := &Block{
		Height: 3,
		Hash:   testHash(3),
		Txs:    []Tx{{Inputs: []Outpoint{o}}},
	}
	if _, err := reg.Apply(spendBlock); err != nil {
		t.Fatalf("spend block: %v", err)
	}
	if kind, _ := reg.Status(o); kind != NoTracker {
		t.Fatalf("expected spent collateral to leave ConfirmedRecords, got %v", kind)
	}
}

func TestApplySameBlockConfirmAndSpend(t *testing.T) {
	driver := newFakeDriver()
	o := testOutpoint(6, 0)
	driver.addUTXO(o, 1000)
	reg := New(testParams(), nil, driver, newTestLogger(t))

	if _, err := reg.Apply(startBlock(1, o, "1.2.3.4:1")); err != nil {
		t.Fatalf("start: %v", err)
	}

	block := &Block{
		Height: 2,
		Hash:   testHash(2),
		Txs: []Tx{
			{Node: &NodeTx{Type: InitialConfirmTxType, CollateralOut: o, IP: "1.2.3.4:1"}},
			{Inputs: []Outpoint{o}},
		},
	}
	undo, err := reg.Apply(block)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if kind, _ := reg.Status(o); kind != NoTracker {
		t.Fatalf("expected same-block confirm+spend to leave no tracker, got %v", kind)
	}
	if reg.confirmed.queueFor(Cumulus).Contains(o) {
		t.Fatal("queue must not retain an outpoint confirmed and spent in the same block")
	}

	if err := reg.Undo(2, block.Hash, undo); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if kind, _ := reg.Status(o); kind != InStart {
		t.Fatalf("expected undo to restore InStart, got %v", kind)
	}
}
