package store

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/MotoAcidic/fluxd/registry"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.Out = ioutil.Discard
	return logger.WithField("prefix", "store_test")
}

func initTestStore(t *testing.T) (*BadgerStore, func()) {
	dir, err := ioutil.TempDir("", "fluxnode-store")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	st, err := NewBadgerStore(dir, testLogger())
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("open store: %v", err)
	}
	return st, func() {
		st.Close()
		os.RemoveAll(dir)
	}
}

func testOutpoint(n byte, vout uint32) registry.Outpoint {
	var h [32]byte
	h[0] = n
	return registry.NewOutpoint(h, vout)
}

func TestPutAndLoadNodeRecord(t *testing.T) {
	st, cleanup := initTestStore(t)
	defer cleanup()

	rec := &registry.NodeRecord{
		CollateralOutpoint: testOutpoint(1, 0),
		CollateralAmount:   1000,
		Tier:               registry.Cumulus,
		AddedHeight:        10,
	}
	if err := st.PutNodeRecord(rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := st.LoadConfirmedRecords()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].CollateralOutpoint != rec.CollateralOutpoint || got[0].CollateralAmount != rec.CollateralAmount {
		t.Fatalf("round trip mismatch: got %+v want %+v", got[0], rec)
	}
}

func TestDeleteNodeRecord(t *testing.T) {
	st, cleanup := initTestStore(t)
	defer cleanup()

	rec := &registry.NodeRecord{CollateralOutpoint: testOutpoint(2, 0)}
	if err := st.PutNodeRecord(rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.DeleteNodeRecord(rec.CollateralOutpoint); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := st.LoadConfirmedRecords()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected record deleted, got %d remaining", len(got))
	}
}

func TestPutAndGetUndo(t *testing.T) {
	st, cleanup := initTestStore(t)
	defer cleanup()

	var hash [32]byte
	hash[0] = 0xaa

	undo := &registry.BlockUndo{
		Height:                   7,
		NewStarts:                []registry.Outpoint{testOutpoint(6, 0)},
		PriorLastConfirmedHeight: map[registry.Outpoint]uint32{},
		PriorIP:                  map[registry.Outpoint]string{},
		PriorPaid:                map[registry.Outpoint]registry.PaidUndo{},
	}
	if err := st.PutUndo(hash, undo); err != nil {
		t.Fatalf("put undo: %v", err)
	}

	got, err := st.GetUndo(hash)
	if err != nil {
		t.Fatalf("get undo: %v", err)
	}
	if got.Height != undo.Height || len(got.NewStarts) != 1 || got.NewStarts[0] != undo.NewStarts[0] {
		t.Fatalf("undo round trip mismatch: got %+v want %+v", got, undo)
	}

	if err := st.PruneUndo(hash); err != nil {
		t.Fatalf("prune undo: %v", err)
	}
	if _, err := st.GetUndo(hash); !registry.Is(err, registry.NotApplicable) {
		t.Fatalf("expected NotApplicable after prune, got %v", err)
	}
}

func TestQueueSnapshotRoundTrip(t *testing.T) {
	st, cleanup := initTestStore(t)
	defer cleanup()

	outpoints := []registry.Outpoint{testOutpoint(3, 0), testOutpoint(4, 1)}
	if err := st.PutQueueSnapshot(registry.Nimbus, outpoints); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := st.LoadQueueSnapshot(registry.Nimbus)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(outpoints) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(outpoints))
	}
	for i := range outpoints {
		if got[i] != outpoints[i] {
			t.Fatalf("order mismatch at %d: got %v want %v", i, got[i], outpoints[i])
		}
	}
}

func TestLoadQueueSnapshotMissingIsEmptyNotError(t *testing.T) {
	st, cleanup := initTestStore(t)
	defer cleanup()

	got, err := st.LoadQueueSnapshot(registry.Stratus)
	if err != nil {
		t.Fatalf("expected no error for missing snapshot, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %v", got)
	}
}

func TestCommitBatchAtomicWrite(t *testing.T) {
	st, cleanup := initTestStore(t)
	defer cleanup()

	rec := &registry.NodeRecord{CollateralOutpoint: testOutpoint(5, 0), Tier: registry.Stratus}
	err := st.CommitBatch(func(b registry.Batch) error {
		if err := b.PutNodeRecord(rec); err != nil {
			return err
		}
		return b.PutQueueSnapshot(registry.Stratus, []registry.Outpoint{rec.CollateralOutpoint})
	})
	if err != nil {
		t.Fatalf("commit batch: %v", err)
	}

	records, err := st.LoadConfirmedRecords()
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after batch commit, got %d", len(records))
	}

	queue, err := st.LoadQueueSnapshot(registry.Stratus)
	if err != nil {
		t.Fatalf("load queue: %v", err)
	}
	if len(queue) != 1 || queue[0] != rec.CollateralOutpoint {
		t.Fatalf("expected queue snapshot to contain the committed outpoint, got %v", queue)
	}
}
