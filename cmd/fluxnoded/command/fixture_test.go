package command

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/MotoAcidic/fluxd/registry"
)

const testFixtureJSON = `{
  "utxos": [
    {"outpoint": "00000000000000000000000000000000000000000000000000000000000000aa:0", "amount": 1000, "height": 1}
  ],
  "blocks": [
    {
      "height": 1,
      "hash": "000000000000000000000000000000000000000000000000000000000000aabb",
      "timestamp": 1700000000,
      "txs": [
        {"node": {"type": "start", "collateral_out": "00000000000000000000000000000000000000000000000000000000000000aa:0", "ip": "1.2.3.4:16125"}}
      ]
    },
    {
      "height": 2,
      "hash": "0000000000000000000000000000000000000000000000000000000000aacc",
      "timestamp": 1700000600,
      "txs": [
        {"node": {"type": "initial_confirm", "collateral_out": "00000000000000000000000000000000000000000000000000000000000000aa:0", "ip": "1.2.3.4:16125"}}
      ]
    }
  ]
}`

func writeTestFixture(t *testing.T) string {
	dir, err := ioutil.TempDir("", "fluxnode-fixture")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "fixture.json")
	if err := ioutil.WriteFile(path, []byte(testFixtureJSON), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadFixtureDriverDecodesBlocksAndUTXOs(t *testing.T) {
	path := writeTestFixture(t)
	d, err := LoadFixtureDriver(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := d.CurrentTipHeight(); got != 2 {
		t.Fatalf("expected tip height 2, got %d", got)
	}

	o, err := parseFixtureOutpoint("00000000000000000000000000000000000000000000000000000000000000aa:0")
	if err != nil {
		t.Fatalf("parse outpoint: %v", err)
	}
	amount, _, height, ok := d.LookupOutput(o)
	if !ok {
		t.Fatal("expected utxo to be found")
	}
	if amount != 1000 || height != 1 {
		t.Fatalf("expected amount 1000 height 1, got amount=%d height=%d", amount, height)
	}

	b, ok := d.BlockAt(1)
	if !ok {
		t.Fatal("expected block at height 1")
	}
	if len(b.Txs) != 1 || b.Txs[0].Node == nil || b.Txs[0].Node.Type != registry.StartTxType {
		t.Fatalf("expected a single start tx at height 1, got %+v", b.Txs)
	}

	if got := d.BlockTime(2); got != 1700000600 {
		t.Fatalf("expected timestamp 1700000600, got %d", got)
	}
}

func TestLoadFixtureDriverMissingBlockReturnsFalse(t *testing.T) {
	path := writeTestFixture(t)
	d, err := LoadFixtureDriver(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := d.BlockAt(99); ok {
		t.Fatal("expected no block at height 99")
	}
}

func TestParseFixtureOutpointRejectsMalformedString(t *testing.T) {
	if _, err := parseFixtureOutpoint("not-an-outpoint"); err == nil {
		t.Fatal("expected error for malformed outpoint string")
	}
}

func TestLoadFixtureDriverRejectsUnknownNodeTxType(t *testing.T) {
	dir, err := ioutil.TempDir("", "fluxnode-fixture-bad")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)

	bad := `{"blocks":[{"height":1,"hash":"000000000000000000000000000000000000000000000000000000000000aabb","txs":[{"node":{"type":"nonsense","collateral_out":"0000000000000000000000000000000000000000000000000000000000000000aa:0"}}]}]}`
	path := filepath.Join(dir, "bad.json")
	if err := ioutil.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadFixtureDriver(path); err == nil {
		t.Fatal("expected error for unknown node tx type")
	}
}
