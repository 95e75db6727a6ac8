package proposal

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"nftswap/internal/model"
)

var (
	initiator = common.HexToAddress("0x1111111111111111111111111111111111111111")
	contractB = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func testGroups() [][]model.AssetRef {
	return [][]model.AssetRef{
		{
			{Contract: contractB, TokenID: big.NewInt(9), Amount: big.NewInt(1)},
		},
		{
			{Contract: contractB, TokenID: big.NewInt(12), Amount: big.NewInt(3)},
			{Contract: contractB, TokenID: big.NewInt(13), Amount: big.NewInt(1)},
		},
	}
}

func TestKey(t *testing.T) {
	key := Key(initiator, 1700000000)
	want := "0x1111111111111111111111111111111111111111_1700000000"
	if key != want {
		t.Fatalf("key = %q, want %q", key, want)
	}

	// Mixed-case input derives the same key.
	mixed := common.HexToAddress("0x1111111111111111111111111111111111111111")
	if Key(mixed, 1700000000) != key {
		t.Fatalf("key derivation is case-sensitive")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.json")

	cache, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	key := Key(initiator, 1700000000)
	groups := testGroups()
	if err := cache.Put(key, groups); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Reopen to prove the entry survived serialization.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.Get(key)
	if !ok {
		t.Fatalf("entry missing after reopen")
	}
	if len(got) != len(groups) {
		t.Fatalf("got %d groups, want %d", len(got), len(groups))
	}
	for i := range groups {
		if len(got[i]) != len(groups[i]) {
			t.Fatalf("group %d: got %d assets, want %d", i, len(got[i]), len(groups[i]))
		}
		for j := range groups[i] {
			if !got[i][j].Equal(groups[i][j]) {
				t.Fatalf("group %d asset %d mismatch: %+v != %+v", i, j, got[i][j], groups[i][j])
			}
		}
	}
}

func TestRemoveIdempotent(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "proposals.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	key := Key(initiator, 42)
	if err := cache.Put(key, testGroups()); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := cache.Remove(key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := cache.Get(key); ok {
		t.Fatalf("entry still present after remove")
	}
	if err := cache.Remove(key); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "proposals.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	past := Key(initiator, 1000)
	recent := Key(initiator, 5000)
	open := Key(initiator, 0)
	for _, key := range []string{past, recent, open} {
		if err := cache.Put(key, testGroups()); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	removed, err := cache.SweepExpired(6000, 2000)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(removed) != 1 || removed[0] != past {
		t.Fatalf("removed = %v, want [%s]", removed, past)
	}
	if _, ok := cache.Get(recent); !ok {
		t.Fatalf("entry within grace period was swept")
	}
	if _, ok := cache.Get(open); !ok {
		t.Fatalf("no-deadline entry was swept")
	}
}

func TestOpenMissingFile(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("open should tolerate a missing file: %v", err)
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Len())
	}
}
