package approval

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"nftswap/internal/ledger"
	"nftswap/internal/model"
)

var (
	spender  = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	owner    = common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	nftAddr  = common.HexToAddress("0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")
	somebody = common.HexToAddress("0xDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD")
)

type fakeLedger struct {
	mu sync.Mutex

	approvedFor  common.Address
	approvedAll  bool
	approveCalls int
	setAllCalls  int

	block chan struct{}
}

func (f *fakeLedger) GetApproved(_ context.Context, _ common.Address, _ *big.Int) (common.Address, error) {
	return f.approvedFor, nil
}

func (f *fakeLedger) IsApprovedForAll(_ context.Context, _, _, _ common.Address) (bool, error) {
	return f.approvedAll, nil
}

func (f *fakeLedger) Approve(_ context.Context, _, _ common.Address, _ *big.Int) (ledger.TxOutcome, error) {
	f.mu.Lock()
	f.approveCalls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return ledger.TxOutcome{TxHash: "0xapprove"}, nil
}

func (f *fakeLedger) SetApprovalForAll(_ context.Context, _, _ common.Address, _ bool) (ledger.TxOutcome, error) {
	f.mu.Lock()
	f.setAllCalls++
	f.mu.Unlock()
	return ledger.TxOutcome{TxHash: "0xsetall"}, nil
}

func (f *fakeLedger) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.approveCalls, f.setAllCalls
}

func asset(id int64) model.AssetRef {
	return model.AssetRef{Contract: nftAddr, TokenID: big.NewInt(id), Amount: big.NewInt(1)}
}

func TestStatusUnique(t *testing.T) {
	cases := []struct {
		name     string
		approved common.Address
		want     bool
	}{
		{"approved for spender", spender, true},
		{"approved for someone else", somebody, false},
		{"no approval", common.Address{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := NewGate(&fakeLedger{approvedFor: tc.approved}, spender, nil)
			got, err := gate.Status(context.Background(), asset(5), model.StandardUnique, owner)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("status = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStatusBatchable(t *testing.T) {
	gate := NewGate(&fakeLedger{approvedAll: true}, spender, nil)

	// The flag is independent of the token id.
	for _, id := range []int64{1, 99} {
		got, err := gate.Status(context.Background(), asset(id), model.StandardBatchable, owner)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got {
			t.Fatalf("expected approved for token %d", id)
		}
	}

	gate = NewGate(&fakeLedger{approvedAll: false}, spender, nil)
	got, err := gate.Status(context.Background(), asset(1), model.StandardBatchable, owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatalf("expected not approved")
	}
}

func TestGrantByStandard(t *testing.T) {
	fake := &fakeLedger{}
	gate := NewGate(fake, spender, nil)

	outcome, err := gate.Grant(context.Background(), asset(5), model.StandardUnique)
	if err != nil {
		t.Fatalf("grant unique: %v", err)
	}
	if outcome.TxHash != "0xapprove" {
		t.Fatalf("unique grant tx = %q", outcome.TxHash)
	}
	outcome, err = gate.Grant(context.Background(), asset(5), model.StandardBatchable)
	if err != nil {
		t.Fatalf("grant batchable: %v", err)
	}
	if outcome.TxHash != "0xsetall" {
		t.Fatalf("batchable grant tx = %q", outcome.TxHash)
	}

	approveCalls, setAllCalls := fake.calls()
	if approveCalls != 1 || setAllCalls != 1 {
		t.Fatalf("calls = (%d, %d), want (1, 1)", approveCalls, setAllCalls)
	}
}

func TestGrantUnknownStandardIsNoop(t *testing.T) {
	fake := &fakeLedger{}
	gate := NewGate(fake, spender, nil)

	if _, err := gate.Grant(context.Background(), asset(5), model.Standard("other")); err != nil {
		t.Fatalf("grant should be a silent no-op: %v", err)
	}
	approveCalls, setAllCalls := fake.calls()
	if approveCalls != 0 || setAllCalls != 0 {
		t.Fatalf("no transaction should be sent for an unknown standard")
	}
}

func TestGrantPendingGuard(t *testing.T) {
	fake := &fakeLedger{block: make(chan struct{})}
	gate := NewGate(fake, spender, nil)

	done := make(chan error, 1)
	go func() {
		_, err := gate.Grant(context.Background(), asset(5), model.StandardUnique)
		done <- err
	}()

	// Wait for the first grant to reach the ledger.
	for {
		if calls, _ := fake.calls(); calls == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// A second grant while the first is pending must not enqueue another
	// transaction.
	if _, err := gate.Grant(context.Background(), asset(5), model.StandardUnique); err != nil {
		t.Fatalf("pending grant: %v", err)
	}
	if calls, _ := fake.calls(); calls != 1 {
		t.Fatalf("approve calls = %d, want 1", calls)
	}

	close(fake.block)
	if err := <-done; err != nil {
		t.Fatalf("first grant: %v", err)
	}
}
