package model

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestAssetRefValidate(t *testing.T) {
	valid := AssetRef{
		Contract: common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
		TokenID:  big.NewInt(5),
		Amount:   big.NewInt(1),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid asset rejected: %v", err)
	}

	missing := valid
	missing.Contract = common.Address{}
	if err := missing.Validate(); err == nil {
		t.Fatalf("missing contract accepted")
	}

	zero := valid
	zero.Amount = big.NewInt(0)
	if err := zero.Validate(); err == nil {
		t.Fatalf("zero amount accepted")
	}
}

func TestAssetRefValidateFor(t *testing.T) {
	asset := AssetRef{
		Contract: common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
		TokenID:  big.NewInt(5),
		Amount:   big.NewInt(3),
	}
	if err := asset.ValidateFor(StandardUnique); err == nil {
		t.Fatalf("unique asset with amount 3 accepted")
	}
	if err := asset.ValidateFor(StandardBatchable); err != nil {
		t.Fatalf("batchable asset with amount 3 rejected: %v", err)
	}
}

func TestSwapStatusAt(t *testing.T) {
	swap := Swap{Deadline: 1000}

	if got := swap.StatusAt(999); got != StatusActive {
		t.Fatalf("before deadline: %s", got)
	}
	if got := swap.StatusAt(1000); got != StatusActive {
		t.Fatalf("at deadline: %s", got)
	}
	if got := swap.StatusAt(1001); got != StatusExpired {
		t.Fatalf("past deadline: %s", got)
	}

	forever := Swap{Deadline: 0}
	if got := forever.StatusAt(1 << 40); got != StatusActive {
		t.Fatalf("no deadline should never expire: %s", got)
	}
}

func TestFormatDeadline(t *testing.T) {
	const now = uint64(1000000)

	cases := []struct {
		name     string
		deadline uint64
		want     string
	}{
		{"expired", now - 10, "Expired"},
		{"minutes", now + 150, "2m"},
		{"hours", now + 3700, "1h 1m"},
		{"days", now + 90000, "1d 1h"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatDeadline(tc.deadline, now); got != tc.want {
				t.Fatalf("FormatDeadline = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestShortenAddress(t *testing.T) {
	full := "0x1234567890abcdef1234567890abcdef12345678"
	if got := ShortenAddress(full); got != "0x1234...5678" {
		t.Fatalf("ShortenAddress = %q", got)
	}
	if got := ShortenAddress("0x12"); got != "0x12" {
		t.Fatalf("short input should pass through, got %q", got)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(big.NewInt(1)); got != "1 token" {
		t.Fatalf("FormatAmount(1) = %q", got)
	}
	if got := FormatAmount(big.NewInt(7)); got != "7 tokens" {
		t.Fatalf("FormatAmount(7) = %q", got)
	}
	if got := FormatAmount(nil); got != "0 tokens" {
		t.Fatalf("FormatAmount(nil) = %q", got)
	}
}

func TestDescriptorJSONFieldNames(t *testing.T) {
	raw := `{"name":"Token","description":"d","image":"ipfs://QmImg","attributes":[{"trait_type":"color","value":"red"}]}`

	var descriptor Descriptor
	if err := json.Unmarshal([]byte(raw), &descriptor); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if descriptor.Name != "Token" || descriptor.Image != "ipfs://QmImg" {
		t.Fatalf("descriptor = %+v", descriptor)
	}
	if len(descriptor.Attributes) != 1 || descriptor.Attributes[0].TraitType != "color" {
		t.Fatalf("attributes = %+v", descriptor.Attributes)
	}
}
