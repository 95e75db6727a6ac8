package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Standard tags how a token contract handles ownership and approvals.
type Standard string

const (
	// StandardUnique is an ERC721-shaped contract: one owner and one
	// approved spender per token id, amount is always 1.
	StandardUnique Standard = "unique"
	// StandardBatchable is an ERC1155-shaped contract: per-(owner, spender)
	// blanket approval, token ids can carry a quantity.
	StandardBatchable Standard = "batchable"
)

// AssetRef identifies one fungible-or-unique unit transfer.
type AssetRef struct {
	Contract common.Address `json:"nftAddress"`
	TokenID  *big.Int       `json:"nftId"`
	Amount   *big.Int       `json:"nftAmount"`
}

// Validate checks the structural invariants of an asset reference.
func (a AssetRef) Validate() error {
	if a.Contract == (common.Address{}) {
		return fmt.Errorf("asset contract address is required")
	}
	if a.TokenID == nil || a.TokenID.Sign() < 0 {
		return fmt.Errorf("asset token id is required")
	}
	if a.Amount == nil || a.Amount.Sign() <= 0 {
		return fmt.Errorf("asset amount must be at least 1")
	}
	return nil
}

// ValidateFor additionally enforces the standard's constraints: a unique
// token transfers exactly one unit.
func (a AssetRef) ValidateFor(standard Standard) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if standard == StandardUnique && a.Amount.Cmp(big.NewInt(1)) != 0 {
		return fmt.Errorf("unique asset amount must be exactly 1, got %s", a.Amount)
	}
	return nil
}

// Equal reports whether two asset references identify the same transfer.
func (a AssetRef) Equal(b AssetRef) bool {
	if a.Contract != b.Contract {
		return false
	}
	if (a.TokenID == nil) != (b.TokenID == nil) || (a.TokenID != nil && a.TokenID.Cmp(b.TokenID) != 0) {
		return false
	}
	if (a.Amount == nil) != (b.Amount == nil) || (a.Amount != nil && a.Amount.Cmp(b.Amount) != 0) {
		return false
	}
	return true
}
