package approval

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"nftswap/internal/ledger"
	"nftswap/internal/model"
)

// Ledger is the subset of contract operations the gate needs.
type Ledger interface {
	GetApproved(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error)
	IsApprovedForAll(ctx context.Context, contract, owner, operator common.Address) (bool, error)
	Approve(ctx context.Context, contract, spender common.Address, tokenID *big.Int) (ledger.TxOutcome, error)
	SetApprovalForAll(ctx context.Context, contract, operator common.Address, approved bool) (ledger.TxOutcome, error)
}

// Gate checks and grants transfer rights towards the swap contract.
type Gate struct {
	ledger  Ledger
	spender common.Address
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]bool
}

func NewGate(l Ledger, spender common.Address, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		ledger:  l,
		spender: spender,
		logger:  logger,
		pending: make(map[string]bool),
	}
}

// Status reports whether the asset has granted transfer rights to the
// swap contract. Unique tokens carry one approved spender per token;
// batchable contracts carry a per-(owner, operator) flag independent of
// the token id.
func (g *Gate) Status(ctx context.Context, asset model.AssetRef, standard model.Standard, owner common.Address) (bool, error) {
	switch standard {
	case model.StandardUnique:
		approved, err := g.ledger.GetApproved(ctx, asset.Contract, asset.TokenID)
		if err != nil {
			return false, err
		}
		return approved == g.spender, nil
	case model.StandardBatchable:
		return g.ledger.IsApprovedForAll(ctx, asset.Contract, owner, g.spender)
	default:
		return false, nil
	}
}

// Grant submits an approval transaction for the asset. A second call
// while a grant for the same asset is still pending is a no-op, as is a
// call for a standard with no approval mechanism; both return a zero
// outcome.
func (g *Gate) Grant(ctx context.Context, asset model.AssetRef, standard model.Standard) (ledger.TxOutcome, error) {
	key := pendingKey(asset)

	g.mu.Lock()
	if g.pending[key] {
		g.mu.Unlock()
		g.logger.Debug("approval already pending",
			zap.String("contract", asset.Contract.Hex()),
			zap.String("token_id", asset.TokenID.String()),
		)
		return ledger.TxOutcome{}, nil
	}
	g.pending[key] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, key)
		g.mu.Unlock()
	}()

	switch standard {
	case model.StandardUnique:
		return g.ledger.Approve(ctx, asset.Contract, g.spender, asset.TokenID)
	case model.StandardBatchable:
		return g.ledger.SetApprovalForAll(ctx, asset.Contract, g.spender, true)
	default:
		// No approval mechanism for this standard.
		return ledger.TxOutcome{}, nil
	}
}

func pendingKey(asset model.AssetRef) string {
	return asset.Contract.Hex() + "_" + asset.TokenID.String()
}
