package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"nftswap/internal/ledger"
	"nftswap/internal/model"
	"nftswap/internal/proposal"
)

// Ledger is the subset of contract operations the engine drives.
type Ledger interface {
	ActiveItems(ctx context.Context) ([]model.Swap, error)
	ProposeSwap(ctx context.Context, offer model.AssetRef, groups [][]model.AssetRef, secondUser common.Address, deadline uint64) (ledger.TxOutcome, error)
	AcceptSwap(ctx context.Context, swapID *big.Int, group []model.AssetRef, index uint64) (ledger.TxOutcome, error)
	CancelSwap(ctx context.Context, swapID *big.Int) (ledger.TxOutcome, error)
}

// ApprovalChecker reports whether an asset has granted transfer rights to
// the swap contract.
type ApprovalChecker interface {
	Status(ctx context.Context, asset model.AssetRef, standard model.Standard, owner common.Address) (bool, error)
}

// EventLog records confirmed lifecycle transitions.
type EventLog interface {
	PutEvents(events []model.SwapEvent) error
}

// ProposeParams carries a propose request.
type ProposeParams struct {
	Offer         model.AssetRef
	OfferStandard model.Standard
	Groups        [][]model.AssetRef
	Target        common.Address
	Deadline      uint64
}

// Engine runs the swap lifecycle: propose, accept, cancel, and the
// reconciliation between the on-chain snapshot and the local proposal
// cache. The chain stays authoritative; the engine only reads snapshots
// and mutates the proposal cache on confirmed transitions.
type Engine struct {
	ledger    Ledger
	approvals ApprovalChecker
	proposals *proposal.Cache
	journal   EventLog
	actor     common.Address
	logger    *zap.Logger
	now       func() uint64

	mu       sync.Mutex
	snapshot []model.Swap
	inflight map[string]bool
}

// Config collects the engine's collaborators.
type Config struct {
	Ledger    Ledger
	Approvals ApprovalChecker
	Proposals *proposal.Cache
	Journal   EventLog
	Actor     common.Address
	Logger    *zap.Logger
	Now       func() uint64
}

func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &Engine{
		ledger:    cfg.Ledger,
		approvals: cfg.Approvals,
		proposals: cfg.Proposals,
		journal:   cfg.Journal,
		actor:     cfg.Actor,
		logger:    logger,
		now:       now,
		inflight:  make(map[string]bool),
	}
}

// Refresh reads the active listings from the chain and replaces the
// local snapshot.
func (e *Engine) Refresh(ctx context.Context) ([]model.Swap, error) {
	swaps, err := e.ledger.ActiveItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh listings: %v", ErrLedger, err)
	}

	e.mu.Lock()
	e.snapshot = swaps
	e.mu.Unlock()

	return swaps, nil
}

// Snapshot returns the last refreshed listing view.
func (e *Engine) Snapshot() []model.Swap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Swap(nil), e.snapshot...)
}

// StatusOf derives the display status of a swap at the current time.
func (e *Engine) StatusOf(swap model.Swap) model.Status {
	return swap.StatusAt(e.now())
}

func (e *Engine) findSwap(swapID *big.Int) (model.Swap, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, swap := range e.snapshot {
		if swap.ID != nil && swap.ID.Cmp(swapID) == 0 {
			return swap, true
		}
	}
	return model.Swap{}, false
}

// Propose validates a new swap, checks the approval precondition, and
// submits it. On confirmation the full set of request groups is written
// to the proposal cache under the (initiator, deadline) key.
func (e *Engine) Propose(ctx context.Context, params ProposeParams) (ledger.TxOutcome, error) {
	if err := e.validatePropose(params); err != nil {
		return ledger.TxOutcome{}, err
	}

	approved, err := e.approvals.Status(ctx, params.Offer, params.OfferStandard, e.actor)
	if err != nil {
		return ledger.TxOutcome{}, fmt.Errorf("%w: approval status: %v", ErrLedger, err)
	}
	if !approved {
		return ledger.TxOutcome{}, fmt.Errorf("%w: offered asset %s #%s is not approved for the swap contract",
			ErrPrecondition, params.Offer.Contract.Hex(), params.Offer.TokenID)
	}

	outcome, err := e.ledger.ProposeSwap(ctx, params.Offer, params.Groups, params.Target, params.Deadline)
	if err != nil {
		return ledger.TxOutcome{}, fmt.Errorf("%w: propose: %v", ErrLedger, err)
	}

	key := proposal.Key(e.actor, params.Deadline)
	if err := e.proposals.Put(key, params.Groups); err != nil {
		// The listing is live on-chain; losing the cache entry only hurts
		// a later accept, so surface the write failure.
		return outcome, fmt.Errorf("store proposal data: %w", err)
	}

	e.record(model.SwapEvent{
		Kind:    model.EventPropose,
		SwapKey: key,
		Actor:   e.actor.Hex(),
		TxHash:  outcome.TxHash,
	})
	e.logger.Info("swap proposed",
		zap.String("key", key),
		zap.String("tx", outcome.TxHash),
		zap.Int("groups", len(params.Groups)),
	)
	return outcome, nil
}

func (e *Engine) validatePropose(params ProposeParams) error {
	if err := params.Offer.ValidateFor(params.OfferStandard); err != nil {
		return fmt.Errorf("%w: offer: %v", ErrValidation, err)
	}
	if len(params.Groups) == 0 {
		return fmt.Errorf("%w: at least one request group is required", ErrValidation)
	}
	for i, group := range params.Groups {
		if len(group) == 0 {
			return fmt.Errorf("%w: request group %d is empty", ErrValidation, i)
		}
		for j, asset := range group {
			if err := asset.Validate(); err != nil {
				return fmt.Errorf("%w: request group %d asset %d: %v", ErrValidation, i, j, err)
			}
		}
	}
	if params.Deadline != 0 && params.Deadline <= e.now() {
		return fmt.Errorf("%w: deadline must be in the future", ErrValidation)
	}
	return nil
}

// Accept fulfills a swap with the request group recovered from the
// proposal cache. The cache entry is removed only after the transaction
// confirms; on failure it is retained so a retry can still recover the
// payload.
func (e *Engine) Accept(ctx context.Context, swapID *big.Int, groupIndex uint64) (ledger.TxOutcome, error) {
	release, err := e.acquire(swapID)
	if err != nil {
		return ledger.TxOutcome{}, err
	}
	defer release()

	swap, ok := e.findSwap(swapID)
	if !ok {
		return ledger.TxOutcome{}, fmt.Errorf("%w: swap %s not in current snapshot", ErrNotFound, swapID)
	}

	key := proposal.Key(swap.Initiator, swap.Deadline)
	groups, ok := e.proposals.Get(key)
	if !ok {
		return ledger.TxOutcome{}, fmt.Errorf("%w: missing proposal data for swap %s (key %s)", ErrPrecondition, swapID, key)
	}
	if groupIndex >= uint64(len(groups)) {
		return ledger.TxOutcome{}, fmt.Errorf("%w: group index %d out of range (have %d)", ErrValidation, groupIndex, len(groups))
	}

	outcome, err := e.ledger.AcceptSwap(ctx, swapID, groups[groupIndex], groupIndex)
	if err != nil {
		return ledger.TxOutcome{}, fmt.Errorf("%w: accept: %v", ErrLedger, err)
	}

	if err := e.proposals.Remove(key); err != nil {
		e.logger.Warn("remove settled proposal entry", zap.String("key", key), zap.Error(err))
	}
	e.record(model.SwapEvent{
		Kind:    model.EventAccept,
		SwapKey: key,
		SwapID:  swapID.String(),
		Actor:   e.actor.Hex(),
		TxHash:  outcome.TxHash,
	})
	e.logger.Info("swap accepted",
		zap.String("swap_id", swapID.String()),
		zap.String("tx", outcome.TxHash),
	)
	return outcome, nil
}

// Cancel withdraws a swap. Client-side expiry never blocks a cancel: the
// ledger is authoritative on what an expired swap still allows.
func (e *Engine) Cancel(ctx context.Context, swapID *big.Int) (ledger.TxOutcome, error) {
	release, err := e.acquire(swapID)
	if err != nil {
		return ledger.TxOutcome{}, err
	}
	defer release()

	swap, ok := e.findSwap(swapID)
	if !ok {
		return ledger.TxOutcome{}, fmt.Errorf("%w: swap %s not in current snapshot", ErrNotFound, swapID)
	}

	outcome, err := e.ledger.CancelSwap(ctx, swapID)
	if err != nil {
		return ledger.TxOutcome{}, fmt.Errorf("%w: cancel: %v", ErrLedger, err)
	}

	key := proposal.Key(swap.Initiator, swap.Deadline)
	if err := e.proposals.Remove(key); err != nil {
		e.logger.Warn("remove cancelled proposal entry", zap.String("key", key), zap.Error(err))
	}
	e.record(model.SwapEvent{
		Kind:    model.EventCancel,
		SwapKey: key,
		SwapID:  swapID.String(),
		Actor:   e.actor.Hex(),
		TxHash:  outcome.TxHash,
	})
	e.logger.Info("swap cancelled",
		zap.String("swap_id", swapID.String()),
		zap.String("tx", outcome.TxHash),
	)
	return outcome, nil
}

// acquire takes the advisory per-swap-id guard. A second accept or
// cancel while one is pending surfaces ErrBusy; the ledger remains the
// final arbiter of double submission.
func (e *Engine) acquire(swapID *big.Int) (func(), error) {
	id := swapID.String()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[id] {
		return nil, fmt.Errorf("%w: swap %s", ErrBusy, id)
	}
	e.inflight[id] = true
	return func() {
		e.mu.Lock()
		delete(e.inflight, id)
		e.mu.Unlock()
	}, nil
}

func (e *Engine) record(event model.SwapEvent) {
	if e.journal == nil {
		return
	}
	event.At = int64(e.now())
	if err := e.journal.PutEvents([]model.SwapEvent{event}); err != nil {
		e.logger.Warn("journal write failed", zap.String("kind", event.Kind), zap.Error(err))
	}
}
