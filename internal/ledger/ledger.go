package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"nftswap/internal/chain"
	"nftswap/internal/model"
)

// TxOutcome reports a confirmed write. Failures surface as errors.
type TxOutcome struct {
	TxHash string
}

// nftEntry is the ABI tuple layout for one asset reference.
type nftEntry struct {
	NftAddress common.Address
	NftId      *big.Int
	NftAmount  *big.Int
}

// swapListing is the ABI tuple layout for one listing.
type swapListing struct {
	SwapId     *big.Int
	Initiator  common.Address
	SwapOffer  nftEntry
	Proposals  []common.Address
	SecondUser common.Address
	Deadline   *big.Int
}

// Contract talks to the swap contract and the token contracts it trades.
type Contract struct {
	client   *chain.Client
	swapAddr common.Address
	logger   *zap.Logger
}

// NewContract binds the swap contract at swapAddr.
func NewContract(client *chain.Client, swapAddr common.Address, logger *zap.Logger) *Contract {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Contract{client: client, swapAddr: swapAddr, logger: logger}
}

// SwapContract returns the bound swap contract address, the spender that
// token approvals must target.
func (c *Contract) SwapContract() common.Address {
	return c.swapAddr
}

func (c *Contract) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := c.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (c *Contract) transact(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...any) (TxOutcome, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return TxOutcome{}, fmt.Errorf("pack %s: %w", method, err)
	}
	receipt, err := c.client.Transact(ctx, to, data)
	if err != nil {
		return TxOutcome{}, fmt.Errorf("%s: %w", method, err)
	}
	c.logger.Debug("transaction confirmed",
		zap.String("method", method),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	return TxOutcome{TxHash: receipt.TxHash.Hex()}, nil
}

// TotalListings returns the number of listings ever created.
func (c *Contract) TotalListings(ctx context.Context) (*big.Int, error) {
	parsed, err := SwapABI()
	if err != nil {
		return nil, fmt.Errorf("parse swap abi: %w", err)
	}
	values, err := c.call(ctx, c.swapAddr, parsed, "totalListings")
	if err != nil {
		return nil, err
	}
	total, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected totalListings type %T", values[0])
	}
	return total, nil
}

// ActiveItems returns the current active swap listings.
func (c *Contract) ActiveItems(ctx context.Context) ([]model.Swap, error) {
	parsed, err := SwapABI()
	if err != nil {
		return nil, fmt.Errorf("parse swap abi: %w", err)
	}
	values, err := c.call(ctx, c.swapAddr, parsed, "activeItems")
	if err != nil {
		return nil, err
	}
	listings := *abi.ConvertType(values[0], new([]swapListing)).(*[]swapListing)

	swaps := make([]model.Swap, 0, len(listings))
	for _, listing := range listings {
		swaps = append(swaps, model.Swap{
			ID:         listing.SwapId,
			Initiator:  listing.Initiator,
			Offer:      toAssetRef(listing.SwapOffer),
			Proposers:  listing.Proposals,
			SecondUser: listing.SecondUser,
			Deadline:   listing.Deadline.Uint64(),
		})
	}
	return swaps, nil
}

// TokenURI reads the metadata locator for a token. The field differs by
// standard: tokenURI for unique contracts, uri for batchable ones.
func (c *Contract) TokenURI(ctx context.Context, contract common.Address, tokenID *big.Int, standard model.Standard) (string, error) {
	var (
		parsed abi.ABI
		method string
		err    error
	)
	switch standard {
	case model.StandardBatchable:
		parsed, err = ERC1155ABI()
		method = "uri"
	default:
		parsed, err = ERC721ABI()
		method = "tokenURI"
	}
	if err != nil {
		return "", fmt.Errorf("parse token abi: %w", err)
	}

	values, err := c.call(ctx, contract, parsed, method, tokenID)
	if err != nil {
		return "", err
	}
	uri, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s type %T", method, values[0])
	}
	return uri, nil
}

// GetApproved returns the single approved spender for a unique token.
func (c *Contract) GetApproved(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error) {
	parsed, err := ERC721ABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse erc721 abi: %w", err)
	}
	values, err := c.call(ctx, contract, parsed, "getApproved", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	approved, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected getApproved type %T", values[0])
	}
	return approved, nil
}

// IsApprovedForAll returns the blanket approval flag for an owner and
// operator on a batchable contract.
func (c *Contract) IsApprovedForAll(ctx context.Context, contract, owner, operator common.Address) (bool, error) {
	parsed, err := ERC1155ABI()
	if err != nil {
		return false, fmt.Errorf("parse erc1155 abi: %w", err)
	}
	values, err := c.call(ctx, contract, parsed, "isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	approved, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isApprovedForAll type %T", values[0])
	}
	return approved, nil
}

// ProposeSwap submits a new listing and waits for confirmation.
func (c *Contract) ProposeSwap(ctx context.Context, offer model.AssetRef, groups [][]model.AssetRef, secondUser common.Address, deadline uint64) (TxOutcome, error) {
	parsed, err := SwapABI()
	if err != nil {
		return TxOutcome{}, fmt.Errorf("parse swap abi: %w", err)
	}
	request := make([][]nftEntry, 0, len(groups))
	for _, group := range groups {
		request = append(request, toEntries(group))
	}
	return c.transact(ctx, c.swapAddr, parsed, "proposeSwap",
		toEntry(offer), request, secondUser, new(big.Int).SetUint64(deadline))
}

// AcceptSwap fulfills a listing with the chosen request group.
func (c *Contract) AcceptSwap(ctx context.Context, swapID *big.Int, group []model.AssetRef, index uint64) (TxOutcome, error) {
	parsed, err := SwapABI()
	if err != nil {
		return TxOutcome{}, fmt.Errorf("parse swap abi: %w", err)
	}
	return c.transact(ctx, c.swapAddr, parsed, "acceptSwap",
		swapID, toEntries(group), new(big.Int).SetUint64(index))
}

// CancelSwap withdraws a listing.
func (c *Contract) CancelSwap(ctx context.Context, swapID *big.Int) (TxOutcome, error) {
	parsed, err := SwapABI()
	if err != nil {
		return TxOutcome{}, fmt.Errorf("parse swap abi: %w", err)
	}
	return c.transact(ctx, c.swapAddr, parsed, "cancelSwap", swapID)
}

// Approve grants the spender transfer rights over one unique token.
func (c *Contract) Approve(ctx context.Context, contract, spender common.Address, tokenID *big.Int) (TxOutcome, error) {
	parsed, err := ERC721ABI()
	if err != nil {
		return TxOutcome{}, fmt.Errorf("parse erc721 abi: %w", err)
	}
	return c.transact(ctx, contract, parsed, "approve", spender, tokenID)
}

// SetApprovalForAll grants the operator blanket transfer rights on a
// batchable contract.
func (c *Contract) SetApprovalForAll(ctx context.Context, contract, operator common.Address, approved bool) (TxOutcome, error) {
	parsed, err := ERC1155ABI()
	if err != nil {
		return TxOutcome{}, fmt.Errorf("parse erc1155 abi: %w", err)
	}
	return c.transact(ctx, contract, parsed, "setApprovalForAll", operator, approved)
}

func toEntry(asset model.AssetRef) nftEntry {
	return nftEntry{
		NftAddress: asset.Contract,
		NftId:      asset.TokenID,
		NftAmount:  asset.Amount,
	}
}

func toEntries(assets []model.AssetRef) []nftEntry {
	entries := make([]nftEntry, 0, len(assets))
	for _, asset := range assets {
		entries = append(entries, toEntry(asset))
	}
	return entries
}

func toAssetRef(entry nftEntry) model.AssetRef {
	return model.AssetRef{
		Contract: entry.NftAddress,
		TokenID:  entry.NftId,
		Amount:   entry.NftAmount,
	}
}
