package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Status is the lifecycle state of a swap as seen by the client.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSettled   Status = "settled"
	StatusCancelled Status = "cancelled"
)

// Swap mirrors one on-chain swap listing. The chain copy is authoritative;
// the client only holds read snapshots refreshed on demand.
type Swap struct {
	ID         *big.Int         `json:"swapId"`
	Initiator  common.Address   `json:"initiator"`
	Offer      AssetRef         `json:"swapOffer"`
	Proposers  []common.Address `json:"proposals"`
	SecondUser common.Address   `json:"secondUser"`
	Deadline   uint64           `json:"deadline"`
}

// Open reports whether the swap accepts responses from anyone.
func (s Swap) Open() bool {
	return s.SecondUser == (common.Address{})
}

// StatusAt derives the display status at a point in time. Expired is a
// client-side overlay: the chain still counts the swap as active until it
// is cancelled.
func (s Swap) StatusAt(now uint64) Status {
	if s.Deadline != 0 && now > s.Deadline {
		return StatusExpired
	}
	return StatusActive
}
