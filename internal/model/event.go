package model

// SwapEvent records one confirmed lifecycle transition for the local
// activity journal.
type SwapEvent struct {
	Kind    string `json:"kind"`
	SwapKey string `json:"swap_key"`
	SwapID  string `json:"swap_id,omitempty"`
	Actor   string `json:"actor"`
	TxHash  string `json:"tx_hash"`
	At      int64  `json:"at"`
}

const (
	EventPropose = "propose"
	EventAccept  = "accept"
	EventCancel  = "cancel"
	EventApprove = "approve"
)
