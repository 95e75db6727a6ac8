package storage

import "nftswap/internal/model"

// EventLog defines a sink for swap lifecycle events.
type EventLog interface {
	PutEvents(events []model.SwapEvent) error
}
