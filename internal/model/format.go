package model

import (
	"fmt"
	"math/big"
)

// ShortenAddress renders an address for display, keeping the leading and
// trailing characters.
func ShortenAddress(address string) string {
	const start, end = 6, 4
	if len(address) < start+end {
		return address
	}
	return address[:start] + "..." + address[len(address)-end:]
}

// FormatDeadline renders the time remaining until a deadline.
func FormatDeadline(deadline, now uint64) string {
	if deadline < now {
		return "Expired"
	}
	diff := deadline - now
	days := diff / 86400
	hours := (diff % 86400) / 3600
	minutes := (diff % 3600) / 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatAmount renders a token quantity for display.
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0 tokens"
	}
	if amount.Cmp(big.NewInt(1)) == 0 {
		return "1 token"
	}
	return amount.String() + " tokens"
}
