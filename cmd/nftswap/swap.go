package main

import (
	"fmt"
	"math/big"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"nftswap/internal/engine"
	"nftswap/internal/model"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.Faint)
)

func runList(cmd *cobra.Command, _ []string) error {
	a, ctx, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	withMetadata, _ := cmd.Flags().GetBool("metadata")

	s := newSpinner(" Fetching active swaps...")
	swaps, err := a.engine.Refresh(ctx)
	s.Stop()
	if err != nil {
		return err
	}

	if total, err := a.contract.TotalListings(ctx); err == nil {
		dimColor.Printf("%d active of %s listed all-time\n\n", len(swaps), total)
	}

	if len(swaps) == 0 {
		dimColor.Println("No active swaps found")
		return nil
	}

	now := uint64(time.Now().Unix())
	for _, swap := range swaps {
		headerColor.Printf("Swap #%s\n", swap.ID)
		fmt.Printf("  Initiator: %s\n", model.ShortenAddress(swap.Initiator.Hex()))
		fmt.Printf("  Offer:     %s #%s (%s)\n",
			model.ShortenAddress(swap.Offer.Contract.Hex()),
			swap.Offer.TokenID,
			model.FormatAmount(swap.Offer.Amount),
		)
		if !swap.Open() {
			fmt.Printf("  For:       %s\n", model.ShortenAddress(swap.SecondUser.Hex()))
		}
		if swap.Deadline != 0 {
			status := a.engine.StatusOf(swap)
			if status == model.StatusExpired {
				errorColor.Println("  Expires:   Expired")
			} else {
				fmt.Printf("  Expires:   %s\n", model.FormatDeadline(swap.Deadline, now))
			}
		}
		if len(swap.Proposers) > 0 {
			fmt.Printf("  Proposers: %d\n", len(swap.Proposers))
		}
		if withMetadata {
			descriptor, err := a.fetcher.Load(ctx, swap.Offer.Contract, swap.Offer.TokenID, model.StandardUnique)
			if err != nil {
				dimColor.Printf("  Metadata:  unavailable (%v)\n", err)
			} else if descriptor != nil {
				name := descriptor.Name
				if name == "" {
					name = "Unnamed"
				}
				fmt.Printf("  Metadata:  %s\n", name)
			}
		}
		fmt.Println()
	}
	return nil
}

func runPropose(cmd *cobra.Command, _ []string) error {
	a, ctx, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	offerSpec, _ := cmd.Flags().GetString("offer")
	standardSpec, _ := cmd.Flags().GetString("offer-standard")
	requestSpecs, _ := cmd.Flags().GetStringArray("request")
	targetSpec, _ := cmd.Flags().GetString("target")
	deadline, _ := cmd.Flags().GetUint64("deadline")
	deadlineIn, _ := cmd.Flags().GetDuration("deadline-in")

	offer, err := parseAsset(offerSpec)
	if err != nil {
		return fmt.Errorf("invalid --offer: %w", err)
	}
	standard, err := parseStandard(standardSpec)
	if err != nil {
		return err
	}
	groups, err := parseRequestGroups(requestSpecs)
	if err != nil {
		return err
	}

	var target common.Address
	if targetSpec != "" {
		if !common.IsHexAddress(targetSpec) {
			return fmt.Errorf("invalid --target address: %s", targetSpec)
		}
		target = common.HexToAddress(targetSpec)
	}

	if deadlineIn > 0 {
		deadline = uint64(time.Now().Add(deadlineIn).Unix())
	}

	s := newSpinner(" Proposing swap...")
	outcome, err := a.engine.Propose(ctx, engine.ProposeParams{
		Offer:         offer,
		OfferStandard: standard,
		Groups:        groups,
		Target:        target,
		Deadline:      deadline,
	})
	s.Stop()
	if err != nil {
		printFailure(err)
		return err
	}

	successColor.Printf("✓ Swap proposed (tx %s)\n", outcome.TxHash)
	return nil
}

func runAccept(cmd *cobra.Command, args []string) error {
	a, ctx, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	swapID, ok := new(big.Int).SetString(args[0], 10)
	if !ok {
		return fmt.Errorf("invalid swap id: %s", args[0])
	}
	groupIndex, _ := cmd.Flags().GetUint64("group")

	s := newSpinner(" Refreshing listings...")
	_, err = a.engine.Refresh(ctx)
	s.Stop()
	if err != nil {
		return err
	}

	s = newSpinner(" Accepting swap...")
	outcome, err := a.engine.Accept(ctx, swapID, groupIndex)
	s.Stop()
	if err != nil {
		printFailure(err)
		return err
	}

	successColor.Printf("✓ Swap %s accepted (tx %s)\n", swapID, outcome.TxHash)
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	a, ctx, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	swapID, ok := new(big.Int).SetString(args[0], 10)
	if !ok {
		return fmt.Errorf("invalid swap id: %s", args[0])
	}

	s := newSpinner(" Refreshing listings...")
	_, err = a.engine.Refresh(ctx)
	s.Stop()
	if err != nil {
		return err
	}

	s = newSpinner(" Cancelling swap...")
	outcome, err := a.engine.Cancel(ctx, swapID)
	s.Stop()
	if err != nil {
		printFailure(err)
		return err
	}

	successColor.Printf("✓ Swap %s cancelled (tx %s)\n", swapID, outcome.TxHash)
	return nil
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = suffix
	s.Start()
	return s
}

// printFailure renders an engine failure with its remediation hint.
func printFailure(err error) {
	switch {
	case errorIs(err, engine.ErrValidation):
		errorColor.Printf("✗ Invalid input: %v\n", err)
	case errorIs(err, engine.ErrPrecondition):
		errorColor.Printf("✗ %v\n", err)
		dimColor.Println("  Grant the missing approval or re-propose, then retry.")
	case errorIs(err, engine.ErrNotFound):
		errorColor.Printf("✗ %v\n", err)
		dimColor.Println("  Refresh the listing view and retry.")
	case errorIs(err, engine.ErrBusy):
		errorColor.Printf("✗ %v\n", err)
	default:
		errorColor.Printf("✗ %v\n", err)
		dimColor.Println("  Local state is unchanged; retrying is safe.")
	}
}
