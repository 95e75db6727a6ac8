package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nftswap/internal/config"
	"nftswap/internal/model"
	"nftswap/internal/proposal"
)

func errorIs(err, target error) bool {
	return errors.Is(err, target)
}

// parseAsset parses "contract:id:amount" (amount defaults to 1).
func parseAsset(spec string) (model.AssetRef, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return model.AssetRef{}, fmt.Errorf("expected contract:id[:amount], got %q", spec)
	}
	if !common.IsHexAddress(parts[0]) {
		return model.AssetRef{}, fmt.Errorf("invalid contract address: %s", parts[0])
	}
	tokenID, ok := new(big.Int).SetString(parts[1], 10)
	if !ok {
		return model.AssetRef{}, fmt.Errorf("invalid token id: %s", parts[1])
	}
	amount := big.NewInt(1)
	if len(parts) == 3 {
		amount, ok = new(big.Int).SetString(parts[2], 10)
		if !ok {
			return model.AssetRef{}, fmt.Errorf("invalid amount: %s", parts[2])
		}
	}
	return model.AssetRef{
		Contract: common.HexToAddress(parts[0]),
		TokenID:  tokenID,
		Amount:   amount,
	}, nil
}

// parseRequestGroups parses each spec into one group of comma-separated
// assets.
func parseRequestGroups(specs []string) ([][]model.AssetRef, error) {
	groups := make([][]model.AssetRef, 0, len(specs))
	for i, spec := range specs {
		var group []model.AssetRef
		for _, item := range strings.Split(spec, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			asset, err := parseAsset(item)
			if err != nil {
				return nil, fmt.Errorf("request group %d: %w", i, err)
			}
			group = append(group, asset)
		}
		if len(group) == 0 {
			return nil, fmt.Errorf("request group %d is empty", i)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func parseStandard(spec string) (model.Standard, error) {
	switch model.Standard(strings.ToLower(spec)) {
	case model.StandardUnique:
		return model.StandardUnique, nil
	case model.StandardBatchable:
		return model.StandardBatchable, nil
	default:
		return "", fmt.Errorf("unknown standard %q (want unique or batchable)", spec)
	}
}

func runApprove(cmd *cobra.Command, _ []string) error {
	a, ctx, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	assetSpec, _ := cmd.Flags().GetString("asset")
	standardSpec, _ := cmd.Flags().GetString("standard")

	asset, err := parseAsset(assetSpec)
	if err != nil {
		return fmt.Errorf("invalid --asset: %w", err)
	}
	standard, err := parseStandard(standardSpec)
	if err != nil {
		return err
	}

	approved, err := a.gate.Status(ctx, asset, standard, a.client.From())
	if err != nil {
		return err
	}
	if approved {
		successColor.Println("✓ Already approved")
		return nil
	}

	s := newSpinner(" Granting approval...")
	outcome, err := a.gate.Grant(ctx, asset, standard)
	s.Stop()
	if err != nil {
		printFailure(err)
		return err
	}

	if err := a.journal.PutEvents([]model.SwapEvent{{
		Kind:   model.EventApprove,
		Actor:  a.client.From().Hex(),
		TxHash: outcome.TxHash,
		At:     time.Now().Unix(),
	}}); err != nil {
		a.logger.Warn("journal write failed", zap.Error(err))
	}

	successColor.Printf("✓ Approval granted (tx %s)\n", outcome.TxHash)
	return nil
}

func runMetadata(cmd *cobra.Command, _ []string) error {
	a, ctx, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	assetSpec, _ := cmd.Flags().GetString("asset")
	standardSpec, _ := cmd.Flags().GetString("standard")

	asset, err := parseAsset(assetSpec)
	if err != nil {
		return fmt.Errorf("invalid --asset: %w", err)
	}
	standard, err := parseStandard(standardSpec)
	if err != nil {
		return err
	}

	s := newSpinner(" Fetching metadata...")
	descriptor, err := a.fetcher.Load(ctx, asset.Contract, asset.TokenID, standard)
	s.Stop()
	if err != nil {
		printFailure(err)
		return err
	}
	if descriptor == nil {
		dimColor.Println("No metadata available")
		return nil
	}

	out, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if a.resolver.IsContentURI(descriptor.Image) {
		dimColor.Printf("image: %s\n", a.resolver.Preferred(descriptor.Image))
	}
	return nil
}

// runSweep works offline: it only touches the proposal cache file.
func runSweep(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	grace, _ := cmd.Flags().GetDuration("grace")

	cache, err := proposal.Open(cfg.ProposalsPath)
	if err != nil {
		return err
	}

	removed, err := cache.SweepExpired(uint64(time.Now().Unix()), uint64(grace.Seconds()))
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		dimColor.Println("Nothing to sweep")
		return nil
	}
	for _, key := range removed {
		fmt.Printf("removed %s\n", key)
	}
	successColor.Printf("✓ Swept %d orphaned entries\n", len(removed))
	return nil
}
