package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nftswap/internal/approval"
	"nftswap/internal/chain"
	"nftswap/internal/config"
	"nftswap/internal/engine"
	"nftswap/internal/ledger"
	"nftswap/internal/metadata"
	"nftswap/internal/proposal"
	"nftswap/internal/resolver"
	"nftswap/internal/storage"
	"nftswap/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "nftswap",
		Short:        "Peer-to-peer NFT swap client",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "chain RPC URL")
	root.PersistentFlags().String("private-key", "", "hex private key for transactions")
	root.PersistentFlags().String("contract", "", "swap contract address")
	root.PersistentFlags().String("proposals", "", "proposal cache file path (default: home directory)")
	root.PersistentFlags().String("journal", "./data/swap_events.jsonl", "lifecycle event journal JSONL path")
	root.PersistentFlags().String("pg-dsn", "", "optional Postgres DSN for the event journal")
	root.PersistentFlags().StringSlice("gateway", nil, "content gateways in fallback order (comma-separated)")
	root.PersistentFlags().Duration("http-timeout", 15*time.Second, "content fetch timeout")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active swaps",
		RunE:  runList,
	}
	listCmd.Flags().Bool("metadata", false, "fetch and show offered token metadata")
	root.AddCommand(listCmd)

	proposeCmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose a new swap",
		Long: `Propose a swap offering one token in exchange for one of the given
request groups. Each --request flag adds one acceptable group; a group is
a comma-separated list of contract:id:amount items.

Example:
  nftswap propose --offer 0xabc...:5:1 --request 0xdef...:9:1 --deadline-in 1h`,
		RunE: runPropose,
	}
	proposeCmd.Flags().String("offer", "", "offered asset as contract:id:amount (REQUIRED)")
	proposeCmd.Flags().String("offer-standard", "unique", "offered asset standard (unique or batchable)")
	proposeCmd.Flags().StringArray("request", nil, "one request group: comma-separated contract:id:amount items")
	proposeCmd.Flags().String("target", "", "optional counterparty address (default: open to anyone)")
	proposeCmd.Flags().Uint64("deadline", 0, "deadline as unix seconds (0 = no deadline)")
	proposeCmd.Flags().Duration("deadline-in", 0, "deadline as duration from now")
	root.AddCommand(proposeCmd)

	acceptCmd := &cobra.Command{
		Use:   "accept <swap-id>",
		Short: "Accept an active swap",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccept,
	}
	acceptCmd.Flags().Uint64("group", 0, "request group index to fulfill")
	root.AddCommand(acceptCmd)

	cancelCmd := &cobra.Command{
		Use:   "cancel <swap-id>",
		Short: "Cancel one of your swaps",
		Args:  cobra.ExactArgs(1),
		RunE:  runCancel,
	}
	root.AddCommand(cancelCmd)

	approveCmd := &cobra.Command{
		Use:   "approve",
		Short: "Grant the swap contract transfer rights over an asset",
		RunE:  runApprove,
	}
	approveCmd.Flags().String("asset", "", "asset as contract:id:amount (REQUIRED)")
	approveCmd.Flags().String("standard", "unique", "asset standard (unique or batchable)")
	root.AddCommand(approveCmd)

	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "Fetch and print a token's metadata",
		RunE:  runMetadata,
	}
	metadataCmd.Flags().String("asset", "", "asset as contract:id (REQUIRED)")
	metadataCmd.Flags().String("standard", "unique", "asset standard (unique or batchable)")
	root.AddCommand(metadataCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove proposal cache entries whose deadline has long passed",
		RunE:  runSweep,
	}
	sweepCmd.Flags().Duration("grace", 7*24*time.Hour, "grace period past the deadline")
	root.AddCommand(sweepCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired components behind each command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	client   *chain.Client
	contract *ledger.Contract
	engine   *engine.Engine
	fetcher  *metadata.Fetcher
	gate     *approval.Gate
	cache    *proposal.Cache
	journal  storage.EventLog
	resolver *resolver.Resolver
	close    func()
}

func setup(cmd *cobra.Command, needKey bool) (*app, context.Context, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.SwapContract) {
		return nil, nil, fmt.Errorf("swap contract address is required")
	}
	if needKey && cfg.PrivateKey == "" {
		return nil, nil, fmt.Errorf("private key is required for this command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	client, err := chain.NewClient(ctx, cfg.RPCURL, cfg.PrivateKey)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	swapAddr := common.HexToAddress(cfg.SwapContract)
	contract := ledger.NewContract(client, swapAddr, logger)

	cache, err := proposal.Open(cfg.ProposalsPath)
	if err != nil {
		client.Close()
		stop()
		return nil, nil, err
	}

	var journal storage.EventLog
	closePg := func() {}
	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			client.Close()
			stop()
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		journal = store
		closePg = store.Close
	} else {
		journal = storage.NewJsonlLog(cfg.JournalPath)
	}

	gate := approval.NewGate(contract, swapAddr, logger)
	contentResolver := resolver.New(cfg.Gateways, cfg.HTTPTimeout, logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		contract: contract,
		engine: engine.New(engine.Config{
			Ledger:    contract,
			Approvals: gate,
			Proposals: cache,
			Journal:   journal,
			Actor:     client.From(),
			Logger:    logger,
		}),
		fetcher:  metadata.NewFetcher(contract, contentResolver, logger),
		gate:     gate,
		cache:    cache,
		journal:  journal,
		resolver: contentResolver,
		close: func() {
			closePg()
			client.Close()
			logger.Sync()
			stop()
		},
	}
	return a, ctx, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
