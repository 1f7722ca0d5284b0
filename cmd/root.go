package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SatoKentaNayoro/test-psbt/internal/config"
	"github.com/SatoKentaNayoro/test-psbt/internal/oracle"
	"github.com/SatoKentaNayoro/test-psbt/internal/rpc"
	"github.com/SatoKentaNayoro/test-psbt/internal/trade"
	"github.com/SatoKentaNayoro/test-psbt/internal/ui"
)

var (
	envFile string
	network string
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "test-psbt",
	Short: "Atomically-settled inscription trade over PSBTs",
	Long: `Builds a seller offer signed under SINGLE|ANYONECANPAY, funds it from the
buyer's wallet with a separator input and greedy largest-first coin selection,
merges both sides into one transaction and broadcasts it.`,
	SilenceUsage: true,
	RunE:         runTrade,
}

// Execute runs the CLI. Exit codes: 0 on success, 1 on a fatal error, 2 when
// the trade was abandoned for an expected reason such as insufficient funds.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, trade.ErrAbandoned) {
			log.Warn().Err(err).Msg("trade abandoned")
			os.Exit(2)
		}
		log.Error().Err(err).Msg("trade failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "environment file to load before reading configuration")
	rootCmd.Flags().StringVarP(&network, "network", "n", "", "chain network (mainnet, testnet3, signet, regtest); overrides NETWORK")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "assemble and sign the trade but do not broadcast it")
}

func runTrade(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil {
		log.Debug().Str("file", envFile).Msg("no environment file loaded")
	}
	if network != "" {
		os.Setenv("NETWORK", network)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	fullNode, err := rpc.NewClient(cfg.FullNode.URL, cfg.FullNode.User, cfg.FullNode.Pass, cfg.ChainParams())
	if err != nil {
		return fmt.Errorf("failed to connect to full node: %w", err)
	}
	defer fullNode.Close()

	sellerWallet, err := rpc.NewClient(cfg.Seller.URL, cfg.Seller.User, cfg.Seller.Pass, cfg.ChainParams())
	if err != nil {
		return fmt.Errorf("failed to connect to seller wallet: %w", err)
	}
	defer sellerWallet.Close()

	buyerWallet, err := rpc.NewClient(cfg.Buyer.URL, cfg.Buyer.User, cfg.Buyer.Pass, cfg.ChainParams())
	if err != nil {
		return fmt.Errorf("failed to connect to buyer wallet: %w", err)
	}
	defer buyerWallet.Close()

	classifier := oracle.NewCache(oracle.NewClient(cfg.Oracle.BaseURL, time.Duration(cfg.Oracle.Timeout)*time.Second))

	flow := trade.NewFlow(fullNode, sellerWallet, buyerWallet, classifier, trade.FlowOptions{
		Inscription:        cfg.InscriptionOutPoint(),
		BuyerAddress:       cfg.Trade.BuyerAddress,
		MarketplaceAddress: cfg.Trade.MarketplaceAddress,
		Policy:             cfg.Trade.Fees,
		Params:             cfg.ChainParams(),
		DryRun:             dryRun,
	})

	receipt, err := flow.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Print(ui.RenderReceipt(receipt))
	return nil
}
