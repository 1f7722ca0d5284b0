package config

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/spf13/viper"

	"github.com/SatoKentaNayoro/test-psbt/pkg/models"
)

// Config is the process-wide configuration, loaded once from the environment
// at startup and handed to each component by reference. Nothing here is
// mutated after Load returns.
type Config struct {
	Network     string
	Seller      NodeConfig
	Buyer       NodeConfig
	FullNode    NodeConfig
	Oracle      OracleConfig
	Trade       TradeConfig
	chainParams *chaincfg.Params
}

type NodeConfig struct {
	URL  string
	User string
	Pass string
}

type OracleConfig struct {
	BaseURL string
	Timeout int
}

type TradeConfig struct {
	SellerAddress      string
	BuyerAddress       string
	MarketplaceAddress string
	InscriptionUTXO    string
	Fees               models.FeePolicy
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("network", "testnet3")
	v.SetDefault("ord_explorer_timeout", 30)

	fees := models.DefaultFeePolicy()
	v.SetDefault("trade_price", fees.Price)
	v.SetDefault("marketplace_fee", fees.MarketplaceFee)
	fees.Price = v.GetInt64("trade_price")
	fees.MarketplaceFee = v.GetInt64("marketplace_fee")

	cfg := &Config{
		Network: v.GetString("network"),
		Seller: NodeConfig{
			URL:  v.GetString("seller_rpc_url"),
			User: v.GetString("seller_rpc_user"),
			Pass: v.GetString("seller_rpc_pass"),
		},
		Buyer: NodeConfig{
			URL:  v.GetString("buyer_rpc_url"),
			User: v.GetString("buyer_rpc_user"),
			Pass: v.GetString("buyer_rpc_pass"),
		},
		FullNode: NodeConfig{
			URL:  v.GetString("bitcoin_rpc_url"),
			User: v.GetString("bitcoin_rpc_user"),
			Pass: v.GetString("bitcoin_rpc_pass"),
		},
		Oracle: OracleConfig{
			BaseURL: v.GetString("ord_explorer"),
			Timeout: v.GetInt("ord_explorer_timeout"),
		},
		Trade: TradeConfig{
			SellerAddress:      v.GetString("seller_address"),
			BuyerAddress:       v.GetString("buyer_address"),
			MarketplaceAddress: v.GetString("market_place_address"),
			InscriptionUTXO:    v.GetString("seller_utxo"),
			Fees:               fees,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	params, err := paramsForNetwork(cfg.Network)
	if err != nil {
		return err
	}
	cfg.chainParams = params

	if err := cfg.Seller.Validate("seller"); err != nil {
		return err
	}
	if err := cfg.Buyer.Validate("buyer"); err != nil {
		return err
	}
	if err := cfg.FullNode.Validate("bitcoin"); err != nil {
		return err
	}
	if err := cfg.Oracle.Validate(); err != nil {
		return err
	}
	if err := cfg.Trade.Validate(params); err != nil {
		return err
	}
	return nil
}

func (cfg *NodeConfig) Validate(name string) error {
	if cfg.URL == "" {
		return fmt.Errorf("%s rpc url cannot be empty", name)
	}
	if cfg.User == "" || cfg.Pass == "" {
		return fmt.Errorf("%s rpc credentials cannot be empty", name)
	}
	return nil
}

func (cfg *OracleConfig) Validate() error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("ord explorer url cannot be empty")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return fmt.Errorf("ord explorer url must start with http or https")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("ord explorer timeout cannot be smaller or equal to 0")
	}
	return nil
}

func (cfg *TradeConfig) Validate(params *chaincfg.Params) error {
	for name, addr := range map[string]string{
		"seller address":       cfg.SellerAddress,
		"buyer address":        cfg.BuyerAddress,
		"market place address": cfg.MarketplaceAddress,
	} {
		if addr == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		if _, err := btcutil.DecodeAddress(addr, params); err != nil {
			return fmt.Errorf("invalid %s %s: %w", name, addr, err)
		}
	}
	if cfg.InscriptionUTXO == "" {
		return fmt.Errorf("seller utxo cannot be empty")
	}
	if _, err := models.ParseOutPoint(cfg.InscriptionUTXO); err != nil {
		return fmt.Errorf("invalid seller utxo: %w", err)
	}
	return cfg.Fees.Validate()
}

// ChainParams returns the chain parameters selected by the network setting.
// Only valid after Validate has run.
func (cfg *Config) ChainParams() *chaincfg.Params {
	return cfg.chainParams
}

// InscriptionOutPoint returns the configured inscribed output reference.
func (cfg *Config) InscriptionOutPoint() *wire.OutPoint {
	op, _ := models.ParseOutPoint(cfg.Trade.InscriptionUTXO)
	return op
}

func paramsForNetwork(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3", "testnet":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}
