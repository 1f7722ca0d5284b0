package trade

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/rs/zerolog/log"

	"github.com/SatoKentaNayoro/test-psbt/internal/oracle"
	"github.com/SatoKentaNayoro/test-psbt/pkg/models"
)

// Flow runs one complete trade: seller offer, buyer funding, assembly and
// settlement. Every step blocks on a network round-trip; there is no
// parallelism and no retry. State lives only in memory for the duration of
// the run.
type Flow struct {
	fullNode     Wallet
	sellerWallet Wallet
	buyerWallet  Wallet
	classifier   oracle.Classifier

	inscription        *wire.OutPoint
	buyerAddress       string
	marketplaceAddress string
	policy             models.FeePolicy
	params             *chaincfg.Params
	dryRun             bool
}

// Receipt reports the outcome of a completed run, including any on-chain
// side effect the run produced along the way.
type Receipt struct {
	TradeTxID     string
	SeparatorTxID string
	RawHex        string
	PaymentTotal  int64
	Change        int64
	Policy        models.FeePolicy
	DryRun        bool
}

type FlowOptions struct {
	Inscription        *wire.OutPoint
	BuyerAddress       string
	MarketplaceAddress string
	Policy             models.FeePolicy
	Params             *chaincfg.Params
	DryRun             bool
}

func NewFlow(fullNode, sellerWallet, buyerWallet Wallet, classifier oracle.Classifier, opts FlowOptions) *Flow {
	return &Flow{
		fullNode:           fullNode,
		sellerWallet:       sellerWallet,
		buyerWallet:        buyerWallet,
		classifier:         classifier,
		inscription:        opts.Inscription,
		buyerAddress:       opts.BuyerAddress,
		marketplaceAddress: opts.MarketplaceAddress,
		policy:             opts.Policy,
		params:             opts.Params,
		dryRun:             opts.DryRun,
	}
}

// Run executes the trade to completion. Expected shortfalls return an error
// wrapping ErrAbandoned before anything is broadcast by this flow; any other
// error is fatal. A non-empty Receipt.SeparatorTxID means separator
// provisioning broadcast a transaction even if a later step failed.
func (f *Flow) Run(ctx context.Context) (*Receipt, error) {
	offer, err := BuildSellerOffer(f.fullNode, f.sellerWallet, f.inscription, f.policy.Price)
	if err != nil {
		return nil, err
	}
	log.Info().Str("inscription", f.inscription.String()).Msg("seller offer signed")

	balance, err := f.buyerWallet.ConfirmedBalance()
	if err != nil {
		return nil, err
	}
	if balance < f.policy.Price {
		return nil, fmt.Errorf("%w: balance %d sat, price %d sat", ErrInsufficientFunds, balance, f.policy.Price)
	}

	candidates, err := SpendableOutputs(ctx, f.buyerWallet, f.classifier, f.buyerAddress)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoSpendableOutputs
	}
	log.Info().Int("candidates", len(candidates)).Msg("buyer spendable outputs classified")

	separator, separatorTxID, err := ProvisionSeparator(f.buyerWallet, candidates, f.buyerAddress, f.policy, f.params)
	if err != nil {
		return nil, err
	}
	log.Info().Str("separator", separator.String()).Msg("separator output ready")

	// Minting the separator spent one of the candidates, so the spendable
	// set has to be re-read before funding the payment side.
	if separatorTxID != "" {
		candidates, err = SpendableOutputs(ctx, f.buyerWallet, f.classifier, f.buyerAddress)
		if err != nil {
			return nil, f.withSideEffect(err, separatorTxID)
		}
	}

	// The separator is consumed at input 0 and must never double as a
	// payment input.
	payments, paymentTotal, err := SelectPayment(withoutOutput(candidates, separator), f.policy)
	if err != nil {
		return nil, f.withSideEffect(err, separatorTxID)
	}
	log.Info().
		Int("inputs", len(payments)).
		Int64("total", paymentTotal).
		Int64("required", f.policy.RequiredPayment()).
		Msg("payment inputs selected")

	buyerPsbt, err := AssembleTrade(
		f.buyerWallet, offer, separator, payments, paymentTotal,
		f.buyerAddress, f.marketplaceAddress, f.policy, f.params,
	)
	if err != nil {
		return nil, f.withSideEffect(err, separatorTxID)
	}

	receipt := &Receipt{
		SeparatorTxID: separatorTxID,
		PaymentTotal:  paymentTotal,
		Change:        paymentTotal - f.policy.RequiredPayment(),
		Policy:        f.policy,
		DryRun:        f.dryRun,
	}

	if err := f.settle(buyerPsbt, receipt); err != nil {
		return nil, f.withSideEffect(err, separatorTxID)
	}

	return receipt, nil
}

// settle finalizes the fully-signed PSBT into raw transaction form and
// broadcasts it, unless the flow is running dry.
func (f *Flow) settle(buyerPsbt string, receipt *Receipt) error {
	rawHex, complete, err := f.buyerWallet.FinalizePsbt(buyerPsbt)
	if err != nil {
		return err
	}
	if !complete {
		return ErrIncompleteSignatures
	}
	receipt.RawHex = rawHex

	if f.dryRun {
		log.Info().Msg("dry run: skipping broadcast")
		return nil
	}

	txid, err := f.buyerWallet.Broadcast(rawHex)
	if err != nil {
		return err
	}
	receipt.TradeTxID = txid
	log.Info().Str("txid", txid).Msg("inscription buying tx was successfully sent")

	return nil
}

// withSideEffect annotates a failure with the separator broadcast that
// already happened, so the caller learns about the orphaned on-chain output.
func (f *Flow) withSideEffect(err error, separatorTxID string) error {
	if separatorTxID == "" {
		return err
	}
	return fmt.Errorf("%w (separator transaction %s was already broadcast)", err, separatorTxID)
}

func withoutOutput(utxos []models.UnspentOutput, excluded models.UnspentOutput) []models.UnspentOutput {
	filtered := make([]models.UnspentOutput, 0, len(utxos))
	for _, utxo := range utxos {
		if utxo.TxID == excluded.TxID && utxo.Vout == excluded.Vout {
			continue
		}
		filtered = append(filtered, utxo)
	}
	return filtered
}
