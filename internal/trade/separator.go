package trade

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/rs/zerolog/log"

	"github.com/SatoKentaNayoro/test-psbt/pkg/models"
)

// ProvisionSeparator returns a dust-sized non-inscription output owned by
// the buyer, minting one on-chain when none exists. The second return value
// is the txid of the dust-creation transaction, empty when an existing
// output was reused; callers surface it because that broadcast is a side
// effect that outlives an abandoned run.
//
// Provisioning is idempotent: as long as a qualifying dust output exists no
// new transaction is created.
func ProvisionSeparator(wallet Wallet, candidates []models.UnspentOutput, buyerAddress string, policy models.FeePolicy, params *chaincfg.Params) (models.UnspentOutput, string, error) {
	if len(candidates) == 0 {
		return models.UnspentOutput{}, "", ErrNoSpendableOutputs
	}

	// candidates are sorted ascending, so the first match is the smallest.
	for _, utxo := range candidates {
		if utxo.Value <= policy.SeparatorValue {
			return utxo, "", nil
		}
	}

	source := candidates[len(candidates)-1]
	change := source.Value - policy.SeparatorValue - policy.SeparatorOverhead
	if change <= 0 {
		return models.UnspentOutput{}, "", fmt.Errorf("%w: %s holds %d sat, need more than %d",
			ErrSeparatorFunding, source.String(), source.Value, policy.SeparatorValue+policy.SeparatorOverhead)
	}

	ownerScript, err := payToAddressScript(source.Address, params)
	if err != nil {
		return models.UnspentOutput{}, "", err
	}

	sourceOutPoint, err := source.OutPoint()
	if err != nil {
		return models.UnspentOutput{}, "", err
	}

	mintTx := wire.NewMsgTx(2)
	mintTx.AddTxIn(wire.NewTxIn(sourceOutPoint, nil, nil))
	mintTx.AddTxOut(wire.NewTxOut(policy.SeparatorValue, ownerScript))
	mintTx.AddTxOut(wire.NewTxOut(change, ownerScript))

	packet, err := psbt.NewFromUnsignedTx(mintTx)
	if err != nil {
		return models.UnspentOutput{}, "", fmt.Errorf("failed to create separator psbt: %w", err)
	}

	prevTx, err := wallet.RawTransaction(source.TxID)
	if err != nil {
		return models.UnspentOutput{}, "", err
	}
	packet.Inputs[0].NonWitnessUtxo = prevTx

	unsigned, err := packet.B64Encode()
	if err != nil {
		return models.UnspentOutput{}, "", fmt.Errorf("failed to encode separator psbt: %w", err)
	}

	signed, err := wallet.ProcessPsbt(unsigned, "")
	if err != nil {
		return models.UnspentOutput{}, "", fmt.Errorf("failed to sign separator psbt: %w", err)
	}

	rawHex, complete, err := wallet.FinalizePsbt(signed)
	if err != nil {
		return models.UnspentOutput{}, "", fmt.Errorf("failed to finalize separator psbt: %w", err)
	}
	if !complete {
		return models.UnspentOutput{}, "", ErrIncompleteSignatures
	}

	txid, err := wallet.Broadcast(rawHex)
	if err != nil {
		return models.UnspentOutput{}, "", fmt.Errorf("failed to broadcast separator transaction: %w", err)
	}
	log.Info().Str("txid", txid).Msg("created separator output")

	separator, err := findSeparator(wallet, buyerAddress, txid, policy)
	if err != nil {
		return models.UnspentOutput{}, "", err
	}

	return separator, txid, nil
}

// findSeparator re-queries the buyer's unspent set for the freshly minted
// dust output. The wallet may not report it until it confirms; in that case
// the output is reconstructed from the mint transaction, which always places
// the dust value at index 0.
func findSeparator(wallet Wallet, buyerAddress, mintTxID string, policy models.FeePolicy) (models.UnspentOutput, error) {
	utxos, err := wallet.ListUnspentByAddress(buyerAddress)
	if err != nil {
		return models.UnspentOutput{}, err
	}

	for _, utxo := range utxos {
		if utxo.TxID == mintTxID && utxo.Value <= policy.SeparatorValue {
			return utxo, nil
		}
	}

	log.Debug().Str("txid", mintTxID).Msg("separator output not yet listed, using mint transaction directly")
	return models.UnspentOutput{
		TxID:      mintTxID,
		Vout:      0,
		Address:   buyerAddress,
		Value:     policy.SeparatorValue,
		Spendable: true,
	}, nil
}

func payToAddressScript(address string, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", address, err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to build script for %s: %w", address, err)
	}
	return script, nil
}
