package trade

import (
	"context"
	"fmt"
	"sort"

	"github.com/SatoKentaNayoro/test-psbt/internal/oracle"
	"github.com/SatoKentaNayoro/test-psbt/pkg/models"
)

// SpendableOutputs returns the buyer's spendable outputs, excluding any the
// classifier marks as inscription holders, sorted ascending by value with
// txid:vout as the tie-break so selection is deterministic.
func SpendableOutputs(ctx context.Context, wallet Wallet, classifier oracle.Classifier, address string) ([]models.UnspentOutput, error) {
	utxos, err := wallet.ListUnspentByAddress(address)
	if err != nil {
		return nil, err
	}

	spendable := make([]models.UnspentOutput, 0, len(utxos))
	for _, utxo := range utxos {
		if !utxo.Spendable {
			continue
		}
		inscribed, err := classifier.IsInscription(ctx, utxo.TxID, utxo.Vout)
		if err != nil {
			return nil, fmt.Errorf("failed to classify %s: %w", utxo.String(), err)
		}
		if inscribed {
			continue
		}
		spendable = append(spendable, utxo)
	}

	sort.Slice(spendable, func(i, j int) bool {
		if spendable[i].Value != spendable[j].Value {
			return spendable[i].Value < spendable[j].Value
		}
		if spendable[i].TxID != spendable[j].TxID {
			return spendable[i].TxID < spendable[j].TxID
		}
		return spendable[i].Vout < spendable[j].Vout
	})

	return spendable, nil
}

// SelectPayment walks the ascending candidate list from largest to smallest,
// greedily accumulating outputs until their value reaches the required
// payment threshold. Largest-first keeps the input count, and therefore the
// byte overhead, minimal. Returns ErrInsufficientFunds when even the full
// candidate list falls short of the threshold, so no transaction with
// negative change can ever be assembled.
func SelectPayment(candidates []models.UnspentOutput, policy models.FeePolicy) ([]models.UnspentOutput, int64, error) {
	required := policy.RequiredPayment()

	var (
		selected []models.UnspentOutput
		total    int64
	)
	for i := len(candidates) - 1; i >= 0; i-- {
		selected = append(selected, candidates[i])
		total += candidates[i].Value
		if total >= required {
			break
		}
	}

	if total < required {
		return nil, 0, fmt.Errorf("%w: candidates hold %d sat, need %d sat", ErrInsufficientFunds, total, required)
	}

	return selected, total, nil
}
