package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SatoKentaNayoro/test-psbt/pkg/models"
)

func TestSpendableOutputs(t *testing.T) {
	wallet := newFakeWallet()
	big := wallet.addUtxo(t, 5000, testBuyerAddr)
	small := wallet.addUtxo(t, 500, testBuyerAddr)
	mid := wallet.addUtxo(t, 3000, testBuyerAddr)
	inscribed := wallet.addUtxo(t, 800, testBuyerAddr)

	frozen := wallet.addUtxo(t, 700, testBuyerAddr)
	wallet.utxos[len(wallet.utxos)-1].Spendable = false

	classifier := &fakeClassifier{inscribed: map[string]bool{inscribed.String(): true}}

	outputs, err := SpendableOutputs(context.Background(), wallet, classifier, testBuyerAddr)
	require.NoError(t, err)

	require.Len(t, outputs, 3)
	assert.Equal(t, []models.UnspentOutput{small, mid, big}, outputs)

	for _, output := range outputs {
		assert.NotEqual(t, inscribed.String(), output.String(), "inscription holders must never be selectable")
		assert.NotEqual(t, frozen.String(), output.String())
	}
}

func TestSpendableOutputs_ClassifierFailure(t *testing.T) {
	wallet := newFakeWallet()
	wallet.addUtxo(t, 5000, testBuyerAddr)

	classifier := &fakeClassifier{err: errors.New("explorer down")}

	_, err := SpendableOutputs(context.Background(), wallet, classifier, testBuyerAddr)
	assert.ErrorContains(t, err, "failed to classify")
}

func TestSelectPayment_SingleLargeInput(t *testing.T) {
	policy := models.DefaultFeePolicy()
	require.Equal(t, int64(4372), policy.RequiredPayment())

	candidates := []models.UnspentOutput{
		{TxID: "aa", Value: 500},
		{TxID: "bb", Value: 3000},
		{TxID: "cc", Value: 5000},
	}

	selected, total, err := SelectPayment(candidates, policy)
	require.NoError(t, err)

	// 5000 alone reaches 4372, so selection stops after one input.
	require.Len(t, selected, 1)
	assert.Equal(t, int64(5000), selected[0].Value)
	assert.Equal(t, int64(5000), total)
	assert.Equal(t, int64(628), total-policy.RequiredPayment())
}

func TestSelectPayment_Accumulates(t *testing.T) {
	policy := models.DefaultFeePolicy()

	candidates := []models.UnspentOutput{
		{TxID: "aa", Value: 400},
		{TxID: "bb", Value: 2000},
		{TxID: "cc", Value: 3000},
	}

	selected, total, err := SelectPayment(candidates, policy)
	require.NoError(t, err)

	// Largest-first: 3000 + 2000 = 5000 >= 4372; 400 stays unspent.
	require.Len(t, selected, 2)
	assert.Equal(t, int64(3000), selected[0].Value)
	assert.Equal(t, int64(2000), selected[1].Value)
	assert.Equal(t, int64(5000), total)
}

func TestSelectPayment_InsufficientFunds(t *testing.T) {
	policy := models.DefaultFeePolicy()

	candidates := []models.UnspentOutput{
		{TxID: "aa", Value: 500},
		{TxID: "bb", Value: 3000},
	}

	_, _, err := SelectPayment(candidates, policy)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.ErrorIs(t, err, ErrAbandoned)
}

func TestSelectPayment_CoversPriceButNotThreshold(t *testing.T) {
	policy := models.DefaultFeePolicy()

	// 2000 covers the 1900 price but not the 4372 threshold. The run must
	// abandon here; letting it through would leave negative change for the
	// assembler.
	candidates := []models.UnspentOutput{{TxID: "aa", Value: 2000}}

	_, _, err := SelectPayment(candidates, policy)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.ErrorIs(t, err, ErrAbandoned)
}

func TestSelectPayment_Empty(t *testing.T) {
	_, _, err := SelectPayment(nil, models.DefaultFeePolicy())
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}
