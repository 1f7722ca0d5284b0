package trade

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/SatoKentaNayoro/test-psbt/pkg/models"
)

// Input and output positions of the purchase transaction. The layout is
// load-bearing: index 1 on both sides must carry the exact bytes the seller
// signed under SINGLE|ANYONECANPAY, and downstream tooling relies on the
// separator sitting at input 0.
const (
	inputSeparator = 0
	inputSeller    = 1
	inputPayments  = 2

	outputAsset     = 0
	outputSeller    = 1
	outputMarketFee = 2
	outputAllowance = 3
	outputChange    = 4
)

// BuildPurchaseTransaction assembles the unsigned combined transaction from
// the seller's extracted skeleton and the buyer's selected inputs.
//
// Inputs: separator, then the seller's input copied verbatim, then payment
// inputs in selection order. Outputs: the asset plus the separator's value
// recombined to the buyer, the seller's payment output copied verbatim, the
// marketplace fee, the dummy allowance, and the remaining change.
func BuildPurchaseTransaction(
	sellerTx *wire.MsgTx,
	inscriptionOut *wire.TxOut,
	separator models.UnspentOutput,
	payments []models.UnspentOutput,
	paymentTotal int64,
	policy models.FeePolicy,
	buyerScript, marketplaceScript []byte,
) (*wire.MsgTx, error) {
	if len(sellerTx.TxIn) == 0 || len(sellerTx.TxOut) == 0 {
		return nil, fmt.Errorf("seller transaction is malformed: %d inputs, %d outputs",
			len(sellerTx.TxIn), len(sellerTx.TxOut))
	}

	change := paymentTotal - policy.RequiredPayment()
	if change < 0 {
		return nil, fmt.Errorf("%w: selected %d sat, need %d sat",
			ErrNegativeChange, paymentTotal, policy.RequiredPayment())
	}

	separatorOutPoint, err := separator.OutPoint()
	if err != nil {
		return nil, err
	}

	purchaseTx := wire.NewMsgTx(2)
	purchaseTx.AddTxIn(wire.NewTxIn(separatorOutPoint, nil, nil))
	purchaseTx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: sellerTx.TxIn[0].PreviousOutPoint,
		SignatureScript:  sellerTx.TxIn[0].SignatureScript,
		Sequence:         sellerTx.TxIn[0].Sequence,
	})
	for _, payment := range payments {
		outPoint, err := payment.OutPoint()
		if err != nil {
			return nil, err
		}
		purchaseTx.AddTxIn(wire.NewTxIn(outPoint, nil, nil))
	}

	purchaseTx.AddTxOut(wire.NewTxOut(inscriptionOut.Value+separator.Value, buyerScript))
	purchaseTx.AddTxOut(&wire.TxOut{
		Value:    sellerTx.TxOut[0].Value,
		PkScript: sellerTx.TxOut[0].PkScript,
	})
	purchaseTx.AddTxOut(wire.NewTxOut(policy.MarketplaceFee, marketplaceScript))
	purchaseTx.AddTxOut(wire.NewTxOut(policy.DummyAllowance, buyerScript))
	purchaseTx.AddTxOut(wire.NewTxOut(change, buyerScript))

	return purchaseTx, nil
}

// AssembleTrade merges the seller's signed offer with the buyer's separator
// and payment inputs into one PSBT and has the buyer's wallet sign every
// input except the seller's. The seller's signing metadata, including the
// partial signature, is carried over unmodified.
func AssembleTrade(
	buyerWallet Wallet,
	offer *Offer,
	separator models.UnspentOutput,
	payments []models.UnspentOutput,
	paymentTotal int64,
	buyerAddress, marketplaceAddress string,
	policy models.FeePolicy,
	params *chaincfg.Params,
) (string, error) {
	// Output 0 pays to the separator's owner. The flow assumes that owner is
	// the buyer's configured destination, so enforce it instead of silently
	// paying elsewhere.
	if separator.Address != buyerAddress {
		return "", fmt.Errorf("%w: separator owned by %s, buyer is %s",
			ErrSeparatorOwner, separator.Address, buyerAddress)
	}

	sellerPacket, err := psbt.NewFromRawBytes(strings.NewReader(offer.Psbt), true)
	if err != nil {
		return "", fmt.Errorf("failed to parse seller psbt: %w", err)
	}
	sellerTx := sellerPacket.UnsignedTx

	buyerScript, err := payToAddressScript(separator.Address, params)
	if err != nil {
		return "", err
	}
	marketplaceScript, err := payToAddressScript(marketplaceAddress, params)
	if err != nil {
		return "", err
	}

	purchaseTx, err := BuildPurchaseTransaction(
		sellerTx, offer.InscriptionOutput, separator, payments, paymentTotal,
		policy, buyerScript, marketplaceScript,
	)
	if err != nil {
		return "", err
	}

	packet, err := psbt.NewFromUnsignedTx(purchaseTx)
	if err != nil {
		return "", fmt.Errorf("failed to create purchase psbt: %w", err)
	}

	separatorPrev, err := buyerWallet.RawTransaction(separator.TxID)
	if err != nil {
		return "", err
	}
	packet.Inputs[inputSeparator].NonWitnessUtxo = separatorPrev
	packet.Inputs[inputSeller] = sellerPacket.Inputs[0]
	for i, payment := range payments {
		paymentPrev, err := buyerWallet.RawTransaction(payment.TxID)
		if err != nil {
			return "", err
		}
		packet.Inputs[inputPayments+i].NonWitnessUtxo = paymentPrev
	}

	unsigned, err := packet.B64Encode()
	if err != nil {
		return "", fmt.Errorf("failed to encode purchase psbt: %w", err)
	}

	signed, err := buyerWallet.ProcessPsbt(unsigned, "")
	if err != nil {
		return "", fmt.Errorf("failed to sign purchase psbt: %w", err)
	}

	return signed, nil
}
