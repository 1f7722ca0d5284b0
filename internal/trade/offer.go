package trade

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Offer is the seller's half of the trade: a partially-signed transaction
// spending the inscribed output into a payment output, plus a copy of the
// inscribed output itself for the assembler.
type Offer struct {
	Psbt              string
	InscriptionOutput *wire.TxOut
}

// BuildSellerOffer constructs and signs the seller side. The single output
// pays the price to the inscribed output's own locking script, so payment
// goes to whatever address currently controls the asset. Signing uses
// SINGLE|ANYONECANPAY, committing only to this input/output pair.
func BuildSellerOffer(fullNode, sellerWallet Wallet, inscription *wire.OutPoint, price int64) (*Offer, error) {
	prevTx, err := fullNode.RawTransaction(inscription.Hash.String())
	if err != nil {
		return nil, fmt.Errorf("failed to locate inscription transaction: %w", err)
	}
	if int(inscription.Index) >= len(prevTx.TxOut) {
		return nil, fmt.Errorf("inscription output %s does not exist", inscription.String())
	}
	inscriptionOut := prevTx.TxOut[inscription.Index]

	sellTx := wire.NewMsgTx(2)
	sellTx.AddTxIn(wire.NewTxIn(inscription, nil, nil))
	sellTx.AddTxOut(wire.NewTxOut(price, inscriptionOut.PkScript))

	packet, err := psbt.NewFromUnsignedTx(sellTx)
	if err != nil {
		return nil, fmt.Errorf("failed to create seller psbt: %w", err)
	}
	packet.Inputs[0].NonWitnessUtxo = prevTx
	packet.Inputs[0].SighashType = txscript.SigHashSingle | txscript.SigHashAnyOneCanPay

	unsigned, err := packet.B64Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode seller psbt: %w", err)
	}

	signed, err := sellerWallet.ProcessPsbt(unsigned, SighashSingleAnyoneCanPay)
	if err != nil {
		return nil, fmt.Errorf("failed to sign seller psbt: %w", err)
	}

	return &Offer{
		Psbt: signed,
		InscriptionOutput: &wire.TxOut{
			Value:    inscriptionOut.Value,
			PkScript: append([]byte(nil), inscriptionOut.PkScript...),
		},
	}, nil
}
