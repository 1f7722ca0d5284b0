package trade

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSellerOffer(t *testing.T) {
	fullNode := newFakeWallet()
	sellerWallet := newFakeWallet()

	inscription := fullNode.addUtxo(t, 10000, testSellerAddr)
	outPoint, err := inscription.OutPoint()
	require.NoError(t, err)

	offer, err := BuildSellerOffer(fullNode, sellerWallet, outPoint, 1900)
	require.NoError(t, err)

	require.Equal(t, []string{SighashSingleAnyoneCanPay}, sellerWallet.sighashes)

	packet := parsePacket(t, offer.Psbt)
	require.Len(t, packet.UnsignedTx.TxIn, 1)
	require.Len(t, packet.UnsignedTx.TxOut, 1)

	assert.Equal(t, *outPoint, packet.UnsignedTx.TxIn[0].PreviousOutPoint)
	assert.Equal(t, uint32(wire.MaxTxInSequenceNum), packet.UnsignedTx.TxIn[0].Sequence)

	// The payment output pays the price to the inscribed output's own script.
	assert.Equal(t, int64(1900), packet.UnsignedTx.TxOut[0].Value)
	assert.Equal(t, offer.InscriptionOutput.PkScript, packet.UnsignedTx.TxOut[0].PkScript)

	require.NotNil(t, packet.Inputs[0].NonWitnessUtxo)
	assert.Equal(t, inscription.TxID, packet.Inputs[0].NonWitnessUtxo.TxHash().String())
	assert.Equal(t, txscript.SigHashSingle|txscript.SigHashAnyOneCanPay, packet.Inputs[0].SighashType)

	assert.Equal(t, int64(10000), offer.InscriptionOutput.Value)
}

func TestBuildSellerOffer_MissingTransaction(t *testing.T) {
	fullNode := newFakeWallet()
	sellerWallet := newFakeWallet()

	orphan := fullNode.addUtxo(t, 10000, testSellerAddr)
	outPoint, err := orphan.OutPoint()
	require.NoError(t, err)
	delete(fullNode.txs, orphan.TxID)

	_, err = BuildSellerOffer(fullNode, sellerWallet, outPoint, 1900)
	assert.ErrorContains(t, err, "failed to locate inscription transaction")
}

func TestBuildSellerOffer_MissingOutput(t *testing.T) {
	fullNode := newFakeWallet()
	sellerWallet := newFakeWallet()

	inscription := fullNode.addUtxo(t, 10000, testSellerAddr)
	outPoint, err := inscription.OutPoint()
	require.NoError(t, err)
	outPoint.Index = 7

	_, err = BuildSellerOffer(fullNode, sellerWallet, outPoint, 1900)
	assert.ErrorContains(t, err, "does not exist")
}
