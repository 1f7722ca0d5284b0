package trade

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/SatoKentaNayoro/test-psbt/pkg/models"
)

const (
	testBuyerAddr  = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"
	testMarketAddr = "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3q0sl5k7"
	testSellerAddr = "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn"
)

var testParams = &chaincfg.TestNet3Params

// fakeWallet implements Wallet in memory. ProcessPsbt returns its input
// unchanged; FinalizePsbt serializes the unsigned skeleton; Broadcast
// records the transaction and optionally mutates the unspent set through
// onBroadcast, mimicking wallet state after a send.
type fakeWallet struct {
	utxos       []models.UnspentOutput
	txs         map[string]*wire.MsgTx
	balance     int64
	broadcasts  []*wire.MsgTx
	sighashes   []string
	seed        byte
	onBroadcast func(f *fakeWallet, tx *wire.MsgTx, txid string)
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{txs: make(map[string]*wire.MsgTx)}
}

func (f *fakeWallet) ListUnspentByAddress(address string) ([]models.UnspentOutput, error) {
	var out []models.UnspentOutput
	for _, utxo := range f.utxos {
		if utxo.Address == address {
			out = append(out, utxo)
		}
	}
	return out, nil
}

func (f *fakeWallet) RawTransaction(txid string) (*wire.MsgTx, error) {
	tx, ok := f.txs[txid]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", txid)
	}
	return tx, nil
}

func (f *fakeWallet) ConfirmedBalance() (int64, error) {
	return f.balance, nil
}

func (f *fakeWallet) ProcessPsbt(psbtB64, sighash string) (string, error) {
	f.sighashes = append(f.sighashes, sighash)
	if _, err := psbt.NewFromRawBytes(strings.NewReader(psbtB64), true); err != nil {
		return "", fmt.Errorf("fake wallet got malformed psbt: %w", err)
	}
	return psbtB64, nil
}

func (f *fakeWallet) FinalizePsbt(psbtB64 string) (string, bool, error) {
	packet, err := psbt.NewFromRawBytes(strings.NewReader(psbtB64), true)
	if err != nil {
		return "", false, fmt.Errorf("fake wallet got malformed psbt: %w", err)
	}
	var buf bytes.Buffer
	if err := packet.UnsignedTx.Serialize(&buf); err != nil {
		return "", false, err
	}
	return hex.EncodeToString(buf.Bytes()), true, nil
}

func (f *fakeWallet) Broadcast(rawHex string) (string, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return "", err
	}
	tx := wire.NewMsgTx(2)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return "", err
	}
	txid := tx.TxHash().String()
	f.broadcasts = append(f.broadcasts, tx)
	f.txs[txid] = tx
	if f.onBroadcast != nil {
		f.onBroadcast(f, tx, txid)
	}
	return txid, nil
}

// addUtxo registers a fresh unspent output backed by a synthetic previous
// transaction, so RawTransaction lookups stay consistent with the outpoint.
func (f *fakeWallet) addUtxo(t *testing.T, value int64, address string) models.UnspentOutput {
	t.Helper()

	script, err := payToAddressScript(address, testParams)
	require.NoError(t, err)

	f.seed++
	prev := wire.NewMsgTx(2)
	prev.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0xde, 0xad, f.seed}, 0), nil, nil))
	prev.AddTxOut(wire.NewTxOut(value, script))

	txid := prev.TxHash().String()
	f.txs[txid] = prev

	utxo := models.UnspentOutput{
		TxID:          txid,
		Vout:          0,
		Address:       address,
		Value:         value,
		Confirmations: 6,
		Spendable:     true,
	}
	f.utxos = append(f.utxos, utxo)
	return utxo
}

type fakeClassifier struct {
	inscribed map[string]bool
	err       error
	calls     int
}

func (f *fakeClassifier) IsInscription(ctx context.Context, txid string, vout uint32) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.inscribed[fmt.Sprintf("%s:%d", txid, vout)], nil
}

func parsePacket(t *testing.T, psbtB64 string) *psbt.Packet {
	t.Helper()
	packet, err := psbt.NewFromRawBytes(strings.NewReader(psbtB64), true)
	require.NoError(t, err)
	return packet
}
